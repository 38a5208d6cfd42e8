package features

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/intentor/anlog/pkg/types"
)

// DefaultExtension is the extension of rotated files.
const DefaultExtension = "txt"

// Period is the time unit anchoring rotated file names.
type Period struct {
	name   string
	layout string
	digits int
	unit   time.Duration
}

var (
	// Day rotates at midnight; files are stamped yyyyMMdd
	Day = Period{name: "day", layout: "20060102", digits: 8, unit: 24 * time.Hour}
	// Hour rotates on the hour; files are stamped yyyyMMddHH
	Hour = Period{name: "hour", layout: "2006010215", digits: 10, unit: time.Hour}
)

// ParsePeriod returns the period named "day" or "hour".
func ParsePeriod(name string) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "day", "daily", "":
		return Day, nil
	case "hour", "hourly":
		return Hour, nil
	}
	return Period{}, errors.Wrapf(types.ErrInvalidPeriod, "parse %q", name)
}

// Name returns "day" or "hour".
func (p Period) Name() string {
	return p.name
}

func (p Period) String() string {
	return p.name
}

// Valid reports whether p is Day or Hour.
func (p Period) Valid() bool {
	return p.layout != ""
}

// Stamp formats the period containing t. Stamps are fixed width, so their
// lexical order is their chronological order.
func (p Period) Stamp(t time.Time) string {
	return t.Format(p.layout)
}

// ParseStamp parses a stamp produced by Stamp, in loc.
func (p Period) ParseStamp(stamp string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(p.layout, stamp, loc)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "parse %s stamp %q", p.name, stamp)
	}
	return t, nil
}

// Truncate returns the start of the period containing t, in t's location.
func (p Period) Truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	if p.unit == time.Hour {
		return time.Date(y, m, d, t.Hour(), 0, 0, 0, t.Location())
	}
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Exceeded reports whether now lies in a later period than last.
func (p Period) Exceeded(last, now time.Time) bool {
	return p.Stamp(now) > p.Stamp(last)
}

// Age returns the number of whole period boundaries between the period of
// from and the period of now: 0 for the same day (or hour), 1 for the next.
// Wall-clock components are compared, so daylight saving changes do not
// shorten or lengthen a period.
func (p Period) Age(from, now time.Time) int {
	a := p.Truncate(from)
	b := p.Truncate(now)
	au := time.Date(a.Year(), a.Month(), a.Day(), a.Hour(), 0, 0, 0, time.UTC)
	bu := time.Date(b.Year(), b.Month(), b.Day(), b.Hour(), 0, 0, 0, time.UTC)
	return int(bu.Sub(au) / p.unit)
}

// FileName returns log-<stamp>-<sequence>.<ext>.
func (p Period) FileName(t time.Time, sequence int, ext string) string {
	return fmt.Sprintf("log-%s-%d.%s", p.Stamp(t), sequence, normalizeExtension(ext))
}

// Pattern matches the file names of this period. Group 1 is the stamp and
// group 2 the sequence.
func (p Period) Pattern(ext string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(`^log-(\d{%d})-([1-9]\d*)\.%s$`, p.digits, regexp.QuoteMeta(normalizeExtension(ext))))
}

// RotatedFile is a file name parsed with Pattern.
type RotatedFile struct {
	Path     string
	Name     string
	Stamp    string
	Sequence int
}

// After reports whether f sorts after o by (stamp, sequence).
func (f RotatedFile) After(o RotatedFile) bool {
	if f.Stamp != o.Stamp {
		return f.Stamp > o.Stamp
	}
	return f.Sequence > o.Sequence
}

// parseRotated matches name against pattern.
func parseRotated(pattern *regexp.Regexp, dir, name string) (RotatedFile, bool) {
	m := pattern.FindStringSubmatch(name)
	if len(m) != 3 {
		return RotatedFile{}, false
	}
	seq, err := strconv.Atoi(m[2])
	if err != nil {
		return RotatedFile{}, false
	}
	return RotatedFile{
		Path:     filepath.Join(dir, name),
		Name:     name,
		Stamp:    m[1],
		Sequence: seq,
	}, true
}

func normalizeExtension(ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		return DefaultExtension
	}
	return ext
}
