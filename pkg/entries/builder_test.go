package entries

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intentor/anlog/pkg/introspect"
)

type color int

const (
	red color = iota
	green
)

func (c color) String() string {
	return [...]string{"red", "green"}[c]
}

type address struct {
	Street string
	Number int    `log:"no"`
	Note   string `log:"-"`
}

type person struct {
	Name    string
	Age     int
	Address *address
	Tags    []string
}

type opaque struct {
	secret string
}

type named struct {
	secret string
}

func (n named) String() string { return "named:" + n.secret }

type blank struct{}

func (blank) String() string { return "" }

type ptrNamed struct {
	secret string
}

func (p *ptrNamed) String() string { return "ptr:" + p.secret }

type selfDescribed struct{}

func (selfDescribed) LogEntries() []Entry {
	return []Entry{String("kind", "custom")}
}

func newTestBuilder() *Builder {
	return NewBuilder(introspect.New())
}

func TestFromValueScalars(t *testing.T) {
	b := newTestBuilder()
	when := time.Date(2018, 5, 6, 13, 4, 5, 123456789, time.UTC)
	var nilPtr *person
	var nilErr error

	tests := []struct {
		name  string
		value interface{}
		want  string
	}{
		{"nil", nil, NullValue},
		{"nil pointer", nilPtr, NullValue},
		{"nil error interface", nilErr, NullValue},
		{"string", "hello world", "hello world"},
		{"empty string", "", ""},
		{"bool", true, "true"},
		{"int", -42, "-42"},
		{"uint8", uint8(200), "200"},
		{"float", 1.5, "1.5"},
		{"float no exponent", 1234567.25, "1234567.25"},
		{"float tiny", 1e-9, "1e-09"},
		{"float32", float32(0.25), "0.25"},
		{"inf", math.Inf(1), "+Inf"},
		{"enum", green, "green"},
		{"duration", 1500 * time.Millisecond, "1.5s"},
		{"time", when, "2018-05-06 13:04:05.123"},
		{"time pointer", &when, "2018-05-06 13:04:05.123"},
		{"error", errors.New("boom"), "boom"},
		{"bytes", []byte("raw"), "raw"},
		{"pointer to int", func() *int { i := 7; return &i }(), "7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := b.FromValue("k", tt.value)
			assert.Equal(t, Scalar{Name: "k", Value: tt.want}, got)
		})
	}
}

func TestFromValueDateFormat(t *testing.T) {
	b := NewBuilder(introspect.New(), WithDateFormat("2006/01/02"))
	got := b.FromValue("d", time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC))
	assert.Equal(t, Scalar{Name: "d", Value: "2020/01/02"}, got)
}

func TestFromValueSequences(t *testing.T) {
	b := newTestBuilder()

	tests := []struct {
		name  string
		value interface{}
		want  List
	}{
		{"empty slice", []int{}, List{Name: "items", Items: []Entry{}}},
		{"nil slice", []string(nil), List{Name: "items", Items: []Entry{}}},
		{"ints", []int{1, 2, 3}, List{Name: "items", Items: []Entry{
			Scalar{Value: "1"}, Scalar{Value: "2"}, Scalar{Value: "3"},
		}}},
		{"array", [2]string{"a", "b"}, List{Name: "items", Items: []Entry{
			Scalar{Value: "a"}, Scalar{Value: "b"},
		}}},
		{"nested", [][]int{{1}, {}}, List{Name: "items", Items: []Entry{
			List{Items: []Entry{Scalar{Value: "1"}}},
			List{Items: []Entry{}},
		}}},
		{"mixed interfaces", []interface{}{"x", nil, 2}, List{Name: "items", Items: []Entry{
			Scalar{Value: "x"}, Scalar{Value: NullValue}, Scalar{Value: "2"},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, b.FromValue("items", tt.value))
		})
	}
}

func TestFromValueMapSortsKeys(t *testing.T) {
	b := newTestBuilder()

	got := b.FromValue("m", map[string]int{"b": 2, "a": 1, "c": 3})

	assert.Equal(t, Object{Name: "m", Children: []Entry{
		Scalar{Name: "a", Value: "1"},
		Scalar{Name: "b", Value: "2"},
		Scalar{Name: "c", Value: "3"},
	}}, got)
}

func TestFromValueStruct(t *testing.T) {
	b := newTestBuilder()

	p := person{
		Name:    "Ana",
		Age:     30,
		Address: &address{Street: "Main", Number: 12, Note: "hidden"},
		Tags:    []string{"x"},
	}

	got := b.FromValue("p", p)

	assert.Equal(t, Object{Name: "p", Children: []Entry{
		Scalar{Name: "Name", Value: "Ana"},
		Scalar{Name: "Age", Value: "30"},
		Object{Name: "Address", Children: []Entry{
			Scalar{Name: "Street", Value: "Main"},
			Scalar{Name: "no", Value: "12"},
		}},
		List{Name: "Tags", Items: []Entry{Scalar{Value: "x"}}},
	}}, got)
}

func TestFromValueStructNilMember(t *testing.T) {
	b := newTestBuilder()

	got := b.FromValue("p", &person{Name: "Bo"})

	obj, ok := got.(Object)
	require.True(t, ok)
	assert.Equal(t, Scalar{Name: "Address", Value: NullValue}, obj.Children[2])
	assert.Equal(t, List{Name: "Tags", Items: []Entry{}}, obj.Children[3])
}

func TestFromValueZeroMemberFallback(t *testing.T) {
	b := newTestBuilder()

	tests := []struct {
		name  string
		value interface{}
		want  string
	}{
		{"no stringer uses type name", opaque{secret: "s"}, "entries.opaque"},
		{"stringer", named{secret: "s"}, "named:s"},
		{"empty string form", blank{}, EmptyValue},
		{"pointer receiver stringer", &ptrNamed{secret: "p"}, "ptr:p"},
		{"empty struct", struct{}{}, "struct {}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := b.FromValue("v", tt.value)
			require.IsType(t, Scalar{}, got, "zero-member values never become objects")
			assert.Equal(t, tt.want, got.(Scalar).Value)
		})
	}
}

func TestFromValueOptInCacheFallsBackToString(t *testing.T) {
	b := NewBuilder(introspect.New(introspect.WithOptIn()))

	got := b.FromValue("a", address{Street: "Main"})

	assert.Equal(t, Scalar{Name: "a", Value: "entries.address"}, got)
}

func TestFromValueLoggableAndEntries(t *testing.T) {
	b := newTestBuilder()

	assert.Equal(t, Object{Name: "s", Children: []Entry{String("kind", "custom")}},
		b.FromValue("s", selfDescribed{}))

	assert.Equal(t, Strings("tags", "a", "b"), b.FromValue("tags", Strings("old", "a", "b")))
	assert.Equal(t, String("x", "1"), b.FromValue("", String("x", "1")))
}

func TestNewException(t *testing.T) {
	t.Run("plain error", func(t *testing.T) {
		e := NewException(fmt.Errorf("disk full"))
		assert.Equal(t, "*errors.errorString: disk full", e.Details)
		assert.Equal(t, "", e.Key())
	})

	t.Run("with stack", func(t *testing.T) {
		err := errors.Wrap(errors.New("root cause"), "saving order")
		e := NewException(err)

		require.Contains(t, e.Details, "*errors.fundamental: saving order: root cause\n")
		assert.Contains(t, e.Details, "TestNewException")
	})

	t.Run("nil", func(t *testing.T) {
		assert.Equal(t, NullValue, NewException(nil).Details)
	})
}

func TestWithKey(t *testing.T) {
	assert.Equal(t, "k", WithKey(String("a", "1"), "k").Key())
	assert.Equal(t, "k", WithKey(NewObject("a"), "k").Key())
	assert.Equal(t, "k", WithKey(NewList("a"), "k").Key())
	assert.Equal(t, "", WithKey(ExceptionTrace{Details: "x"}, "k").Key())
}
