// Package entries defines the tree of key/value nodes that make up the payload
// of one log event, and the conversion of arbitrary Go values into that tree.
package entries

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

const (
	// NullValue is rendered for nil values
	NullValue = "null"
	// EmptyValue is rendered for values whose string form is empty
	EmptyValue = "empty"
)

// Entry is one node of a log event payload. The set of implementations is
// closed: Scalar, Object, List and ExceptionTrace.
//
// An empty key means the node is positional and rendered without a key
// prefix. Keys are written as-is and must not contain separator characters.
type Entry interface {
	Key() string
	entry()
}

// Scalar is a preformatted leaf value.
type Scalar struct {
	Name  string
	Value string
}

// Object is a keyed group of child entries, rendered between braces.
type Object struct {
	Name     string
	Children []Entry
}

// List is an ordered sequence of entries, rendered between brackets. Plain
// string items are keyless Scalars.
type List struct {
	Name  string
	Items []Entry
}

// ExceptionTrace is a preformatted, possibly multi-line error description.
// It is always positional.
type ExceptionTrace struct {
	Details string
}

func (s Scalar) Key() string { return s.Name }

func (o Object) Key() string { return o.Name }

func (l List) Key() string { return l.Name }

func (ExceptionTrace) Key() string { return "" }

func (Scalar) entry()         {}
func (Object) entry()         {}
func (List) entry()           {}
func (ExceptionTrace) entry() {}

// String creates a keyed scalar.
func String(key, value string) Scalar {
	return Scalar{Name: key, Value: value}
}

// NewObject creates a keyed object from children.
func NewObject(key string, children ...Entry) Object {
	if children == nil {
		children = []Entry{}
	}
	return Object{Name: key, Children: children}
}

// NewList creates a keyed list from items.
func NewList(key string, items ...Entry) List {
	if items == nil {
		items = []Entry{}
	}
	return List{Name: key, Items: items}
}

// Strings creates a keyed list of plain string items.
func Strings(key string, values ...string) List {
	items := make([]Entry, len(values))
	for i, v := range values {
		items[i] = Scalar{Value: v}
	}
	return List{Name: key, Items: items}
}

// WithKey returns e under a different key. ExceptionTrace is returned
// unchanged.
func WithKey(e Entry, key string) Entry {
	switch v := e.(type) {
	case Scalar:
		v.Name = key
		return v
	case Object:
		v.Name = key
		return v
	case List:
		v.Name = key
		return v
	default:
		return e
	}
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// NewException describes err as "<Type>: <message>", followed by the stack
// recorded by github.com/pkg/errors when the error carries one.
//
// The type named is the one of the root cause, and the stack is the oldest
// one found along the wrap chain.
func NewException(err error) ExceptionTrace {
	if err == nil {
		return ExceptionTrace{Details: NullValue}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%T: %s", errors.Cause(err), err.Error())

	var trace errors.StackTrace
	for e := err; e != nil; e = errors.Unwrap(e) {
		if st, ok := e.(stackTracer); ok {
			trace = st.StackTrace()
		}
	}
	if len(trace) > 0 {
		b.WriteString("\n")
		b.WriteString(strings.TrimPrefix(fmt.Sprintf("%+v", trace), "\n"))
	}

	return ExceptionTrace{Details: b.String()}
}
