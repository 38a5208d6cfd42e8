// Package introspect builds and caches, per Go type, the ordered list of
// exported struct members that are flattened into log entries.
//
// Descriptors are built once per type on first use and never evicted. The
// cache is safe for concurrent use; lookups of an already published
// descriptor take no locks.
package introspect

import (
	"reflect"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// TagName is the struct tag that renames (`log:"name"`) or hides
// (`log:"-"`) a member.
const TagName = "log"

// Contract marks a type as eligible for introspection when the cache runs in
// opt-in mode.
type Contract interface {
	LogContract()
}

var contractType = reflect.TypeOf((*Contract)(nil)).Elem()

// Member is one exposed member of a struct type.
type Member struct {
	Name  string
	index []int
}

// Value returns the member's value within v, which must be a struct value of
// the described type. ok is false when the member is reached through a nil
// embedded pointer.
func (m Member) Value(v reflect.Value) (reflect.Value, bool) {
	f, err := v.FieldByIndexErr(m.index)
	if err != nil {
		return reflect.Value{}, false
	}
	return f, true
}

// TypeDescriptor lists the exposed members of one type, in declaration order.
// It is immutable once published.
type TypeDescriptor struct {
	Type    reflect.Type
	Members []Member
}

// Empty reports whether the descriptor has no members. Values of such types
// are logged by their string form.
func (d *TypeDescriptor) Empty() bool {
	return d == nil || len(d.Members) == 0
}

// Option configures a Cache.
type Option func(*Cache)

// WithOptIn restricts introspection to types implementing Contract. Other
// types get an empty descriptor.
func WithOptIn() Option {
	return func(c *Cache) {
		c.optIn = true
	}
}

// Cache maps types to their descriptors.
type Cache struct {
	descriptors sync.Map // reflect.Type -> *TypeDescriptor
	group       singleflight.Group
	optIn       bool
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var (
	sharedOnce  sync.Once
	sharedCache *Cache
)

// Shared returns the process-wide cache used by loggers that are not given
// their own. It describes all exported members.
func Shared() *Cache {
	sharedOnce.Do(func() {
		sharedCache = New()
	})
	return sharedCache
}

// OptIn reports whether the cache only describes Contract types.
func (c *Cache) OptIn() bool {
	return c.optIn
}

// Get returns the descriptor for t, building and publishing it on first use.
// Pointer types are described by their element type.
//
// Parameters:
//   - t: The type to describe
//
// Returns:
//   - *TypeDescriptor: Shared, read-only descriptor
//
// Example:
//
//	desc := introspect.Shared().Get(reflect.TypeOf(order))
//	for _, m := range desc.Members {
//	    fmt.Println(m.Name)
//	}
func (c *Cache) Get(t reflect.Type) *TypeDescriptor {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil {
		return &TypeDescriptor{}
	}

	if d, ok := c.descriptors.Load(t); ok {
		return d.(*TypeDescriptor)
	}

	// Concurrent first requests for the same type share one build.
	v, _, _ := c.group.Do(typeKey(t), func() (interface{}, error) {
		d := c.build(t)
		actual, _ := c.descriptors.LoadOrStore(t, d)
		return actual, nil
	})
	d := v.(*TypeDescriptor)
	if d.Type != t {
		// Two distinct types can share a key (e.g. same-named local types).
		d = c.build(t)
		actual, _ := c.descriptors.LoadOrStore(t, d)
		d = actual.(*TypeDescriptor)
	}
	return d
}

// Lookup returns the published descriptor for t without building it.
func (c *Cache) Lookup(t reflect.Type) (*TypeDescriptor, bool) {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil {
		return nil, false
	}
	d, ok := c.descriptors.Load(t)
	if !ok {
		return nil, false
	}
	return d.(*TypeDescriptor), true
}

// Prewarm builds descriptors for the types of the given sample values.
func (c *Cache) Prewarm(samples ...interface{}) {
	for _, s := range samples {
		if s == nil {
			continue
		}
		c.Get(reflect.TypeOf(s))
	}
}

// Len returns the number of cached descriptors.
func (c *Cache) Len() int {
	n := 0
	c.descriptors.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}

func (c *Cache) build(t reflect.Type) *TypeDescriptor {
	d := &TypeDescriptor{Type: t}
	if t.Kind() != reflect.Struct {
		return d
	}
	if c.optIn && !t.Implements(contractType) && !reflect.PointerTo(t).Implements(contractType) {
		return d
	}

	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() || f.Anonymous && isStruct(f.Type) {
			continue
		}
		name, ok := memberName(f)
		if !ok {
			continue
		}
		d.Members = append(d.Members, Member{Name: name, index: f.Index})
	}
	return d
}

// memberName resolves the exposed name for f. The log tag wins over the
// json tag; "-" in either hides the member.
func memberName(f reflect.StructField) (string, bool) {
	for _, key := range []string{TagName, "json"} {
		tag, ok := f.Tag.Lookup(key)
		if !ok {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")
		if name == "-" {
			return "", false
		}
		if name != "" {
			return name, true
		}
	}
	return f.Name, true
}

func isStruct(t reflect.Type) bool {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct
}

func typeKey(t reflect.Type) string {
	return t.PkgPath() + "|" + t.String()
}
