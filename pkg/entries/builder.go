package entries

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"time"

	"github.com/intentor/anlog/pkg/introspect"
)

// DefaultDateFormat is the layout used for time.Time values.
const DefaultDateFormat = "2006-01-02 15:04:05.000"

// Loggable is implemented by types that describe themselves. Its entries
// become the children of an Object, bypassing introspection.
type Loggable interface {
	LogEntries() []Entry
}

// Builder converts arbitrary values into entries.
type Builder struct {
	cache      *introspect.Cache
	dateFormat string
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithDateFormat sets the layout used for time.Time values.
func WithDateFormat(layout string) BuilderOption {
	return func(b *Builder) {
		if layout != "" {
			b.dateFormat = layout
		}
	}
}

// NewBuilder creates a Builder backed by cache. A nil cache selects
// introspect.Shared().
func NewBuilder(cache *introspect.Cache, opts ...BuilderOption) *Builder {
	if cache == nil {
		cache = introspect.Shared()
	}
	b := &Builder{cache: cache, dateFormat: DefaultDateFormat}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Cache returns the introspection cache in use.
func (b *Builder) Cache() *introspect.Cache {
	return b.cache
}

// FromValue converts value into an entry keyed by key:
//   - nil, nil pointers and nil interfaces become the "null" scalar
//   - Entry values are re-keyed, Loggable values become objects
//   - time.Time is formatted with the builder's date layout
//   - errors, fmt.Stringer enums, numbers, bools and strings become scalars
//   - slices and arrays become lists, maps become objects sorted by key
//   - structs become objects of their exposed members, or, when they expose
//     none, a scalar of their String() form or type name
//
// Nested values are converted recursively. There is no cycle detection, so a
// self-referencing value recurses without bound.
func (b *Builder) FromValue(key string, value interface{}) Entry {
	if value == nil {
		return Scalar{Name: key, Value: NullValue}
	}
	return b.fromReflect(key, reflect.ValueOf(value))
}

func (b *Builder) fromReflect(key string, rv reflect.Value) Entry {
	if !rv.IsValid() {
		return Scalar{Name: key, Value: NullValue}
	}

	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Func, reflect.Chan:
		if rv.IsNil() {
			return Scalar{Name: key, Value: NullValue}
		}
	}

	if rv.CanInterface() {
		if e, ok := b.fromInterface(key, rv); ok {
			return e
		}
	}

	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		return b.fromReflect(key, rv.Elem())
	case reflect.Bool:
		return Scalar{Name: key, Value: strconv.FormatBool(rv.Bool())}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Scalar{Name: key, Value: strconv.FormatInt(rv.Int(), 10)}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Scalar{Name: key, Value: strconv.FormatUint(rv.Uint(), 10)}
	case reflect.Float32:
		return Scalar{Name: key, Value: formatFloat(rv.Float(), 32)}
	case reflect.Float64:
		return Scalar{Name: key, Value: formatFloat(rv.Float(), 64)}
	case reflect.Complex64, reflect.Complex128:
		return Scalar{Name: key, Value: strconv.FormatComplex(rv.Complex(), 'g', -1, 128)}
	case reflect.String:
		return Scalar{Name: key, Value: rv.String()}
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return Scalar{Name: key, Value: string(rv.Bytes())}
		}
		return b.fromSequence(key, rv)
	case reflect.Array:
		return b.fromSequence(key, rv)
	case reflect.Map:
		return b.fromMap(key, rv)
	case reflect.Struct:
		return b.fromStruct(key, rv)
	default:
		return Scalar{Name: key, Value: rv.Type().String()}
	}
}

// fromInterface handles the values recognised by the interfaces they
// implement rather than by their kind.
func (b *Builder) fromInterface(key string, rv reflect.Value) (Entry, bool) {
	v := rv.Interface()

	switch x := v.(type) {
	case Entry:
		if key == "" {
			return x, true
		}
		return WithKey(x, key), true
	case Loggable:
		return NewObject(key, x.LogEntries()...), true
	case time.Time:
		return Scalar{Name: key, Value: x.Format(b.dateFormat)}, true
	case error:
		return Scalar{Name: key, Value: nonEmpty(x.Error())}, true
	case fmt.Stringer:
		// Named basic types (enums, time.Duration) print through String().
		if isBasic(rv.Kind()) {
			return Scalar{Name: key, Value: x.String()}, true
		}
	}
	return nil, false
}

func (b *Builder) fromSequence(key string, rv reflect.Value) Entry {
	items := make([]Entry, rv.Len())
	for i := range items {
		items[i] = b.fromReflect("", rv.Index(i))
	}
	return List{Name: key, Items: items}
}

func (b *Builder) fromMap(key string, rv reflect.Value) Entry {
	type pair struct {
		key   string
		value reflect.Value
	}
	pairs := make([]pair, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		pairs = append(pairs, pair{key: b.keyString(iter.Key()), value: iter.Value()})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].key < pairs[j].key })

	children := make([]Entry, len(pairs))
	for i, p := range pairs {
		children[i] = b.fromReflect(p.key, p.value)
	}
	return Object{Name: key, Children: children}
}

func (b *Builder) keyString(k reflect.Value) string {
	if s, ok := b.fromReflect("", k).(Scalar); ok {
		return s.Value
	}
	return fmt.Sprint(k.Interface())
}

func (b *Builder) fromStruct(key string, rv reflect.Value) Entry {
	desc := b.cache.Get(rv.Type())
	if desc.Empty() {
		return Scalar{Name: key, Value: stringForm(rv)}
	}

	children := make([]Entry, 0, len(desc.Members))
	for _, m := range desc.Members {
		fv, ok := m.Value(rv)
		if !ok {
			children = append(children, Scalar{Name: m.Name, Value: NullValue})
			continue
		}
		children = append(children, b.fromReflect(m.Name, fv))
	}
	return Object{Name: key, Children: children}
}

// stringForm is the fallback text of a value with no exposed members.
func stringForm(rv reflect.Value) string {
	if rv.CanInterface() {
		if s, ok := rv.Interface().(fmt.Stringer); ok {
			return nonEmpty(s.String())
		}
		if rv.CanAddr() {
			if s, ok := rv.Addr().Interface().(fmt.Stringer); ok {
				return nonEmpty(s.String())
			}
		}
	}
	return nonEmpty(rv.Type().String())
}

func nonEmpty(s string) string {
	if s == "" {
		return EmptyValue
	}
	return s
}

func isBasic(k reflect.Kind) bool {
	switch k {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// formatFloat prints f without exponent unless it is very large or very
// small, the way encoding/json does.
func formatFloat(f float64, bits int) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, bits)
	}
	format := byte('f')
	if abs := math.Abs(f); abs != 0 {
		if abs < 1e-6 || abs >= 1e21 {
			format = 'e'
		}
	}
	return strconv.FormatFloat(f, format, -1, bits)
}
