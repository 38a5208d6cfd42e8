package formatters

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// Formatter names known to the default factory.
const (
	NameCompact = "compact"
	NameThemed  = "themed"
)

// Factory creates formatter instances by name
type Factory struct {
	mu         sync.RWMutex
	formatters map[string]FormatterConstructor
}

// FormatterConstructor is a function that creates a formatter
type FormatterConstructor func(opts ...Option) (Formatter, error)

// NewFactory creates a new formatter factory with the compact and themed
// formatters registered
func NewFactory() *Factory {
	f := &Factory{
		formatters: make(map[string]FormatterConstructor),
	}

	_ = f.Register(NameCompact, func(opts ...Option) (Formatter, error) {
		return NewCompactFormatter(opts...), nil
	})
	_ = f.Register(NameThemed, func(opts ...Option) (Formatter, error) {
		return NewThemedFormatter(DefaultTheme, opts...), nil
	})

	return f
}

// Register registers a new formatter constructor
func (f *Factory) Register(name string, constructor FormatterConstructor) error {
	if name == "" {
		return errors.New("formatter name cannot be empty")
	}
	if constructor == nil {
		return errors.New("formatter constructor cannot be nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.formatters[name] = constructor
	return nil
}

// CreateFormatter creates a formatter by name
func (f *Factory) CreateFormatter(name string, opts ...Option) (Formatter, error) {
	f.mu.RLock()
	constructor, exists := f.formatters[name]
	f.mu.RUnlock()

	if !exists {
		return nil, errors.Errorf("formatter %q not registered", name)
	}

	return constructor(opts...)
}

// ListFormatters returns the sorted names of all registered formatters
func (f *Factory) ListFormatters() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	names := make([]string, 0, len(f.formatters))
	for name := range f.formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultFactory is the global formatter factory
var DefaultFactory = NewFactory()

// Register registers a formatter with the default factory
func Register(name string, constructor FormatterConstructor) error {
	return DefaultFactory.Register(name, constructor)
}

// CreateFormatter creates a formatter using the default factory
func CreateFormatter(name string, opts ...Option) (Formatter, error) {
	return DefaultFactory.CreateFormatter(name, opts...)
}
