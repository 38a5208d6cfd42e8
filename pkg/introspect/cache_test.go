package introspect

import (
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type order struct {
	ID       int
	Customer string  `log:"customer"`
	Secret   string  `log:"-"`
	Total    float64 `json:"total,omitempty"`
	Hidden   bool    `json:"-"`
	internal string
}

type audit struct {
	By string
}

type withEmbedded struct {
	audit
	Name string
}

type withEmbeddedPtr struct {
	*audit
	Name string
}

type contracted struct {
	Value int
}

func (contracted) LogContract() {}

type ptrContracted struct {
	Value int
}

func (*ptrContracted) LogContract() {}

type nothingExported struct {
	a int
	b string
}

func names(d *TypeDescriptor) []string {
	out := make([]string, 0, len(d.Members))
	for _, m := range d.Members {
		out = append(out, m.Name)
	}
	return out
}

func TestGetHonorsTags(t *testing.T) {
	c := New()

	d := c.Get(reflect.TypeOf(order{}))

	assert.Equal(t, []string{"ID", "customer", "total"}, names(d))
	assert.False(t, d.Empty())
}

func TestGetDereferencesPointers(t *testing.T) {
	c := New()

	byValue := c.Get(reflect.TypeOf(order{}))
	byPtr := c.Get(reflect.TypeOf(&order{}))

	assert.Same(t, byValue, byPtr)
	assert.Equal(t, 1, c.Len())
}

func TestGetReturnsEmptyDescriptor(t *testing.T) {
	tests := []struct {
		name string
		typ  reflect.Type
	}{
		{"no exported fields", reflect.TypeOf(nothingExported{})},
		{"int", reflect.TypeOf(0)},
		{"string", reflect.TypeOf("")},
		{"empty struct", reflect.TypeOf(struct{}{})},
	}

	c := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, c.Get(tt.typ).Empty())
		})
	}
}

func TestGetPromotesEmbeddedFields(t *testing.T) {
	c := New()

	d := c.Get(reflect.TypeOf(withEmbedded{}))
	require.Equal(t, []string{"By", "Name"}, names(d))

	v := reflect.ValueOf(withEmbedded{audit: audit{By: "ana"}, Name: "x"})
	by, ok := d.Members[0].Value(v)
	require.True(t, ok)
	assert.Equal(t, "ana", by.String())
}

func TestMemberValueNilEmbeddedPointer(t *testing.T) {
	c := New()

	d := c.Get(reflect.TypeOf(withEmbeddedPtr{}))
	require.Equal(t, []string{"By", "Name"}, names(d))

	_, ok := d.Members[0].Value(reflect.ValueOf(withEmbeddedPtr{Name: "x"}))
	assert.False(t, ok)
}

func TestOptInMode(t *testing.T) {
	c := New(WithOptIn())
	require.True(t, c.OptIn())

	assert.True(t, c.Get(reflect.TypeOf(order{})).Empty(), "types without the marker are not described")
	assert.Equal(t, []string{"Value"}, names(c.Get(reflect.TypeOf(contracted{}))))
	assert.Equal(t, []string{"Value"}, names(c.Get(reflect.TypeOf(ptrContracted{}))))
}

func TestLookupAndPrewarm(t *testing.T) {
	c := New()

	_, ok := c.Lookup(reflect.TypeOf(order{}))
	assert.False(t, ok)

	c.Prewarm(order{}, &contracted{}, nil)

	d, ok := c.Lookup(reflect.TypeOf(&order{}))
	require.True(t, ok)
	assert.Equal(t, "ID", d.Members[0].Name)
	assert.Equal(t, 2, c.Len())
}

func TestConcurrentGetPublishesOneDescriptor(t *testing.T) {
	c := New()
	typ := reflect.TypeOf(order{})

	const workers = 32
	results := make([]*TypeDescriptor, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.Get(typ)
		}(i)
	}
	wg.Wait()

	for _, d := range results {
		assert.Same(t, results[0], d)
	}
}

func TestSharedIsSingleton(t *testing.T) {
	assert.Same(t, Shared(), Shared())
	assert.False(t, Shared().OptIn())
}
