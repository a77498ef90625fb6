package sequence

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAllocator hands out values from its own counter per key
type fakeAllocator struct {
	counters map[Key]int64
	err      error
	calls    int
}

func (a *fakeAllocator) NextVal(_ context.Context, entity Entity, attribute string, _ Formatter) (int64, error) {
	a.calls++
	if a.err != nil {
		return 0, a.err
	}
	key := KeyFor(entity, attribute)
	a.counters[key] += 10
	return a.counters[key], nil
}

// stuckAllocator always answers the same value
type stuckAllocator struct {
	value int64
}

func (a *stuckAllocator) NextVal(context.Context, Entity, string, Formatter) (int64, error) {
	return a.value, nil
}

func TestRegistryDefine(t *testing.T) {
	ctx := context.Background()

	t.Run("FirstDefinitionWins", func(t *testing.T) {
		registry := NewRegistry()
		widget := newWidget()

		first := registry.Define(widget, "string_column", func(n int64) any { return "first_" + itoa(n) })
		second := registry.Define(widget, "string_column", func(n int64) any { return "second_" + itoa(n) })
		assert.Same(t, first, second)

		v, err := registry.Next(ctx, widget, "string_column")
		require.NoError(t, err)
		assert.Equal(t, "first_1", v)
	})

	t.Run("LookupReusesDefinedFormatter", func(t *testing.T) {
		registry := NewRegistry()
		widget := newWidget()
		registry.Define(widget, "string_column", func(n int64) any { return "name_" + itoa(n) })

		assert.Same(t, registry.Define(widget, "string_column", nil), registry.Lookup(widget, "string_column"))
		v, err := registry.Lookup(widget, "string_column").Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, "name_1", v)
	})

	t.Run("NilEntityRegistersUnboundKey", func(t *testing.T) {
		registry := NewRegistry()
		seq := registry.Define(nil, "serial", nil)
		require.NotNil(t, seq)
		assert.Equal(t, 1, registry.Len())
		assert.Same(t, seq, registry.Define(nil, "serial", nil))

		got, ok := registry.Get(Key{Attribute: "serial"})
		require.True(t, ok)
		assert.Same(t, seq, got)
	})

	t.Run("UnboundValuesDoNotRepeat", func(t *testing.T) {
		registry := NewRegistry()
		for want := int64(1); want <= 3; want++ {
			v, err := registry.Next(ctx, nil, "serial")
			require.NoError(t, err)
			assert.Equal(t, want, v)
		}

		last, err := registry.Last(ctx, nil, "serial")
		require.NoError(t, err)
		assert.Equal(t, int64(3), last)
	})

	t.Run("KeysAreIndependent", func(t *testing.T) {
		registry := NewRegistry()
		widget := newWidget()

		_, _ = registry.Next(ctx, widget, "integer_column")
		_, _ = registry.Next(ctx, widget, "integer_column")
		v, err := registry.Next(ctx, widget, "text_column")
		require.NoError(t, err)
		assert.Equal(t, int64(1), v)
		assert.Equal(t, 2, registry.Len())

		seq, ok := registry.Get(Key{Entity: "Widget", Attribute: "integer_column"})
		require.True(t, ok)
		assert.Equal(t, "Widget#integer_column", seq.Key().String())

		_, ok = registry.Get(Key{Entity: "Widget", Attribute: "banana"})
		assert.False(t, ok)
	})
}

func TestRegistryResetAll(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry()
	widget := newWidget()

	for range 3 {
		_, err := registry.Next(ctx, widget, "integer_column")
		require.NoError(t, err)
	}
	widget.store("integer_column", int64(1), int64(2), int64(3), int64(4), int64(5))

	registry.ResetAll()
	assert.Equal(t, 1, registry.Len())

	v, err := registry.Next(ctx, widget, "integer_column")
	require.NoError(t, err)
	assert.Equal(t, int64(6), v)
}

func TestRegistryResetAllKeepsFormatter(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry()
	widget := newWidget()
	registry.Define(widget, "string_column", func(n int64) any { return "user_" + itoa(n) })

	_, err := registry.Next(ctx, widget, "string_column")
	require.NoError(t, err)
	registry.ResetAll()

	v, err := registry.Next(ctx, widget, "string_column")
	require.NoError(t, err)
	assert.Equal(t, "user_1", v)
}

func TestRegistryClear(t *testing.T) {
	registry := NewRegistry()
	registry.Lookup(newWidget(), "integer_column")
	registry.Lookup(newWidget(), "text_column")
	require.Equal(t, 2, registry.Len())

	registry.Clear()
	assert.Equal(t, 0, registry.Len())
}

func TestRegistryWithAllocator(t *testing.T) {
	ctx := context.Background()

	t.Run("BoundSequencesUseAllocator", func(t *testing.T) {
		allocator := &fakeAllocator{counters: map[Key]int64{}}
		registry := NewRegistry(WithAllocator(allocator))
		widget := newWidget()

		v, err := registry.Next(ctx, widget, "integer_column")
		require.NoError(t, err)
		assert.Equal(t, int64(10), v)

		v, err = registry.Next(ctx, widget, "integer_column")
		require.NoError(t, err)
		assert.Equal(t, int64(20), v)

		last, err := registry.Last(ctx, widget, "integer_column")
		require.NoError(t, err)
		assert.Equal(t, int64(20), last)

		assert.Equal(t, 2, allocator.calls)
		assert.Empty(t, widget.probed("integer_column"))
	})

	t.Run("UnboundSequencesStayInMemory", func(t *testing.T) {
		allocator := &fakeAllocator{counters: map[Key]int64{}}
		registry := NewRegistry(WithAllocator(allocator))

		v, err := registry.Define(nil, "serial", nil).Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), v)
		assert.Zero(t, allocator.calls)
	})

	t.Run("ValuesNeverRepeat", func(t *testing.T) {
		allocator := &stuckAllocator{value: 5}
		registry := NewRegistry(WithAllocator(allocator))
		widget := newWidget()

		for _, want := range []int64{5, 6, 7} {
			v, err := registry.Next(ctx, widget, "integer_column")
			require.NoError(t, err)
			assert.Equal(t, want, v)
		}

		registry.ResetAll()
		v, err := registry.Next(ctx, widget, "integer_column")
		require.NoError(t, err)
		assert.Equal(t, int64(5), v)
	})

	t.Run("AllocatorErrorPropagates", func(t *testing.T) {
		boom := errors.New("store unavailable")
		registry := NewRegistry(WithAllocator(&fakeAllocator{counters: map[Key]int64{}, err: boom}))

		_, err := registry.Next(ctx, newWidget(), "integer_column")
		assert.ErrorIs(t, err, boom)
	})
}
