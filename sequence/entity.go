// Package sequence allocates collision-free attribute values for synthetic records.
// Counters resume from whatever the store already holds instead of starting at 1.
package sequence

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/demo-sequences/metrics"
)

// ErrFinderNotFound is returned when an entity has a column for an attribute but
// exposes no finder for the accessor used to probe it.
var ErrFinderNotFound = errors.New("finder not found")

// Finder answers whether a formatted value is already persisted.
type Finder interface {
	Exists(ctx context.Context, value any) (bool, error)
}

// FinderFunc adapts a function to the Finder interface
type FinderFunc func(ctx context.Context, value any) (bool, error)

// Exists calls f(ctx, value)
func (f FinderFunc) Exists(ctx context.Context, value any) (bool, error) {
	return f(ctx, value)
}

// Entity describes a persisted record type a sequence can be bound to.
type Entity interface {
	// Name identifies the entity type, e.g. "Widget".
	Name() string
	// TableName is the storage table backing the entity.
	TableName() string
	// ResolveAlias maps an attribute alias to its column name. Unknown names are returned as-is.
	ResolveAlias(attribute string) string
	// HasColumn reports whether the table has the given column.
	HasColumn(column string) bool
	// Finder returns the existence lookup registered for an accessor name.
	Finder(accessor string) (Finder, bool)
}

// Key identifies a sequence. One Sequence exists per Key in a Registry.
type Key struct {
	Entity    string
	Attribute string
}

func (k Key) String() string {
	if k.Entity == "" {
		return k.Attribute
	}
	return fmt.Sprintf("%s#%s", k.Entity, k.Attribute)
}

// KeyFor builds the key for an entity/attribute pair. A nil entity yields an unbound key.
func KeyFor(entity Entity, attribute string) Key {
	if entity == nil {
		return Key{Attribute: attribute}
	}
	return Key{Entity: entity.Name(), Attribute: attribute}
}

// Formatter maps a raw positive integer to the stored representation of an attribute.
// It must be pure: the same input always produces the same output.
type Formatter func(n int64) any

// Identity is the default formatter.
func Identity(n int64) any {
	return n
}

// ColumnName resolves the storage column for an attribute, honouring aliases.
func ColumnName(entity Entity, attribute string) string {
	if entity == nil {
		return attribute
	}
	return entity.ResolveAlias(attribute)
}

// StartingValue computes the raw value a fresh sequence continues from. Attributes
// without a backing column start at 0.
func StartingValue(ctx context.Context, entity Entity, attribute string, format Formatter) (int64, error) {
	if entity == nil {
		return 0, nil
	}
	column := ColumnName(entity, attribute)
	if !entity.HasColumn(column) {
		return 0, nil
	}

	accessor := AccessorName(column)
	finder, ok := entity.Finder(accessor)
	if !ok {
		return 0, fmt.Errorf("%w: %s has no finder for %q", ErrFinderNotFound, entity.Name(), accessor)
	}
	if format == nil {
		format = Identity
	}

	oracle := FinderOracle(finder, format)
	entityName := entity.Name()
	return LowerBound(ctx, func(ctx context.Context, n int64) (bool, error) {
		metrics.ObserveProbe(entityName, attribute)
		return oracle(ctx, n)
	})
}
