// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"

	"github.com/amirphl/demo-sequences/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

var (
	// ErrCounterNotFound is returned when a named counter does not exist in the store
	ErrCounterNotFound = errors.New("counter not found")
	// ErrCounterExists is returned when creating a counter that another caller already created
	ErrCounterExists = errors.New("counter already exists")
)

// CounterRepository is a store-native atomic counter keyed by name. Increment is the only
// operation that must be safe across processes.
type CounterRepository interface {
	// Exists reports whether the named counter has been created
	Exists(ctx context.Context, name string) (bool, error)
	// Create makes a counter whose first Increment returns start
	Create(ctx context.Context, name string, start int64) error
	// Increment atomically advances the counter and returns the new value
	Increment(ctx context.Context, name string) (int64, error)
	// List returns the names of counters starting with prefix, sorted
	List(ctx context.Context, prefix string) ([]string, error)
	// Drop removes the counter. Dropping a missing counter is not an error.
	Drop(ctx context.Context, name string) error
}

// SequenceCounterRepository defines operations for the sequence_counters table
type SequenceCounterRepository interface {
	CounterRepository
	ByName(ctx context.Context, name string) (*models.SequenceCounter, error)
	ByFilter(ctx context.Context, filter models.SequenceCounterFilter, orderBy string, limit, offset int) ([]*models.SequenceCounter, error)
	Migrate(ctx context.Context) error
}
