// Package dbsequence hands sequence allocation to a store-native atomic counter so
// that concurrent processes never issue the same value.
package dbsequence

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/amirphl/demo-sequences/metrics"
	"github.com/amirphl/demo-sequences/repository"
	"github.com/amirphl/demo-sequences/sequence"
	"github.com/sirupsen/logrus"
)

// EventSequenceNotFound is logged whenever a counter object is expected but absent
const EventSequenceNotFound = "clever_sequence.sequence_not_found"

// Backend allocates raw values from named counters in a CounterRepository. It
// implements sequence.Allocator.
type Backend struct {
	store      repository.CounterRepository
	strict     bool
	lazyCreate bool
	logger     logrus.FieldLogger

	// names confirmed to exist; entries are only removed explicitly
	known sync.Map
}

// Option configures a Backend
type Option func(*Backend)

// WithStrict makes a missing counter object an error instead of a computed fallback
func WithStrict(strict bool) Option {
	return func(b *Backend) {
		b.strict = strict
	}
}

// WithLazyCreate provisions missing counter objects on first use in non-strict mode
func WithLazyCreate(lazy bool) Option {
	return func(b *Backend) {
		b.lazyCreate = lazy
	}
}

// WithLogger sets the logger for not-found events
func WithLogger(logger logrus.FieldLogger) Option {
	return func(b *Backend) {
		b.logger = logger
	}
}

// NewBackend creates a backend over store
func NewBackend(store repository.CounterRepository, opts ...Option) *Backend {
	b := &Backend{
		store:  store,
		logger: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Provisioned describes the counter object behind a sequence
type Provisioned struct {
	Name  string
	Start int64
	// Created is false when the object already existed
	Created bool
}

// NextVal returns the next raw value for an entity attribute.
//
// When the counter object is missing, strict mode fails with *NotFoundError. Otherwise
// the value one past the current data is returned; the object is created first only
// when lazy creation is enabled.
func (b *Backend) NextVal(ctx context.Context, entity sequence.Entity, attribute string, format sequence.Formatter) (int64, error) {
	name := SequenceName(entity.TableName(), attribute)

	exists, err := b.exists(ctx, name)
	if err != nil {
		return 0, err
	}
	if exists {
		value, err := b.store.Increment(ctx, name)
		if err == nil {
			return value, nil
		}
		if !errors.Is(err, repository.ErrCounterNotFound) {
			return 0, err
		}
		// dropped behind our back
		b.known.Delete(name)
	}

	start, err := sequence.StartingValue(ctx, entity, attribute, format)
	if err != nil {
		return 0, err
	}
	b.reportNotFound(name, entity, attribute, start+1)

	if b.strict {
		return 0, &NotFoundError{
			Name:       name,
			Entity:     entity.Name(),
			Attribute:  attribute,
			StartValue: start + 1,
		}
	}
	if !b.lazyCreate {
		return start + 1, nil
	}

	if _, err := b.create(ctx, name, start+1); err != nil {
		return 0, err
	}
	value, err := b.store.Increment(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("failed to advance %s after creating it: %w", name, err)
	}
	return value, nil
}

// Provision creates the counter object for an entity attribute so it starts one past
// the values already stored. Provisioning an existing object is not an error.
func (b *Backend) Provision(ctx context.Context, entity sequence.Entity, attribute string, format sequence.Formatter) (Provisioned, error) {
	name := SequenceName(entity.TableName(), attribute)
	p := Provisioned{Name: name}

	exists, err := b.exists(ctx, name)
	if err != nil {
		return p, err
	}
	if exists {
		return p, nil
	}

	start, err := sequence.StartingValue(ctx, entity, attribute, format)
	if err != nil {
		return p, err
	}
	p.Start = start + 1
	p.Created, err = b.create(ctx, name, p.Start)
	return p, err
}

// Names lists the counter objects this package manages
func (b *Backend) Names(ctx context.Context) ([]string, error) {
	return b.store.List(ctx, Prefix)
}

// DropAll removes every managed counter object and clears the existence cache. It
// returns the names it dropped.
func (b *Backend) DropAll(ctx context.Context) ([]string, error) {
	names, err := b.Names(ctx)
	if err != nil {
		return nil, err
	}
	defer b.ClearCache()

	for i, name := range names {
		if err := b.store.Drop(ctx, name); err != nil {
			return names[:i], err
		}
	}
	return names, nil
}

// ClearCache forgets every confirmed object
func (b *Backend) ClearCache() {
	b.known.Clear()
}

func (b *Backend) exists(ctx context.Context, name string) (bool, error) {
	if _, ok := b.known.Load(name); ok {
		return true, nil
	}
	exists, err := b.store.Exists(ctx, name)
	if err != nil {
		return false, err
	}
	if exists {
		b.known.Store(name, struct{}{})
	}
	return exists, nil
}

// create reports whether this call made the object. Losing a creation race counts as
// success.
func (b *Backend) create(ctx context.Context, name string, start int64) (bool, error) {
	err := b.store.Create(ctx, name, start)
	switch {
	case err == nil:
		b.known.Store(name, struct{}{})
		return true, nil
	case errors.Is(err, repository.ErrCounterExists):
		b.known.Store(name, struct{}{})
		return false, nil
	default:
		return false, err
	}
}

func (b *Backend) reportNotFound(name string, entity sequence.Entity, attribute string, start int64) {
	metrics.ObserveNotFound(entity.Name(), attribute, b.strict)
	b.logger.WithFields(logrus.Fields{
		"event":         EventSequenceNotFound,
		"sequence_name": name,
		"entity":        entity.Name(),
		"attribute":     attribute,
		"start_value":   start,
		"strict":        b.strict,
	}).Warn("sequence not found")
}
