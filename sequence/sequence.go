package sequence

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/amirphl/demo-sequences/metrics"
	"github.com/amirphl/demo-sequences/tracking"
)

// Allocation sources reported to metrics
const (
	SourceMemory   = "memory"
	SourceDatabase = "database"
)

// Allocator hands out raw values from a store-native atomic counter.
type Allocator interface {
	NextVal(ctx context.Context, entity Entity, attribute string, format Formatter) (int64, error)
}

// Sequence produces successive formatted values for one entity attribute.
type Sequence struct {
	mu        sync.Mutex
	attribute string
	format    Formatter
	entity    Entity
	allocator Allocator

	// last is nil until the starting point has been computed
	last *int64
}

// New creates an unbound sequence. It counts in memory from 0 until bound to an entity
// through a Registry.
func New(attribute string, format Formatter) *Sequence {
	if format == nil {
		format = Identity
	}
	return &Sequence{
		attribute: attribute,
		format:    format,
	}
}

// Key returns the registry key of the sequence
func (s *Sequence) Key() Key {
	return KeyFor(s.entity, s.attribute)
}

// Attribute returns the attribute name
func (s *Sequence) Attribute() string {
	return s.attribute
}

// Entity returns the bound entity, or nil
func (s *Sequence) Entity() Entity {
	return s.entity
}

// Next advances the counter and returns the formatted value.
func (s *Sequence) Next(ctx context.Context) (any, error) {
	s.mu.Lock()
	raw, source, err := s.advance(ctx)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	value := s.format(raw)
	entityName := ""
	if s.entity != nil {
		entityName = s.entity.Name()
		tracking.Record(ctx, entityName, s.attribute, value)
	}
	metrics.ObserveAllocation(entityName, s.attribute, source)

	return value, nil
}

// Last returns the most recently emitted value without advancing. Before the first
// Next it is the formatted starting point.
func (s *Sequence) Last(ctx context.Context) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.lastValue(ctx)
	if err != nil {
		return nil, err
	}
	return s.format(raw), nil
}

// Reset forgets the counter so the next call recomputes the starting point from storage.
func (s *Sequence) Reset() {
	s.mu.Lock()
	s.last = nil
	s.mu.Unlock()
}

// advance must be called with s.mu held
func (s *Sequence) advance(ctx context.Context) (int64, string, error) {
	if s.allocator != nil && s.entity != nil {
		raw, err := s.allocator.NextVal(ctx, s.entity, s.attribute, s.format)
		if err != nil {
			return 0, SourceDatabase, err
		}
		// an allocator without a backing counter answers the same value until one is
		// provisioned; the raw counter still only moves forward
		if s.last != nil && raw <= *s.last {
			raw = *s.last + 1
		}
		s.last = &raw
		return raw, SourceDatabase, nil
	}

	raw, err := s.lastValue(ctx)
	if err != nil {
		return 0, SourceMemory, err
	}
	raw++
	s.last = &raw
	return raw, SourceMemory, nil
}

// lastValue must be called with s.mu held
func (s *Sequence) lastValue(ctx context.Context) (int64, error) {
	if s.last != nil {
		return *s.last, nil
	}

	start := time.Now()
	raw, err := StartingValue(ctx, s.entity, s.attribute, s.format)
	if err != nil {
		return 0, fmt.Errorf("failed to compute starting value for %s: %w", s.Key(), err)
	}
	if s.entity != nil {
		metrics.ObserveLowerBound(s.entity.Name(), s.attribute, time.Since(start))
	}

	s.last = &raw
	return raw, nil
}
