package sequence

import (
	"context"
	"sync"
)

// Registry owns every Sequence of a process or test run. Construct one at startup,
// pass it to call sites, and ResetAll before each independent generation episode.
type Registry struct {
	mu        sync.RWMutex
	sequences map[Key]*Sequence
	allocator Allocator
}

// RegistryOption configures a Registry
type RegistryOption func(*Registry)

// WithAllocator routes bound sequences through a store-native counter.
func WithAllocator(allocator Allocator) RegistryOption {
	return func(r *Registry) {
		r.allocator = allocator
	}
}

// NewRegistry creates an empty registry
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		sequences: make(map[Key]*Sequence),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Define registers a sequence with a formatter for an entity attribute. The first
// definition of a key wins; later calls return the registered sequence unchanged.
// A nil entity registers an unbound sequence under the attribute alone; it counts in
// memory and never touches storage.
func (r *Registry) Define(entity Entity, attribute string, format Formatter) *Sequence {
	key := KeyFor(entity, attribute)

	r.mu.RLock()
	seq, ok := r.sequences[key]
	r.mu.RUnlock()
	if ok {
		return seq
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if seq, ok := r.sequences[key]; ok {
		return seq
	}

	seq = New(attribute, format)
	seq.entity = entity
	seq.allocator = r.allocator
	r.sequences[key] = seq
	return seq
}

// Lookup returns the sequence for an entity attribute, creating one with the identity
// formatter on first use.
func (r *Registry) Lookup(entity Entity, attribute string) *Sequence {
	return r.Define(entity, attribute, Identity)
}

// Get returns a registered sequence without creating it
func (r *Registry) Get(key Key) (*Sequence, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seq, ok := r.sequences[key]
	return seq, ok
}

// Next returns the next value for an entity attribute.
func (r *Registry) Next(ctx context.Context, entity Entity, attribute string) (any, error) {
	return r.Lookup(entity, attribute).Next(ctx)
}

// Last returns the last emitted value for an entity attribute without advancing.
func (r *Registry) Last(ctx context.Context, entity Entity, attribute string) (any, error) {
	return r.Lookup(entity, attribute).Last(ctx)
}

// ResetAll clears every counter so the next call re-derives its starting point from
// current storage. Keys and formatters are kept.
func (r *Registry) ResetAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, seq := range r.sequences {
		seq.Reset()
	}
}

// Clear drops every registered sequence
func (r *Registry) Clear() {
	r.mu.Lock()
	r.sequences = make(map[Key]*Sequence)
	r.mu.Unlock()
}

// Len returns the number of registered sequences
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sequences)
}
