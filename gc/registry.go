// ABOUTME: Registry of structure type descriptors with interned identities
// ABOUTME: Modules register one canonical descriptor per type, usually from init

package gc

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// lastID is shared by all registries so identities never collide.
var lastID atomic.Uint32

// Registry holds registered descriptors.
type Registry struct {
	mu    sync.RWMutex
	byID  map[ID]*Descriptor
	order []*Descriptor
	names map[string][]*Descriptor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:  make(map[ID]*Descriptor),
		names: make(map[string][]*Descriptor),
	}
}

var registry = NewRegistry()

// Default returns the process-wide registry.
func Default() *Registry { return registry }

// Register adds a descriptor to the process-wide registry.
func Register(spec Spec) *Descriptor { return registry.Register(spec) }

// Register validates spec and publishes its descriptor. A malformed spec is a
// programming error and panics.
func (r *Registry) Register(spec Spec) *Descriptor {
	d := newDescriptor(spec)
	d.id = ID(lastID.Add(1))

	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[d.id] = d
	r.order = append(r.order, d)
	r.names[d.name] = append(r.names[d.name], d)
	return d
}

// Lookup returns the descriptor with the given identity, or nil.
func (r *Registry) Lookup(id ID) *Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byID[id]
}

// Named returns every descriptor registered under name.
func (r *Registry) Named(name string) []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Descriptor(nil), r.names[name]...)
}

// Unique resolves a name that must identify exactly one descriptor.
func (r *Registry) Unique(name string) (*Descriptor, error) {
	ds := r.Named(name)
	switch len(ds) {
	case 0:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, name)
	case 1:
		return ds[0], nil
	}
	return nil, fmt.Errorf("%w: %q has %d descriptors", ErrAmbiguousType, name, len(ds))
}

// Entries returns the descriptors in registration order.
func (r *Registry) Entries() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Descriptor(nil), r.order...)
}

// Count returns the number of registered descriptors.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
