package engine

import (
	"sync"

	"github.com/veracity-group/truthscan-cli/internal/model"
)

// Registry holds the configured adapters, one per provider.
type Registry struct {
	mu       sync.RWMutex
	adapters map[model.Engine]Adapter
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[model.Engine]Adapter),
	}
}

// Register adds an adapter, replacing any previous one for the same engine.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Engine()] = a
}

// Get returns the adapter for an engine, or nil if none is registered.
func (r *Registry) Get(eng model.Engine) Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.adapters[eng]
}

// All returns the registered adapters in the stable AllEngines order.
func (r *Registry) All() []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Adapter, 0, len(r.adapters))
	for _, eng := range model.AllEngines {
		if a, ok := r.adapters[eng]; ok {
			out = append(out, a)
		}
	}
	return out
}
