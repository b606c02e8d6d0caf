package job

import (
	"fmt"
	"sync"
)

// Registry maps job types to the factories able to rehydrate them.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register binds jobType to f, replacing any earlier binding.
func (r *Registry) Register(jobType string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[jobType] = f
}

// Rehydrate builds an executable job from rec.
func (r *Registry) Rehydrate(rec Record) (Job, error) {
	r.mu.RLock()
	f, ok := r.factories[rec.Type]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownJobType, rec.Type)
	}
	return f.Rehydrate(rec)
}
