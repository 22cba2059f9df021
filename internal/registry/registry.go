// Package registry maps model ids to registered model capabilities.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/modelarena/modelarena/internal/provider"
)

var (
	// ErrUnknownModel is returned when a model id has not been registered.
	ErrUnknownModel = errors.New("unknown model")
	// ErrDuplicateModel is returned when a model id is already registered.
	// Registration never overwrites an existing entry.
	ErrDuplicateModel = errors.New("model already registered")
)

// Info describes a registered model.
type Info struct {
	ModelID  string           `json:"model_id"`
	Provider string           `json:"provider"`
	Pricing  provider.Pricing `json:"pricing"`
}

// Registry holds registered models for the process lifetime. It is
// constructed explicitly and passed to consumers; entries are immutable
// once registered.
type Registry struct {
	mu     sync.RWMutex
	models map[string]provider.Model
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{models: make(map[string]provider.Model)}
}

// Register stores a model by its id.
func (r *Registry) Register(m provider.Model) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.models[m.ID()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateModel, m.ID())
	}
	r.models[m.ID()] = m
	return nil
}

// Get returns the model registered under id.
func (r *Registry) Get(id string) (provider.Model, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.models[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, id)
	}
	return m, nil
}

// IDs returns all registered model ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.models))
	for id := range r.models {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Info returns descriptive metadata for a registered model.
func (r *Registry) Info(id string) (*Info, error) {
	m, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	return &Info{ModelID: m.ID(), Provider: m.Provider(), Pricing: m.Pricing()}, nil
}
