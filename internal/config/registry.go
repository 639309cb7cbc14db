package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ProSamhacker/hospitalmanagement/pkg/provider/ai"
)

// ErrProviderNotRegistered is returned by [Registry.CreateAI] when no factory
// has been registered under the requested backend name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps AI backend names to their constructor functions. It is safe
// for concurrent use.
type Registry struct {
	mu sync.RWMutex
	ai map[string]func(ProviderEntry) (ai.Service, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		ai: make(map[string]func(ProviderEntry) (ai.Service, error)),
	}
}

// RegisterAI registers an AI backend factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterAI(name string, factory func(ProviderEntry) (ai.Service, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ai[name] = factory
}

// CreateAI constructs the AI backend selected by entry.Name.
// Returns [ErrProviderNotRegistered] when the name is unknown.
func (r *Registry) CreateAI(entry ProviderEntry) (ai.Service, error) {
	r.mu.RLock()
	factory, ok := r.ai[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: ai backend %q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// Names returns all registered backend names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.ai))
	for name := range r.ai {
		names = append(names, name)
	}
	return names
}
