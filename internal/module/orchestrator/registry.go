package orchestrator

import (
	"github.com/mediaforge/server/internal/domain/generation"
	"github.com/mediaforge/server/internal/shared/logger"
)

// Registry is the process-wide catalog of providers and the capabilities
// each exposes. It is built once at process start from the fixed list of
// built-in adapters and read-only afterwards.
type Registry struct {
	order    []string
	adapters map[string]Adapter
}

// BuildRegistry builds a registry from an explicit adapter list.
// Registering a duplicate provider id overwrites the earlier entry and
// logs a warning.
func BuildRegistry(adapters []Adapter, log *logger.Logger) *Registry {
	r := &Registry{
		adapters: make(map[string]Adapter, len(adapters)),
	}
	for _, a := range adapters {
		id := a.Descriptor().ID
		if _, exists := r.adapters[id]; exists {
			log.Warn("provider re-registered, overwriting previous adapter", "provider", id)
		} else {
			r.order = append(r.order, id)
		}
		r.adapters[id] = a
	}
	return r
}

// Get returns the adapter registered under the given provider id.
func (r *Registry) Get(id string) (Adapter, bool) {
	a, ok := r.adapters[id]
	return a, ok
}

// List returns all registered providers in registration order.
func (r *Registry) List() []generation.ProviderDescriptor {
	out := make([]generation.ProviderDescriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.adapters[id].Descriptor())
	}
	return out
}

// IDs returns all registered provider ids in registration order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// FindProviderForModel scans all providers' model lists and returns the
// adapter owning the given model id. First match wins when a model id
// exists under more than one provider.
func (r *Registry) FindProviderForModel(modelID string) (Adapter, bool) {
	for _, id := range r.order {
		a := r.adapters[id]
		desc := a.Descriptor()
		if _, ok := desc.Model(modelID); ok {
			return a, true
		}
	}
	return nil, false
}
