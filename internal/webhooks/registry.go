// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package webhooks

import (
	"fmt"
	"sort"
	"sync"

	"github.com/tomtom215/taskgraph/internal/logging"
)

// Factory constructs a provider. It is called at most once per name
// unless it fails.
type Factory func() (Provider, error)

// Registry maps provider names to factories and caches constructed providers.
type Registry struct {
	mu        sync.Mutex
	factories map[string]Factory
	instances map[string]Provider
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		instances: make(map[string]Provider),
	}
}

// Register adds a factory under name. Registering a name again replaces the
// factory and drops any cached instance.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		logging.Warn().Str("provider", name).Msg("Webhook provider re-registered, replacing factory")
	}
	r.factories[name] = factory
	delete(r.instances, name)
}

// Get returns the provider for name, constructing it on first use.
// An unregistered name yields *ProviderNotFoundError.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getLocked(name)
}

func (r *Registry) getLocked(name string) (Provider, error) {
	if p, ok := r.instances[name]; ok {
		return p, nil
	}

	factory, ok := r.factories[name]
	if !ok {
		return nil, NewProviderNotFoundError(name)
	}

	p, err := factory()
	if err != nil {
		return nil, fmt.Errorf("failed to construct webhook provider %s: %w", name, err)
	}
	r.instances[name] = p
	logging.Debug().Str("provider", name).Msg("Webhook provider initialized")
	return p, nil
}

// ListRegistered returns every registered name, sorted.
func (r *Registry) ListRegistered() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListEnabled returns the sorted names of providers that construct
// successfully and report Enabled.
func (r *Registry) ListEnabled() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		p, err := r.getLocked(name)
		if err != nil {
			logging.Error().Err(err).Str("provider", name).Msg("Webhook provider unavailable")
			continue
		}
		if p.Enabled() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Stats returns processing counters for every enabled provider.
func (r *Registry) Stats() map[string]ProviderStats {
	out := make(map[string]ProviderStats)
	for _, name := range r.ListEnabled() {
		p, err := r.Get(name)
		if err != nil {
			continue
		}
		out[name] = p.Stats()
	}
	return out
}
