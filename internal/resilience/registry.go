package resilience

import (
	"slices"
	"sync"
)

// Registry owns one Breaker per endpoint identity. Breakers live as long
// as the registry.
type Registry struct {
	template BreakerConfig

	mu       sync.RWMutex
	breakers map[string]*Breaker
}

// NewRegistry creates a registry whose breakers are built from template.
// The template's Name is replaced by the endpoint identity.
func NewRegistry(template BreakerConfig) *Registry {
	return &Registry{
		template: template,
		breakers: make(map[string]*Breaker),
	}
}

// Get returns the breaker for endpoint, creating it on first use.
func (r *Registry) Get(endpoint string) *Breaker {
	r.mu.RLock()
	b, exists := r.breakers[endpoint]
	r.mu.RUnlock()

	if exists {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if b, exists = r.breakers[endpoint]; exists {
		return b
	}

	cfg := r.template
	cfg.Name = endpoint
	b = NewBreaker(cfg)
	r.breakers[endpoint] = b
	return b
}

// Endpoints returns the identities of all breakers created so far, sorted.
func (r *Registry) Endpoints() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.breakers))
	for name := range r.breakers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Snapshot returns the stats of every breaker keyed by endpoint.
func (r *Registry) Snapshot() map[string]BreakerStats {
	r.mu.RLock()
	breakers := make(map[string]*Breaker, len(r.breakers))
	for name, b := range r.breakers {
		breakers[name] = b
	}
	r.mu.RUnlock()

	out := make(map[string]BreakerStats, len(breakers))
	for name, b := range breakers {
		out[name] = b.Stats()
	}
	return out
}
