package invoker

import (
	"slices"
	"sync"

	"github.com/prilive-com/mailshield/fault"
	"github.com/prilive-com/mailshield/internal/resilience"
)

// Pool hands out one Invoker per endpoint. All invokers share the pool's
// configuration, options and breaker registry.
type Pool struct {
	cfg      Config
	opts     []Option
	registry *Registry

	mu       sync.RWMutex
	invokers map[string]*Invoker
}

// NewPool creates a pool. cfg is validated.
func NewPool(cfg Config, opts ...Option) (*Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Resolve the options once to build the shared registry.
	template := &Invoker{cfg: cfg}
	for _, opt := range opts {
		opt(template)
	}
	template.applyDefaults()

	registry := template.registry
	if registry == nil {
		registry = resilience.NewRegistry(template.breakerTemplate())
	}

	return &Pool{
		cfg:      cfg,
		opts:     append(slices.Clone(opts), WithRegistry(registry)),
		registry: registry,
		invokers: make(map[string]*Invoker),
	}, nil
}

// Get returns the invoker for endpoint, creating it on first use.
func (p *Pool) Get(endpoint string) (*Invoker, error) {
	p.mu.RLock()
	inv, exists := p.invokers[endpoint]
	p.mu.RUnlock()

	if exists {
		return inv, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Double-check after acquiring write lock
	if inv, exists = p.invokers[endpoint]; exists {
		return inv, nil
	}

	inv, err := New(endpoint, p.cfg, p.opts...)
	if err != nil {
		return nil, err
	}
	p.invokers[endpoint] = inv
	return inv, nil
}

// Config returns the pool configuration.
func (p *Pool) Config() Config { return p.cfg }

// Registry returns the shared breaker registry.
func (p *Pool) Registry() *Registry { return p.registry }

// Endpoints returns the endpoints served so far, sorted.
func (p *Pool) Endpoints() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, 0, len(p.invokers))
	for name := range p.invokers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ErrorSummary returns the failure counts of every endpoint.
func (p *Pool) ErrorSummary() map[string]fault.Summary {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make(map[string]fault.Summary, len(p.invokers))
	for name, inv := range p.invokers {
		out[name] = inv.ErrorSummary()
	}
	return out
}
