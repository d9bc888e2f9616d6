package invoker

import "github.com/prilive-com/mailshield/internal/resilience"

// Circuit breaker types shared with the resilience layer.
type (
	State        = resilience.State
	BreakerStats = resilience.BreakerStats
	Registry     = resilience.Registry
	Sleeper      = resilience.Sleeper
	JitterSource = resilience.JitterSource
)

const (
	StateClosed   = resilience.StateClosed
	StateHalfOpen = resilience.StateHalfOpen
	StateOpen     = resilience.StateOpen
)

// NewRegistry creates a breaker registry configured from cfg. Pass it to
// several invokers with WithRegistry to share breakers per endpoint.
func NewRegistry(cfg Config) *Registry {
	return resilience.NewRegistry(cfg.BreakerConfig(""))
}
