package mailshield

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/prilive-com/mailshield/bulk"
	"github.com/prilive-com/mailshield/fault"
	"github.com/prilive-com/mailshield/httpop"
	"github.com/prilive-com/mailshield/invoker"
	"github.com/prilive-com/mailshield/metrics"
)

// Client is the unified resilient API client combining the HTTP operation
// builder, the invoker pool and the bulk runner.
type Client struct {
	endpoint string
	logger   *slog.Logger
	api      *httpop.Client
	pool     *invoker.Pool
	inv      *invoker.Invoker
	metrics  *metrics.Collector
}

type clientConfig struct {
	endpoint   string
	token      string
	tokenParam string
	resilience invoker.Config
	httpClient *http.Client
	registerer prometheus.Registerer
	logger     *slog.Logger
	invokerOps []invoker.Option
}

// Option configures the Client.
type Option func(*clientConfig)

// WithEndpoint names the endpoint whose circuit breaker the client uses.
// Defaults to the base URL's host.
func WithEndpoint(name string) Option {
	return func(c *clientConfig) {
		c.endpoint = name
	}
}

// WithAuthToken sets the API token sent with every request. The token is
// redacted from every error and log line.
func WithAuthToken(token string) Option {
	return func(c *clientConfig) {
		c.token = token
	}
}

// WithTokenParam changes the query parameter that carries the token.
func WithTokenParam(name string) Option {
	return func(c *clientConfig) {
		c.tokenParam = name
	}
}

// WithConfig replaces the resilience configuration.
func WithConfig(cfg invoker.Config) Option {
	return func(c *clientConfig) {
		c.resilience = cfg
	}
}

// WithRetries sets the total number of attempts per call.
func WithRetries(maxAttempts int) Option {
	return func(c *clientConfig) {
		c.resilience.MaxAttempts = maxAttempts
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}

// WithMetrics registers Prometheus metrics with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *clientConfig) {
		c.registerer = reg
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// WithInvokerOptions passes extra options to the underlying invokers.
func WithInvokerOptions(opts ...invoker.Option) Option {
	return func(c *clientConfig) {
		c.invokerOps = append(c.invokerOps, opts...)
	}
}

// New creates a client for the API at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	cfg := clientConfig{
		resilience: invoker.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	apiOpts := []httpop.Option{httpop.WithAuthToken(cfg.token)}
	if cfg.tokenParam != "" {
		apiOpts = append(apiOpts, httpop.WithTokenParam(cfg.tokenParam))
	}
	if cfg.httpClient != nil {
		apiOpts = append(apiOpts, httpop.WithHTTPClient(cfg.httpClient))
	}
	api, err := httpop.New(baseURL, apiOpts...)
	if err != nil {
		return nil, err
	}

	endpoint := cfg.endpoint
	if endpoint == "" {
		u, _ := url.Parse(baseURL) // already validated by httpop.New
		endpoint = u.Host
	}

	invOpts := []invoker.Option{
		invoker.WithLogger(logger),
		invoker.WithRedactedSecrets(cfg.token),
	}
	var collector *metrics.Collector
	if cfg.registerer != nil {
		collector = metrics.New(cfg.registerer)
		invOpts = append(invOpts, invoker.WithObserver(collector))
	}
	invOpts = append(invOpts, cfg.invokerOps...)

	pool, err := invoker.NewPool(cfg.resilience, invOpts...)
	if err != nil {
		return nil, err
	}
	inv, err := pool.Get(endpoint)
	if err != nil {
		return nil, err
	}

	return &Client{
		endpoint: endpoint,
		logger:   logger,
		api:      api,
		pool:     pool,
		inv:      inv,
		metrics:  collector,
	}, nil
}

// Call performs req with retries and circuit breaking. The returned error
// is always a *fault.Failure.
func (c *Client) Call(ctx context.Context, req httpop.Request) (*httpop.Reply, error) {
	return invoker.Do(ctx, c.inv, c.api.Operation(req))
}

// CallWithFallback performs req and hands a final failure to fallback.
func (c *Client) CallWithFallback(ctx context.Context, req httpop.Request, fallback invoker.Fallback[*httpop.Reply]) (*httpop.Reply, error) {
	return invoker.DoWithFallback(ctx, c.inv, c.api.Operation(req), fallback)
}

// Bulk performs every request through the shared circuit breaker and
// accounts for each one.
func (c *Client) Bulk(ctx context.Context, reqs []httpop.Request, opts ...bulk.Option) *bulk.Result[*httpop.Reply] {
	if c.metrics != nil {
		opts = append([]bulk.Option{bulk.WithRecorder(c.metrics)}, opts...)
	}
	return bulk.Run(ctx, c.inv, reqs, c.api.Operation, opts...)
}

// Decode performs req and decodes the JSON reply into T.
func Decode[T any](ctx context.Context, c *Client, req httpop.Request) (T, error) {
	return invoker.Do(ctx, c.inv, httpop.Call[T](c.api, req))
}

// Endpoint returns the endpoint identity used for circuit breaking.
func (c *Client) Endpoint() string { return c.endpoint }

// Invoker returns the client's invoker.
func (c *Client) Invoker() *invoker.Invoker { return c.inv }

// Pool returns the invoker pool, for calling other endpoints through the
// same configuration.
func (c *Client) Pool() *invoker.Pool { return c.pool }

// API returns the underlying HTTP operation builder.
func (c *Client) API() *httpop.Client { return c.api }

// State returns the endpoint's circuit breaker state.
func (c *Client) State() invoker.State { return c.inv.State() }

// ErrorSummary returns per-kind counts of the failures returned so far.
func (c *Client) ErrorSummary() fault.Summary { return c.inv.ErrorSummary() }
