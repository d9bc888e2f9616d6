package httpop

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/prilive-com/mailshield/fault"
	"github.com/prilive-com/mailshield/internal/httpclient"
	"github.com/prilive-com/mailshield/internal/scrub"
	"github.com/prilive-com/mailshield/internal/validate"
	"github.com/prilive-com/mailshield/invoker"
)

// DefaultTokenParam is the query parameter that carries the auth token.
const DefaultTokenParam = "auth_token"

const defaultMaxResponseSize = 10 << 20 // 10MB

// Client turns Requests into single HTTP exchanges against one base URL.
// It performs no retries; wrap its operations with invoker.Do.
type Client struct {
	baseURL    *url.URL
	token      scrub.Secret
	tokenParam string
	httpClient *http.Client
	maxBody    int64
	headers    http.Header
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithAuthToken sends token as the auth_token query parameter.
func WithAuthToken(token string) Option {
	return func(c *Client) {
		c.token = scrub.Secret(token)
	}
}

// WithTokenParam changes the query parameter that carries the token.
func WithTokenParam(name string) Option {
	return func(c *Client) {
		c.tokenParam = name
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers.Add(key, value)
	}
}

// WithMaxResponseSize bounds how much of a reply body is read.
func WithMaxResponseSize(n int64) Option {
	return func(c *Client) {
		c.maxBody = n
	}
}

// New creates a client for baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if err := validate.URL("base_url", baseURL); err != nil {
		return nil, err
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fault.NewConfigError("base_url", err.Error())
	}

	c := &Client{
		baseURL:    u,
		tokenParam: DefaultTokenParam,
		maxBody:    defaultMaxResponseSize,
		headers:    make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = httpclient.NewDefault()
	}
	if c.maxBody <= 0 {
		c.maxBody = defaultMaxResponseSize
	}
	return c, nil
}

// Token returns the configured auth token, for redaction.
func (c *Client) Token() scrub.Secret { return c.token }

// Operation returns req as an invoker operation.
func (c *Client) Operation(req Request) invoker.Operation[*Reply] {
	return func(ctx context.Context) (*Reply, error) {
		return c.Do(ctx, req)
	}
}

// Do performs one HTTP exchange. Non-2xx replies are returned as
// *fault.RemoteError; transport errors keep their cause with the token
// removed from the message.
func (c *Client) Do(ctx context.Context, req Request) (*Reply, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := httpclient.DoJSON(ctx, c.httpClient, httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", req.Name, scrub.Error(err, c.token.Value()))
	}
	defer resp.Body.Close()

	body, err := httpclient.ReadLimited(resp.Body, c.maxBody)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read response: %w", req.Name, err)
	}

	if err := fault.FromResponse(req.Name, resp, body); err != nil {
		return nil, err
	}

	return &Reply{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

func (c *Client) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	u := c.baseURL.JoinPath(req.Path)
	q := u.Query()
	for k, v := range req.Query {
		q.Set(k, v)
	}
	if !c.token.IsEmpty() {
		q.Set(c.tokenParam, c.token.Value())
	}
	u.RawQuery = q.Encode()

	var body io.Reader = http.NoBody
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fault.NewValidationError("body", fmt.Sprintf("failed to marshal: %v", err))
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method(), u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", req.Name, scrub.Error(err, c.token.Value()))
	}
	for k, vs := range c.headers {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	return httpReq, nil
}
