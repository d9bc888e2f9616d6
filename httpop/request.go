package httpop

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/prilive-com/mailshield/fault"
	"github.com/prilive-com/mailshield/invoker"
)

// Request describes one remote API call.
type Request struct {
	// Name identifies the remote operation in errors and logs, e.g. "getLists".
	Name   string            `yaml:"name" json:"name"`
	Method string            `yaml:"method" json:"method,omitempty"` // default POST
	Path   string            `yaml:"path" json:"path"`
	Query  map[string]string `yaml:"query" json:"query,omitempty"`
	Body   any               `yaml:"body" json:"body,omitempty"`
}

// Validate checks the request before it is sent.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fault.NewValidationError("name", "is required")
	}
	if strings.TrimSpace(r.Path) == "" {
		return fault.NewValidationError("path", "is required")
	}
	switch r.method() {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return fault.NewValidationError("method", fmt.Sprintf("unsupported method %q", r.Method))
	}
	return nil
}

func (r Request) method() string {
	if r.Method == "" {
		return http.MethodPost
	}
	return strings.ToUpper(r.Method)
}

// Reply is a successful HTTP reply.
type Reply struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the reply body into v.
func (r *Reply) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// Call returns req as an operation that decodes the JSON reply into T.
func Call[T any](c *Client, req Request) invoker.Operation[T] {
	return func(ctx context.Context) (T, error) {
		var out T
		reply, err := c.Do(ctx, req)
		if err != nil {
			return out, err
		}
		if err := reply.Decode(&out); err != nil {
			return out, fmt.Errorf("%s: %w", req.Name, err)
		}
		return out, nil
	}
}
