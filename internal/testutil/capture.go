package testutil

import (
	"encoding/json"
	"net/http"
	"net/url"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tokenParam is the query parameter the mock server reads the token from.
const tokenParam = "auth_token"

// Capture is one request received by the mock API server.
type Capture struct {
	Method      string
	Path        string
	Operation   string // last path segment, e.g. "addSubscriber"
	Query       url.Values
	Token       string
	Headers     http.Header
	Body        []byte
	ContentType string
	Timestamp   time.Time
}

func newCapture(r *http.Request, body []byte) Capture {
	query := r.URL.Query()
	return Capture{
		Method:      r.Method,
		Path:        r.URL.Path,
		Operation:   path.Base(r.URL.Path),
		Query:       query,
		Token:       query.Get(tokenParam),
		Headers:     r.Header.Clone(),
		Body:        body,
		ContentType: r.Header.Get("Content-Type"),
		Timestamp:   time.Now(),
	}
}

// AssertPath verifies the request path.
func (c *Capture) AssertPath(t *testing.T, expected string) {
	t.Helper()
	assert.Equal(t, expected, c.Path, "unexpected path")
}

// AssertMethod verifies the HTTP method.
func (c *Capture) AssertMethod(t *testing.T, expected string) {
	t.Helper()
	assert.Equal(t, expected, c.Method, "unexpected method")
}

// AssertContentType verifies the Content-Type header contains expected.
func (c *Capture) AssertContentType(t *testing.T, expected string) {
	t.Helper()
	assert.Contains(t, c.ContentType, expected, "unexpected content-type")
}

// AssertHeader verifies a header value.
func (c *Capture) AssertHeader(t *testing.T, key, expected string) {
	t.Helper()
	assert.Equal(t, expected, c.Headers.Get(key), "unexpected header: "+key)
}

// AssertQuery verifies a query parameter value.
func (c *Capture) AssertQuery(t *testing.T, key, expected string) {
	t.Helper()
	if !c.Query.Has(key) {
		t.Errorf("query parameter %q not found", key)
		return
	}
	assert.Equal(t, expected, c.Query.Get(key), "unexpected query parameter: "+key)
}

// AssertToken verifies the auth token the request carried.
func (c *Capture) AssertToken(t *testing.T, expected string) {
	t.Helper()
	assert.Equal(t, expected, c.Token, "unexpected auth token")
}

// AssertJSONField verifies a top-level field of the JSON body.
func (c *Capture) AssertJSONField(t *testing.T, field string, expected any) {
	t.Helper()
	body := c.bodyMap(t)
	assert.Equal(t, expected, body[field], "unexpected value for field: "+field)
}

// AssertMergeField verifies a subscriber merge field such as "email".
func (c *Capture) AssertMergeField(t *testing.T, field, expected string) {
	t.Helper()
	merge, ok := c.bodyMap(t)["merge_fields"].(map[string]any)
	require.True(t, ok, "body has no merge_fields object")
	assert.Equal(t, expected, merge[field], "unexpected merge field: "+field)
}

// Decode unmarshals the JSON body into target.
func (c *Capture) Decode(t *testing.T, target any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(c.Body, target), "failed to decode JSON body")
}

func (c *Capture) bodyMap(t *testing.T) map[string]any {
	t.Helper()
	var m map[string]any
	c.Decode(t, &m)
	return m
}
