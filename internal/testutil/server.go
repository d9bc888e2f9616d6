package testutil

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"
	"time"
)

// MockAPIServer is an in-process email API. Every request is captured;
// unregistered routes answer 200 with an empty JSON object.
type MockAPIServer struct {
	*httptest.Server

	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	captures []Capture
	token    string
}

// NewMockServer starts a mock API server closed at test cleanup.
func NewMockServer(t *testing.T) *MockAPIServer {
	t.Helper()

	m := &MockAPIServer{handlers: make(map[string]http.HandlerFunc)}
	m.Server = httptest.NewServer(http.HandlerFunc(m.handle))
	t.Cleanup(m.Server.Close)
	return m
}

func (m *MockAPIServer) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))

	capture := newCapture(r, body)

	m.mu.Lock()
	m.captures = append(m.captures, capture)
	handler, ok := m.handlers[r.Method+":"+r.URL.Path]
	token := m.token
	m.mu.Unlock()

	switch {
	case token != "" && capture.Token != token:
		ReplyUnauthorized(w)
	case ok:
		handler(w, r)
	default:
		ReplyOK(w, map[string]any{})
	}
}

// RequireToken makes the server answer 401 to requests whose auth token
// differs from token.
func (m *MockAPIServer) RequireToken(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
}

// OnMethod registers a handler for method and path.
//
//	server.OnMethod("GET", "/getLists/", func(w http.ResponseWriter, r *http.Request) {
//	    testutil.ReplyOK(w, lists)
//	})
func (m *MockAPIServer) OnMethod(method, path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[method+":"+path] = handler
}

// On registers a handler for POST requests to path.
func (m *MockAPIServer) On(path string, handler http.HandlerFunc) {
	m.OnMethod(http.MethodPost, path, handler)
}

// Script answers successive POSTs to path with replies in order. The last
// reply repeats once the script runs out.
//
//	server.Script("/addSubscriber/",
//	    func(w http.ResponseWriter, _ *http.Request) { testutil.ReplyServerError(w, 503, "busy") },
//	    func(w http.ResponseWriter, _ *http.Request) { testutil.ReplySubscriberID(w, 7) },
//	)
func (m *MockAPIServer) Script(path string, replies ...http.HandlerFunc) {
	if len(replies) == 0 {
		return
	}
	var (
		mu   sync.Mutex
		next int
	)
	m.On(path, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		reply := replies[min(next, len(replies)-1)]
		next++
		mu.Unlock()
		reply(w, r)
	})
}

// Captures returns every captured request.
func (m *MockAPIServer) Captures() []Capture {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.captures)
}

// LastCapture returns the most recent request, or nil.
func (m *MockAPIServer) LastCapture() *Capture {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.captures) == 0 {
		return nil
	}
	c := m.captures[len(m.captures)-1]
	return &c
}

// CaptureCount returns the number of captured requests.
func (m *MockAPIServer) CaptureCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.captures)
}

// PathCount returns how many captured requests hit path.
func (m *MockAPIServer) PathCount(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.captures {
		if c.Path == path {
			n++
		}
	}
	return n
}

// TimeBetweenCaptures returns the time between the i-th and j-th
// requests, or 0 when either is missing.
func (m *MockAPIServer) TimeBetweenCaptures(i, j int) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i < 0 || j < 0 || i >= len(m.captures) || j >= len(m.captures) {
		return 0
	}
	return m.captures[j].Timestamp.Sub(m.captures[i].Timestamp)
}

// Reset clears captures, handlers and the required token.
func (m *MockAPIServer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.captures = nil
	m.handlers = make(map[string]http.HandlerFunc)
	m.token = ""
}

// BaseURL returns the server's base URL.
func (m *MockAPIServer) BaseURL() string {
	return m.Server.URL
}
