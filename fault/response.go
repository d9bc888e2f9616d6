package fault

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// maxMessageLen bounds how much of a reply body ends up in an error message.
const maxMessageLen = 512

// remoteEnvelope covers the error shapes email APIs commonly reply with.
type remoteEnvelope struct {
	Error       string `json:"error"`
	Message     string `json:"message"`
	Description string `json:"description"`
	RetryAfter  int    `json:"retry_after"`
}

// FromResponse converts a non-2xx HTTP reply into a *RemoteError.
// Returns nil for 2xx replies. body is the already-read reply body.
func FromResponse(operation string, resp *http.Response, body []byte) error {
	if resp == nil {
		return nil
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var env remoteEnvelope
	_ = json.Unmarshal(body, &env)

	message := firstNonEmpty(env.Error, env.Message, env.Description)
	if message == "" {
		message = strings.TrimSpace(string(body))
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}
	message = truncate(message, maxMessageLen)

	// Primary source: explicit body parameter; fallback: HTTP header.
	var retryAfter time.Duration
	if env.RetryAfter > 0 {
		retryAfter = time.Duration(env.RetryAfter) * time.Second
	} else {
		retryAfter = ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
	}

	if retryAfter > 0 {
		return NewRemoteErrorWithRetry(operation, resp.StatusCode, message, retryAfter)
	}
	return NewRemoteError(operation, resp.StatusCode, message)
}

// ParseRetryAfter reads a Retry-After header value given either as delay
// seconds or as an HTTP-date. Returns 0 when absent, malformed or in the past.
func ParseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds <= 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

// truncate cuts s to at most n bytes on a rune boundary and marks the cut.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
