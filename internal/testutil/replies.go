package testutil

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// ErrorBody is the error reply shape of the mock API.
type ErrorBody struct {
	Error      string `json:"error"`
	RetryAfter int    `json:"retry_after,omitempty"`
}

// ReplyOK writes a 200 reply with result encoded as JSON.
func ReplyOK(w http.ResponseWriter, result any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(result)
}

// ReplyError writes an error reply with the given status.
func ReplyError(w http.ResponseWriter, status int, message string) {
	replyError(w, status, ErrorBody{Error: message})
}

// ReplyRateLimit writes a 429 reply with retry_after in both JSON and HTTP header.
func ReplyRateLimit(w http.ResponseWriter, retryAfter int) {
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	replyError(w, http.StatusTooManyRequests, ErrorBody{
		Error:      "Too many requests",
		RetryAfter: retryAfter,
	})
}

// ReplyRateLimitHeaderOnly writes a 429 reply with retry_after ONLY in HTTP header.
// Useful for testing HTTP header fallback parsing.
func ReplyRateLimitHeaderOnly(w http.ResponseWriter, retryAfter int) {
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	replyError(w, http.StatusTooManyRequests, ErrorBody{Error: "Too many requests"})
}

// ReplyServerError writes a 5xx server error reply.
func ReplyServerError(w http.ResponseWriter, status int, message string) {
	ReplyError(w, status, message)
}

// ReplyBadRequest writes a 400 reply.
func ReplyBadRequest(w http.ResponseWriter, message string) {
	ReplyError(w, http.StatusBadRequest, message)
}

// ReplyUnauthorized writes a 401 reply.
func ReplyUnauthorized(w http.ResponseWriter) {
	ReplyError(w, http.StatusUnauthorized, "Invalid auth token")
}

// ReplyNotFound writes a 404 reply.
func ReplyNotFound(w http.ResponseWriter, message string) {
	ReplyError(w, http.StatusNotFound, message)
}

// ReplySubscriberID writes the reply of a successful addSubscriber call.
func ReplySubscriberID(w http.ResponseWriter, id int) {
	ReplyOK(w, map[string]any{"subscriber_id": id})
}

func replyError(w http.ResponseWriter, status int, body ErrorBody) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
