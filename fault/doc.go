// Package fault defines the failure taxonomy shared by every mailshield
// package and the default classifier that maps raw errors onto it.
//
// # Taxonomy
//
// Every raw failure maps to exactly one Kind:
//
//	fault.Transient    // timeouts, connection resets (retryable)
//	fault.RateLimited  // HTTP 429 or a rate-limit message (retryable, carries RetryAfter)
//	fault.Auth         // 401/403 (never retried)
//	fault.Validation   // 400/404/422 and ValidationError (never retried)
//	fault.ServerError  // 5xx (retryable)
//	fault.Unknown      // everything else, including caller cancellation
//
// Calls the circuit breaker refuses are reported as Unknown failures whose
// IsCircuitOpen method returns true.
//
// # Classification
//
//	f := fault.Classify(err)
//	if f.Retryable {
//	    // retry after f.RetryAfter or local backoff
//	}
//
// API client code reports remote rejections with RemoteError, usually via
// FromResponse:
//
//	if err := fault.FromResponse("addSubscriber", resp, body); err != nil {
//	    return nil, err
//	}
package fault
