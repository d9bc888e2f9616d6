// Package mailshield provides a resilience layer for remote email and
// marketing APIs.
//
// mailshield classifies every failure, retries the ones worth retrying with
// exponential backoff and jitter, and stops calling an endpoint that keeps
// failing until it has had time to recover.
//
// # Quick Start
//
//	client, err := mailshield.New("https://acumbamail.com/api/1",
//	    mailshield.WithAuthToken(os.Getenv("ACUMBAMAIL_AUTH_TOKEN")),
//	    mailshield.WithRetries(5),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	reply, err := client.Call(ctx, httpop.Request{Name: "getLists", Path: "/getLists/"})
//	if f := fault.As(err); f != nil {
//	    log.Printf("kind=%s attempts=%d", f.Kind, f.Attempts)
//	}
//
// # Bulk operations
//
//	res := client.Bulk(ctx, requests)
//	log.Printf("ok=%d failed=%d", len(res.Succeeded), len(res.Failed))
//
// # Building blocks
//
// Any Go function can run through the same machinery without HTTP:
//
//	import "github.com/prilive-com/mailshield/invoker"
//	v, err := invoker.Do(ctx, inv, func(ctx context.Context) (T, error) { ... })
//
// # Features
//
//   - Closed failure taxonomy with a pluggable classifier
//   - Retry with exponential backoff and crypto jitter, honoring Retry-After
//   - Per-endpoint circuit breaker with sony/gobreaker
//   - Bulk runner with pacing, bounded concurrency and full accounting
//   - Token auto-redaction in logs and errors
//   - Structured logging with slog
//   - Prometheus metrics
package mailshield
