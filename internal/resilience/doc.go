// Package resilience holds the retry policy, the per-endpoint circuit
// breaker and the pacer used by the invoker and bulk packages.
//
// Circuit breaking is built on sony/gobreaker and pacing on
// golang.org/x/time/rate. Nothing here performs remote calls itself.
package resilience
