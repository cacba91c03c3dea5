// Package dispatch routes ended captures to processing.
//
// A Dispatcher probes the Shadow broker over its Unix socket. When the broker
// answers, the capture is enqueued as a job and the queued retry policy
// applies. When it does not, the pipeline runs once in a local goroutine that
// outlives the caller's context, and the degraded mode is logged as a warning.
package dispatch
