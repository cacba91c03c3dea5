// Package llm provides an OpenAI-compatible chat client for strict-JSON
// completions.
//
// The analysis orchestrator is the only production caller. It sends a system
// prompt describing the expected schema and a user prompt carrying the
// transcript, then decodes the reply with DecodeLLMJSON. Preflight uses
// HealthCheck with a single attempt.
//
// Retries run on cenkalti/backoff: HTTP 408, 429 and 5xx, empty content and
// network timeouts back off exponentially (1s doubling to 10s, five attempts
// by default). A Retry-After header replaces the next delay. Other statuses
// and cancellation stop immediately.
package llm
