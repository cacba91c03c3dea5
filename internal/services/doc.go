// Package services defines shared utilities consumed by the pipeline stages
// and provider integrations.
//
// Key responsibilities:
//   - Context helpers that stamp capture IDs, stage names, worker IDs, and
//     correlation identifiers for logging and tracing.
//   - The PipelineError taxonomy (structural, provider, infrastructure,
//     path security) that tells the executor whether to degrade or abort and
//     tells the retry supervisor whether another attempt is allowed.
//   - Structured error markers plus the Wrap helper for everything outside
//     the pipeline proper.
//
// Use these helpers when wiring new stage logic so failure classification
// stays uniform across the executor, queue workers, and CLI.
package services
