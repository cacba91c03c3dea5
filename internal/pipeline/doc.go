// Package pipeline drives one capture from PROCESSING to READY_FOR_REVIEW or
// FAILED.
//
// Execute loads the capture, leases it, transcribes the raw media, builds the
// speaker segments, runs the analysis orchestrator, and replaces the stored
// artifacts in one transaction. Provider failures are isolated: a failed
// transcription leaves a placeholder transcript and a failed analysis stores
// placeholder summary fields, and the capture still reaches READY_FOR_REVIEW.
// Missing media and media outside the storage root fail the capture for good.
// Anything else forces FAILED and comes back as an Infrastructure error the
// caller may retry.
package pipeline
