// Package queue persists broker jobs in SQLite and exposes helpers for
// driving their lifecycle.
//
// A job asks the daemon to run the processing pipeline for one capture. The
// Store handles enqueueing, claiming the next runnable job for a worker,
// heartbeat tracking, stale-job recovery, and recording the outcome of each
// attempt (succeeded, retrying with a run_after time, or failed).
//
// The database is treated as transient storage for in-flight work rather than
// a long-term archive. Schema changes bump the version in schema.go; users
// clear the database to adopt the new schema.
package queue
