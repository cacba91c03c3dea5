// Package daemon coordinates the long-running Shadow broker process.
//
// It ties configuration, the job queue store, and the workflow manager into a
// single lifecycle with flock-based locking so only one broker owns the queue.
// The daemon exposes the job operations the IPC layer serves: enqueue, list,
// and status.
//
// Keep orchestration here: pipeline steps live in their own packages while
// the daemon focuses on startup, shutdown, and high level coordination.
package daemon
