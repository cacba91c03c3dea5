// Package workflow runs queued capture jobs inside the daemon.
//
// The Manager starts a fixed pool of workers. Each worker claims one job at a
// time from the queue store, keeps its heartbeat fresh while the job runs, and
// hands the job to the Supervisor. The Supervisor owns the retry policy: it
// resets a previously failed capture before a retried attempt, bounds each
// attempt with the task time limit, and turns the executor's outcome into a
// Verdict that the Manager persists as succeeded, retrying, or failed.
//
// Stale jobs whose worker stopped heartbeating are returned to the queue on
// every poll so a crashed worker never strands a capture.
package workflow
