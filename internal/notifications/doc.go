// Package notifications pushes capture outcomes to ntfy.
//
// The workflow supervisor publishes an event when a capture becomes ready for
// review or fails for good. With no topic configured NewService returns a
// no-op, so callers never need to check whether notifications are enabled.
package notifications
