// Package capture persists recorded sessions and the knowledge artifacts the
// pipeline derives from them.
//
// A Capture owns its Chapters and DecisionPoints; deleting the capture removes
// them through foreign-key cascades. Status changes go through Transition,
// which enforces the lifecycle state machine with a compare-and-set update so
// concurrent workers cannot both advance the same capture. The lease columns
// (claimed_by, lease_expires_at) let a worker reserve a capture before it
// starts writing stage results.
package capture
