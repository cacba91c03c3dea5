// Package preflight provides readiness checks for the filesystem paths and
// external providers that Shadow depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at start-up and logs each failed check as a
//     warning. A failed provider check never blocks processing because the
//     pipeline degrades to placeholder transcripts and fallback analysis.
//   - The CLI "shadow status" command renders the same results alongside the
//     broker probe from CheckBroker.
package preflight
