// Package api is the capture lifecycle surface and its wire-format types.
//
// CaptureService implements the operations a capture goes through after it is
// recorded: end (hand off to the dispatcher), retry, synchronous process,
// publish, archive, delete, and the describe/list views. The DTOs translate
// internal capture, job, and workflow models into transport-friendly shapes
// that the IPC layer and the CLI render without coupling to storage types.
//
// DTOs use camelCase JSON tags. Statuses are exposed as strings and
// timestamps use RFC3339 with milliseconds.
package api
