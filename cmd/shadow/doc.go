// Command shadow is the CLI for the Shadow capture-processing pipeline.
//
// Capture lifecycle commands (start, end, retry, process, publish, archive,
// delete) work directly against the capture store. Ending or retrying a
// capture hands it to the dispatcher, which enqueues it with a running daemon
// or processes it in-process when no daemon answers. The daemon itself runs
// under "shadow daemon"; "shadow jobs" and "shadow status" query it over its
// Unix socket. "shadow logs" reads the daemon log and "shadow export" writes
// analysis artifacts to a spreadsheet.
package main
