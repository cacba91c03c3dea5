// Package ipc exposes the Shadow broker over JSON-RPC on a Unix socket.
//
// The server wraps a daemon.Daemon and serves the job operations capture
// dispatch and the CLI rely on: Ping, Enqueue, Status, Jobs, and ClearFinished.
// Client mirrors those calls with typed request and response structs so
// callers never touch net/rpc directly.
package ipc
