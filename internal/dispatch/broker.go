package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shadow/internal/ipc"
)

// Broker accepts captures for queued processing.
type Broker interface {
	// Ping reports whether the broker is reachable and processing jobs.
	Ping(ctx context.Context) error
	// Enqueue queues a capture and returns the job id.
	Enqueue(ctx context.Context, captureID string) (int64, error)
}

// ErrBrokerUnavailable marks a broker that is unreachable or not processing.
var ErrBrokerUnavailable = errors.New("broker unavailable")

// SocketBroker talks to the daemon over its JSON-RPC socket. Each call dials
// a fresh connection bounded by Timeout.
type SocketBroker struct {
	Path    string
	Timeout time.Duration
}

// NewSocketBroker builds a broker client for the daemon socket.
func NewSocketBroker(path string, timeout time.Duration) *SocketBroker {
	return &SocketBroker{Path: path, Timeout: timeout}
}

func (b *SocketBroker) dial(ctx context.Context) (*ipc.Client, error) {
	if b.Path == "" {
		return nil, fmt.Errorf("%w: no socket configured", ErrBrokerUnavailable)
	}
	deadline := time.Now().Add(b.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	client, err := ipc.Dial(b.Path, time.Until(deadline))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrokerUnavailable, err)
	}
	if err := client.SetDeadline(deadline); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrBrokerUnavailable, err)
	}
	return client, nil
}

// Ping dials the socket and calls Shadow.Ping.
func (b *SocketBroker) Ping(ctx context.Context) error {
	client, err := b.dial(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	resp, err := client.Ping()
	if err != nil {
		return fmt.Errorf("%w: ping: %v", ErrBrokerUnavailable, err)
	}
	if !resp.OK {
		return fmt.Errorf("%w: daemon pid %d is not processing jobs", ErrBrokerUnavailable, resp.PID)
	}
	return nil
}

// Enqueue calls Shadow.Enqueue.
func (b *SocketBroker) Enqueue(ctx context.Context, captureID string) (int64, error) {
	client, err := b.dial(ctx)
	if err != nil {
		return 0, err
	}
	defer client.Close()

	resp, err := client.Enqueue(captureID)
	if err != nil {
		return 0, fmt.Errorf("enqueue capture: %w", err)
	}
	return resp.Job.ID, nil
}
