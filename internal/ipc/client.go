package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

const defaultDialTimeout = 2 * time.Second

// Client provides RPC access to the broker.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path. A non-positive
// timeout uses the default.
func Dial(path string, timeout time.Duration) (*Client, error) {
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}
	conn, err := net.DialTimeout("unix", path, timeout)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// SetDeadline bounds every call made after it. The zero time clears it.
func (c *Client) SetDeadline(t time.Time) error {
	return c.conn.SetDeadline(t)
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) call(method string, req, resp any) error {
	return c.client.Call(ServiceName+"."+method, req, resp)
}

// Ping checks that the broker is up and processing jobs.
func (c *Client) Ping() (*PingResponse, error) {
	var resp PingResponse
	if err := c.call("Ping", PingRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Enqueue queues a capture for processing.
func (c *Client) Enqueue(captureID string) (*EnqueueResponse, error) {
	var resp EnqueueResponse
	if err := c.call("Enqueue", EnqueueRequest{CaptureID: captureID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.call("Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Jobs lists jobs filtered by status names.
func (c *Client) Jobs(statuses []string) (*JobsResponse, error) {
	var resp JobsResponse
	if err := c.call("Jobs", JobsRequest{Statuses: statuses}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ClearFinished removes succeeded and failed jobs.
func (c *Client) ClearFinished() (*ClearFinishedResponse, error) {
	var resp ClearFinishedResponse
	if err := c.call("ClearFinished", ClearFinishedRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
