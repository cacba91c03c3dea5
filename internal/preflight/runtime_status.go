package preflight

import (
	"fmt"

	"shadow/internal/config"
	"shadow/internal/ipc"
)

// CheckBroker reports whether a daemon is serving the broker socket. A
// failed check is not fatal: captures then process locally without retries.
func CheckBroker(cfg *config.Config) Result {
	const name = "Broker"

	if cfg == nil || cfg.Broker.SocketPath == "" {
		return Result{Name: name, Detail: "Unknown"}
	}
	client, err := ipc.Dial(cfg.Broker.SocketPath, cfg.Broker.ProbeTimeout())
	if err != nil {
		return Result{Name: name, Detail: "Not running (captures process locally)"}
	}
	defer client.Close()

	resp, err := client.Ping()
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("Unresponsive (%v)", err)}
	}
	if !resp.OK {
		return Result{Name: name, Detail: fmt.Sprintf("Paused (pid %d)", resp.PID)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("Running (pid %d)", resp.PID)}
}
