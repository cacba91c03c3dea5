package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"shadow/internal/api"
	"shadow/internal/capture"
	"shadow/internal/config"
	"shadow/internal/ipc"
	"shadow/internal/preflight"
	"shadow/internal/queue"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var skipProviders bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show readiness checks, broker state, and capture counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			printSection(out, "System Status", colorize)
			checks := []preflight.Result{
				preflight.CheckDirectoryAccess("Storage root", cfg.Paths.StorageRoot),
				preflight.CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
				preflight.CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
			}
			if !skipProviders {
				checks = append(checks,
					preflight.CheckTranscription(cmd.Context(), cfg.Transcription),
					preflight.CheckAnalysis(cmd.Context(), cfg.Analysis),
				)
			}
			for _, check := range checks {
				fmt.Fprintln(out, renderStatusLine(check.Name, checkKind(check, statusError), check.Detail, colorize))
			}
			fmt.Fprintln(out)

			printSection(out, "Broker", colorize)
			broker := preflight.CheckBroker(cfg)
			fmt.Fprintln(out, renderStatusLine("Daemon", checkKind(broker, statusWarn), broker.Detail, colorize))
			if broker.Passed {
				_ = ctx.withClient(func(client *ipc.Client) error {
					resp, err := client.Status()
					if err != nil {
						fmt.Fprintln(out, renderStatusLine("Workers", statusWarn, err.Error(), colorize))
						return nil
					}
					printWorkflowStatus(out, resp.DaemonStatus, colorize)
					return nil
				})
			}
			fmt.Fprintln(out)

			printSection(out, "Captures", colorize)
			return printCaptureCounts(cmd.Context(), out, cfg)
		},
	}
	cmd.Flags().BoolVar(&skipProviders, "offline", false, "Skip provider health checks")
	return cmd
}

func printSection(out io.Writer, title string, colorize bool) {
	for _, line := range renderSectionHeader(title, colorize) {
		fmt.Fprintln(out, line)
	}
}

func checkKind(result preflight.Result, failed statusKind) statusKind {
	if result.Passed {
		return statusOK
	}
	return failed
}

func printWorkflowStatus(out io.Writer, status api.DaemonStatus, colorize bool) {
	wf := status.Workflow
	fmt.Fprintln(out, renderStatusLine("Workers", statusInfo, fmt.Sprintf("%d running, %d busy", wf.Workers, len(wf.Busy)), colorize))
	for _, h := range wf.StageHealth {
		kind := statusOK
		if !h.Ready {
			kind = statusWarn
		}
		fmt.Fprintln(out, renderStatusLine(displayStatus(h.Name), kind, h.Detail, colorize))
	}
	if wf.LastError != "" {
		fmt.Fprintln(out, renderStatusLine("Last error", statusWarn, wf.LastError, colorize))
	}
	rows := make([][]string, 0, len(wf.JobStats))
	for _, s := range queue.AllStatuses() {
		if count, ok := wf.JobStats[string(s)]; ok && count > 0 {
			rows = append(rows, []string{displayStatus(string(s)), strconv.Itoa(count)})
		}
	}
	if len(rows) > 0 {
		fmt.Fprintln(out, renderTable([]string{"Job status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
	}
}

func printCaptureCounts(ctx context.Context, out io.Writer, cfg *config.Config) error {
	store, err := capture.Open(cfg)
	if err != nil {
		return fmt.Errorf("open capture store: %w", err)
	}
	defer store.Close()

	stats, err := store.Stats(ctx)
	if err != nil {
		return err
	}
	if len(stats) == 0 {
		fmt.Fprintln(out, "No captures")
		return nil
	}
	order := make(map[capture.Status]int)
	for i, s := range capture.AllStatuses() {
		order[s] = i
	}
	statuses := make([]capture.Status, 0, len(stats))
	for s := range stats {
		statuses = append(statuses, s)
	}
	sort.Slice(statuses, func(i, j int) bool { return order[statuses[i]] < order[statuses[j]] })
	rows := make([][]string, 0, len(statuses))
	for _, s := range statuses {
		rows = append(rows, []string{displayStatus(string(s)), strconv.Itoa(stats[s])})
	}
	fmt.Fprintln(out, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
	return nil
}
