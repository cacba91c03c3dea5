package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"shadow/internal/api"
	"shadow/internal/ipc"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect broker jobs",
	}
	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsClearCommand(ctx))
	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Jobs(statuses)
				if err != nil {
					return err
				}
				jobs := api.SortJobsNewestFirst(resp.Jobs)
				if jsonOut {
					if jobs == nil {
						jobs = []api.Job{}
					}
					return writeJSON(cmd, jobs)
				}
				out := cmd.OutOrStdout()
				if len(jobs) == 0 {
					fmt.Fprintln(out, "No jobs")
					return nil
				}
				fmt.Fprintln(out, renderJobsTable(jobs))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by job status (queued, running, retrying, succeeded, failed)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newJobsClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove succeeded and failed jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ClearFinished()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d finished jobs\n", resp.Removed)
				return nil
			})
		},
	}
}

func renderJobsTable(jobs []api.Job) string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		attempts := fmt.Sprintf("%d/%d", job.Attempts, job.MaxRetries+1)
		detail := job.LastError
		if job.ErrorKind != "" && detail != "" {
			detail = fmt.Sprintf("[%s] %s", job.ErrorKind, detail)
		}
		if job.Status == "retrying" && job.RunAfter != "" {
			detail = fmt.Sprintf("next attempt %s; %s", formatDisplayTime(job.RunAfter), detail)
		}
		rows = append(rows, []string{
			strconv.FormatInt(job.ID, 10),
			job.CaptureID,
			displayStatus(job.Status),
			attempts,
			job.WorkerID,
			formatDisplayTime(job.UpdatedAt),
			detail,
		})
	}
	return renderTable(
		[]string{"ID", "Capture", "Status", "Attempts", "Worker", "Updated", "Detail"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
	)
}
