package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"shadow/internal/api"
	"shadow/internal/capture"
	"shadow/internal/fileutil"
)

func newCaptureCommand(ctx *commandContext) *cobra.Command {
	captureCmd := &cobra.Command{
		Use:     "capture",
		Aliases: []string{"captures"},
		Short:   "Manage captures",
	}

	captureCmd.AddCommand(newCaptureStartCommand(ctx))
	captureCmd.AddCommand(newCaptureEndCommand(ctx))
	captureCmd.AddCommand(newCaptureRetryCommand(ctx))
	captureCmd.AddCommand(newCaptureProcessCommand(ctx))
	captureCmd.AddCommand(newCaptureTransitionCommand(ctx, "publish", "Publish a reviewed capture"))
	captureCmd.AddCommand(newCaptureTransitionCommand(ctx, "archive", "Archive a capture"))
	captureCmd.AddCommand(newCaptureDeleteCommand(ctx))
	captureCmd.AddCommand(newCaptureShowCommand(ctx))
	captureCmd.AddCommand(newCaptureListCommand(ctx))

	return captureCmd
}

func newCaptureStartCommand(ctx *commandContext) *cobra.Command {
	var req api.StartRequest
	var importPath string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "start <title>",
		Short: "Start a capture in CAPTURING",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := ctx.openCaptureSession()
			if err != nil {
				return err
			}
			defer session.close()

			if importPath != "" {
				if req.MediaRef, err = ctx.importMedia(importPath); err != nil {
					return err
				}
			}
			req.Title = strings.Join(args, " ")
			c, err := session.service.Start(cmd.Context(), req)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, c)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Started capture %s (%s)\n", c.ID, c.Title)
			return nil
		},
	}
	cmd.Flags().StringVarP(&req.Description, "description", "d", "", "Capture description")
	cmd.Flags().StringVarP(&req.MediaRef, "media", "m", "", "Raw media reference (path, /storage/videos/<file>, or URL)")
	cmd.Flags().StringVar(&importPath, "import", "", "Copy a local recording into storage and attach it")
	cmd.Flags().StringSliceVarP(&req.Tags, "tag", "t", nil, "Tag to attach (repeatable)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	cmd.MarkFlagsMutuallyExclusive("media", "import")
	return cmd
}

func newCaptureEndCommand(ctx *commandContext) *cobra.Command {
	var mediaRef string
	var importPath string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "end <id>",
		Short: "End a capture and dispatch it for processing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := ctx.openCaptureSession()
			if err != nil {
				return err
			}
			defer session.close()

			if importPath != "" {
				if mediaRef, err = ctx.importMedia(importPath); err != nil {
					return err
				}
			}
			result, err := session.service.End(cmd.Context(), args[0], mediaRef)
			if err != nil {
				return err
			}
			return printDispatch(cmd, session, "Ended", result, jsonOut)
		},
	}
	cmd.Flags().StringVarP(&mediaRef, "media", "m", "", "Raw media reference to attach before processing")
	cmd.Flags().StringVar(&importPath, "import", "", "Copy a local recording into storage and attach it")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	cmd.MarkFlagsMutuallyExclusive("media", "import")
	return cmd
}

// importMedia copies src under the storage root and returns its
// /storage/videos reference. The short suffix keeps repeated imports of one
// file from overwriting each other.
func (c *commandContext) importMedia(src string) (string, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	stem := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	return fileutil.ImportMedia(cfg.Paths.StorageRoot, stem+"-"+uuid.NewString()[:8], src)
}

func newCaptureRetryCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "retry <id>",
		Short: "Retry a FAILED capture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := ctx.openCaptureSession()
			if err != nil {
				return err
			}
			defer session.close()

			result, err := session.service.Retry(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printDispatch(cmd, session, "Retried", result, jsonOut)
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

// printDispatch reports the routing decision. Local runs are awaited so the
// process does not exit mid-pipeline.
func printDispatch(cmd *cobra.Command, session *captureSession, verb string, result *api.EndResult, jsonOut bool) error {
	out := cmd.OutOrStdout()
	if result.Dispatch.Mode == api.DispatchLocal && !jsonOut {
		fmt.Fprintf(out, "%s capture %s; broker unavailable, processing locally...\n", verb, result.Capture.ID)
	}
	session.dispatcher.Wait()
	if jsonOut {
		return writeJSON(cmd, result)
	}
	switch result.Dispatch.Mode {
	case api.DispatchQueued:
		fmt.Fprintf(out, "%s capture %s; queued as job %d\n", verb, result.Capture.ID, result.Dispatch.JobID)
	default:
		c, err := session.service.Describe(cmd.Context(), result.Capture.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Local processing finished: %s\n", displayStatus(c.Capture.Status))
	}
	return nil
}

func newCaptureProcessCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "process <id>",
		Short: "Run the pipeline for a capture in the foreground",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := ctx.openCaptureSession()
			if err != nil {
				return err
			}
			defer session.close()

			result, err := session.service.Process(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, result)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Capture %s: %s\n", result.Capture.ID, displayStatus(result.Capture.Status))
			if result.Result.Skipped {
				fmt.Fprintf(out, "Skipped: %s\n", result.Result.SkipReason)
				return nil
			}
			fmt.Fprintf(out, "Chapters: %d  Decision points: %d\n", result.Result.Chapters, result.Result.DecisionPoints)
			if result.Result.TranscriptFailed {
				fmt.Fprintln(out, "Transcription failed; a placeholder transcript was stored")
			}
			if result.Result.AnalysisFallback {
				fmt.Fprintln(out, "Analysis unavailable; fallback summary stored")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newCaptureTransitionCommand(ctx *commandContext, action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := ctx.openCaptureSession()
			if err != nil {
				return err
			}
			defer session.close()

			var c *api.Capture
			if action == "publish" {
				c, err = session.service.Publish(cmd.Context(), args[0])
			} else {
				c, err = session.service.Archive(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Capture %s is now %s\n", c.ID, displayStatus(c.Status))
			return nil
		},
	}
}

func newCaptureDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a capture and its analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := ctx.openCaptureSession()
			if err != nil {
				return err
			}
			defer session.close()

			if err := session.service.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted capture %s\n", args[0])
			return nil
		},
	}
}

func newCaptureShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	var withTranscript bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a capture with its chapters and decision points",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := ctx.openCaptureSession()
			if err != nil {
				return err
			}
			defer session.close()

			detail, err := session.service.Describe(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, detail)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderCaptureDetail(detail, withTranscript))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&withTranscript, "transcript", false, "Include the full transcript")
	return cmd
}

func newCaptureListCommand(ctx *commandContext) *cobra.Command {
	var statusFlags []string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List captures",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses := make([]capture.Status, 0, len(statusFlags))
			for _, raw := range statusFlags {
				status, ok := capture.ParseStatus(raw)
				if !ok {
					return fmt.Errorf("unknown capture status %q", raw)
				}
				statuses = append(statuses, status)
			}

			session, err := ctx.openCaptureSession()
			if err != nil {
				return err
			}
			defer session.close()

			captures, err := session.service.List(cmd.Context(), statuses...)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, captures)
			}
			out := cmd.OutOrStdout()
			if len(captures) == 0 {
				fmt.Fprintln(out, "No captures")
				return nil
			}
			fmt.Fprintln(out, renderCaptureTable(captures))
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&statusFlags, "status", "s", nil, "Filter by status (repeatable)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}
