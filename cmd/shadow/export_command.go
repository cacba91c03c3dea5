package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"shadow/internal/capture"
	"shadow/internal/export"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export [capture-id...]",
		Short: "Export chapters and decision points to an XLSX workbook",
		Long: "Export analysis artifacts to an XLSX workbook. Without capture ids, every " +
			"READY_FOR_REVIEW and PUBLISHED capture is exported.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := capture.Open(cfg)
			if err != nil {
				return fmt.Errorf("open capture store: %w", err)
			}
			defer store.Close()

			ids := args
			if len(ids) == 0 {
				captures, err := store.List(cmd.Context(), capture.StatusReadyForReview, capture.StatusPublished)
				if err != nil {
					return err
				}
				for _, c := range captures {
					ids = append(ids, c.ID)
				}
			}
			if len(ids) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No analyzed captures to export")
				return nil
			}

			summary, err := export.WriteWorkbook(cmd.Context(), store, ids, strings.TrimSpace(output), ctx.cliLogger(cfg))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d captures (%d chapters, %d decision points) to %s\n",
				summary.Captures, summary.Chapters, summary.DecisionPoints, summary.Path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "shadow-export.xlsx", "Workbook path")
	return cmd
}
