package main

import (
	"fmt"
	"strconv"
	"strings"

	"shadow/internal/api"
)

func renderCaptureTable(captures []api.Capture) string {
	table := make([][]string, 0, len(captures))
	for _, c := range captures {
		table = append(table, []string{
			c.ID,
			c.Title,
			displayStatus(c.Status),
			api.FormatClock(float64(c.DurationSeconds)),
			formatQuality(c.QualityScore),
			formatDisplayTime(c.CreatedAt),
		})
	}
	return renderTable(
		[]string{"ID", "Title", "Status", "Duration", "Quality", "Created"},
		table,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	)
}

func renderCaptureDetail(detail *api.CaptureDetail, withTranscript bool) string {
	c := detail.Capture
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", c.Title)
	fmt.Fprintf(&b, "  ID:        %s\n", c.ID)
	fmt.Fprintf(&b, "  Status:    %s\n", displayStatus(c.Status))
	if c.MediaRef != "" {
		fmt.Fprintf(&b, "  Media:     %s\n", c.MediaRef)
	}
	if c.Description != "" {
		fmt.Fprintf(&b, "  About:     %s\n", c.Description)
	}
	if len(c.Tags) > 0 {
		fmt.Fprintf(&b, "  Tags:      %s\n", strings.Join(c.Tags, ", "))
	}
	fmt.Fprintf(&b, "  Duration:  %s\n", api.FormatClock(float64(c.DurationSeconds)))
	fmt.Fprintf(&b, "  Quality:   %s\n", formatQuality(c.QualityScore))
	if c.ProcessingCompletedAt != "" {
		fmt.Fprintf(&b, "  Processed: %s\n", formatDisplayTime(c.ProcessingCompletedAt))
	}

	if c.ExecutiveSummary != "" {
		fmt.Fprintf(&b, "\nSummary\n  %s\n", c.ExecutiveSummary)
	}
	if len(c.KeyTakeaways) > 0 {
		b.WriteString("\nKey takeaways\n")
		for _, t := range c.KeyTakeaways {
			fmt.Fprintf(&b, "  - %s\n", t)
		}
	}

	titles := make(map[string]string, len(detail.Chapters))
	if len(detail.Chapters) > 0 {
		rows := make([][]string, 0, len(detail.Chapters))
		for _, ch := range detail.Chapters {
			titles[ch.ID] = ch.Title
			rows = append(rows, []string{
				strconv.Itoa(ch.OrderIndex + 1),
				ch.Title,
				api.FormatClock(ch.Start),
				api.FormatClock(ch.End),
				ch.Summary,
			})
		}
		b.WriteString("\nChapters\n")
		b.WriteString(renderTable(
			[]string{"#", "Title", "Start", "End", "Summary"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignLeft},
		))
		b.WriteString("\n")
	}

	if len(detail.DecisionPoints) > 0 {
		rows := make([][]string, 0, len(detail.DecisionPoints))
		for _, dp := range detail.DecisionPoints {
			rows = append(rows, []string{
				api.FormatClock(dp.Timestamp),
				titles[dp.ChapterID],
				dp.Description,
				dp.Reasoning,
				strconv.FormatFloat(dp.Confidence, 'f', 2, 64),
			})
		}
		b.WriteString("\nDecision points\n")
		b.WriteString(renderTable(
			[]string{"Time", "Chapter", "Decision", "Reasoning", "Confidence"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight},
		))
		b.WriteString("\n")
	}

	if withTranscript && c.Transcript != "" {
		fmt.Fprintf(&b, "\nTranscript\n%s\n", c.Transcript)
	}
	return b.String()
}

func formatQuality(score *int) string {
	if score == nil {
		return "-"
	}
	return strconv.Itoa(*score)
}

func formatDisplayTime(value string) string {
	t := api.ParseTime(value)
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
