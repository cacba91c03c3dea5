package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"shadow/internal/api"
	"shadow/internal/capture"
	"shadow/internal/logging"
)

// Sheet names in the exported workbook.
const (
	SheetCaptures  = "Captures"
	SheetChapters  = "Chapters"
	SheetDecisions = "Decisions"
)

var (
	captureHeader  = []any{"Capture ID", "Title", "Status", "Duration", "Quality", "Executive Summary", "Key Takeaways", "Tags"}
	chapterHeader  = []any{"Capture ID", "#", "Title", "Start", "End", "Summary"}
	decisionHeader = []any{"Capture ID", "#", "Time", "Chapter", "Description", "Reasoning", "Alternatives", "Confidence", "Verified"}
)

// Source loads captures and their artifacts.
type Source interface {
	GetByID(ctx context.Context, id string) (*capture.Capture, error)
	Chapters(ctx context.Context, id string) ([]capture.Chapter, error)
	DecisionPoints(ctx context.Context, id string) ([]capture.DecisionPoint, error)
}

// Summary reports what was written.
type Summary struct {
	Path           string
	Captures       int
	Chapters       int
	DecisionPoints int
}

// WriteWorkbook exports the given captures to path. Missing captures are an
// error; captures without analysis still get a summary row.
func WriteWorkbook(ctx context.Context, src Source, captureIDs []string, path string, logger *slog.Logger) (Summary, error) {
	if len(captureIDs) == 0 {
		return Summary{}, errors.New("no captures to export")
	}
	if strings.TrimSpace(path) == "" {
		return Summary{}, errors.New("output path is required")
	}
	log := logging.NewComponentLogger(logger, "export").With(logging.String("path", path))

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetCaptures); err != nil {
		return Summary{}, fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetChapters, SheetDecisions} {
		if _, err := f.NewSheet(name); err != nil {
			return Summary{}, fmt.Errorf("create sheet %s: %w", name, err)
		}
	}
	w := &sheetWriter{file: f, rows: map[string]int{}}
	if err := w.header(SheetCaptures, captureHeader); err != nil {
		return Summary{}, err
	}
	if err := w.header(SheetChapters, chapterHeader); err != nil {
		return Summary{}, err
	}
	if err := w.header(SheetDecisions, decisionHeader); err != nil {
		return Summary{}, err
	}

	summary := Summary{Path: path}
	for _, id := range captureIDs {
		c, err := src.GetByID(ctx, id)
		if err != nil {
			return Summary{}, fmt.Errorf("load capture %s: %w", id, err)
		}
		if c == nil {
			return Summary{}, fmt.Errorf("capture %s not found", id)
		}
		chapters, err := src.Chapters(ctx, id)
		if err != nil {
			return Summary{}, fmt.Errorf("load chapters for %s: %w", id, err)
		}
		points, err := src.DecisionPoints(ctx, id)
		if err != nil {
			return Summary{}, fmt.Errorf("load decision points for %s: %w", id, err)
		}
		if err := w.capture(c, chapters, points); err != nil {
			return Summary{}, err
		}
		summary.Captures++
		summary.Chapters += len(chapters)
		summary.DecisionPoints += len(points)
	}

	if err := f.SaveAs(path); err != nil {
		return Summary{}, fmt.Errorf("save workbook: %w", err)
	}
	log.Info("workbook exported",
		logging.Int("captures", summary.Captures),
		logging.Int("chapters", summary.Chapters),
		logging.Int("decision_points", summary.DecisionPoints),
		logging.String(logging.FieldEventType, "export_complete"),
	)
	return summary, nil
}

type sheetWriter struct {
	file *excelize.File
	rows map[string]int
}

func (w *sheetWriter) header(sheet string, cols []any) error {
	style, err := w.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	if err := w.append(sheet, cols); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(cols), 1)
	if err != nil {
		return err
	}
	if err := w.file.SetCellStyle(sheet, "A1", last, style); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	return w.file.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func (w *sheetWriter) append(sheet string, values []any) error {
	w.rows[sheet]++
	cell, err := excelize.CoordinatesToCellName(1, w.rows[sheet])
	if err != nil {
		return err
	}
	if err := w.file.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, w.rows[sheet], err)
	}
	return nil
}

func (w *sheetWriter) capture(c *capture.Capture, chapters []capture.Chapter, points []capture.DecisionPoint) error {
	var quality any
	if c.QualityScore != nil {
		quality = *c.QualityScore
	}
	if err := w.append(SheetCaptures, []any{
		c.ID,
		c.Title,
		string(c.Status),
		api.FormatClock(float64(c.DurationSeconds)),
		quality,
		c.ExecutiveSummary,
		strings.Join(c.KeyTakeaways, "\n"),
		strings.Join(c.Tags, ", "),
	}); err != nil {
		return err
	}

	titles := make(map[string]string, len(chapters))
	for _, ch := range chapters {
		titles[ch.ID] = ch.Title
		if err := w.append(SheetChapters, []any{
			c.ID,
			ch.OrderIndex + 1,
			ch.Title,
			api.FormatClock(ch.StartSeconds),
			api.FormatClock(ch.EndSeconds),
			ch.Summary,
		}); err != nil {
			return err
		}
	}
	for _, dp := range points {
		if err := w.append(SheetDecisions, []any{
			c.ID,
			dp.OrderIndex + 1,
			api.FormatClock(dp.TimestampSeconds),
			titles[dp.ChapterID],
			dp.Description,
			dp.Reasoning,
			strings.Join(dp.Alternatives, "; "),
			dp.Confidence,
			dp.UserVerified,
		}); err != nil {
			return err
		}
	}
	return nil
}
