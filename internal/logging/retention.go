package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// CurrentLogName is the pointer in the log directory that always resolves to
// the running daemon's log file.
const CurrentLogName = "shadow.log"

const (
	runLogPrefix = "shadow-"
	runLogSuffix = ".log"
	runLogStamp  = "20060102T150405.000Z"
)

// RunLogPath names the log file for a daemon run started at started.
func RunLogPath(dir string, started time.Time) string {
	return filepath.Join(dir, runLogPrefix+started.UTC().Format(runLogStamp)+runLogSuffix)
}

// PruneRunLogs removes daemon run logs in dir last written before
// now-retentionDays and returns how many were removed. The file behind
// CurrentLogName is never removed. retentionDays <= 0 disables pruning.
func PruneRunLogs(logger *slog.Logger, dir string, retentionDays int, now time.Time) int {
	dir = strings.TrimSpace(dir)
	if retentionDays <= 0 || dir == "" {
		return 0
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	cutoff := now.AddDate(0, 0, -retentionDays)
	// Stat follows a symlink pointer; SameFile also matches the hard-link fallback.
	current, _ := os.Stat(filepath.Join(dir, CurrentLogName))

	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !isRunLog(name) {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if current != nil && os.SameFile(current, info) {
			continue
		}
		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "log retention remove failed; file remains", "log_retention_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check file permissions and log_dir ownership"),
				String(FieldImpact, "old log file remains on disk"),
			)
			continue
		}
		removed++
	}
	if removed > 0 && logger != nil {
		logger.Info("old run logs pruned",
			Int("removed", removed),
			Int("retention_days", retentionDays),
			String(FieldEventType, "log_pruned"),
		)
	}
	return removed
}

func isRunLog(name string) bool {
	return strings.HasPrefix(name, runLogPrefix) && strings.HasSuffix(name, runLogSuffix) &&
		len(name) > len(runLogPrefix)+len(runLogSuffix)
}
