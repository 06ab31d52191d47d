package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	runLogPrefix      = "run-"
	runLogExt         = ".jsonl"
	runLogStampLayout = "20060102T150405"
	runLogShortID     = 8
)

// RunLogName names the JSON event log of a run: run-<start>-<id8>.jsonl.
func RunLogName(started time.Time, runID string) string {
	return fmt.Sprintf("%s%s-%s%s", runLogPrefix, started.Format(runLogStampLayout), shortRunID(runID), runLogExt)
}

func shortRunID(runID string) string {
	if len(runID) > runLogShortID {
		return runID[:runLogShortID]
	}
	return runID
}

// parseRunLogName returns the start time and short run ID encoded by
// RunLogName.
func parseRunLogName(name string) (time.Time, string, bool) {
	if !strings.HasPrefix(name, runLogPrefix) || !strings.HasSuffix(name, runLogExt) {
		return time.Time{}, "", false
	}
	body := strings.TrimSuffix(strings.TrimPrefix(name, runLogPrefix), runLogExt)
	stamp, id, ok := strings.Cut(body, "-")
	if !ok || id == "" {
		return time.Time{}, "", false
	}
	started, err := time.ParseInLocation(runLogStampLayout, stamp, time.Local)
	if err != nil {
		return time.Time{}, "", false
	}
	return started, id, true
}

// PruneRunLogs removes event logs in dir whose run started more than
// retentionDays before now. The active run's log is never removed, and files
// not named by RunLogName are left alone. A retentionDays of 0 disables
// pruning. It returns the removed paths.
func PruneRunLogs(logger *slog.Logger, dir string, retentionDays int, activeRunID string, now time.Time) []string {
	if retentionDays <= 0 || strings.TrimSpace(dir) == "" {
		return nil
	}
	if logger == nil {
		logger = NewNop()
	}
	cutoff := now.AddDate(0, 0, -retentionDays)
	active := shortRunID(activeRunID)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var removed []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		started, id, ok := parseRunLogName(entry.Name())
		if !ok || id == active || !started.Before(cutoff) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "run log retention failed; file remains", "log_retention_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check permissions on the assetgen log directory"),
				String(FieldImpact, "old run log remains on disk"),
			)
			continue
		}
		removed = append(removed, path)
		logger.Info("run log pruned",
			String("path", path),
			String(FieldRunID, id),
			String("started", started.Format(time.RFC3339)),
			String(FieldEventType, "log_pruned"),
		)
	}
	return removed
}
