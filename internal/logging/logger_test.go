package logging_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"assetgen/internal/logging"
)

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	return string(content)
}

func TestConsoleLoggerFormatsLine(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "generation.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger = logging.NewComponentLogger(logger, "pipeline")
	logger.Info("asset generated",
		logging.String(logging.FieldAssetID, "img_001"),
		logging.String("path", "images/ui/ui star.png"),
		logging.Duration("elapsed", 1500*time.Millisecond),
	)

	content := readLog(t, logPath)
	if !strings.Contains(content, " - INFO - pipeline: [img_001] asset generated") {
		t.Fatalf("unexpected header: %q", content)
	}
	if !strings.Contains(content, `path="images/ui/ui star.png"`) {
		t.Fatalf("expected quoted path, got %q", content)
	}
	if !strings.Contains(content, "elapsed=1.5s") {
		t.Fatalf("expected duration, got %q", content)
	}
	if strings.Contains(content, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "debug.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message with caller")

	if content := readLog(t, logPath); !strings.Contains(content, ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestLoggerAppendsAcrossInstances(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "nested", "generation.log")
	for _, msg := range []string{"first run", "second run"} {
		logger, err := logging.New(logging.Options{OutputPaths: []string{logPath}})
		if err != nil {
			t.Fatalf("New returned error: %v", err)
		}
		logger.Info(msg)
	}
	content := readLog(t, logPath)
	if !strings.Contains(content, "first run") || !strings.Contains(content, "second run") {
		t.Fatalf("expected both runs in the log, got %q", content)
	}
}

func TestJSONLoggerWritesStructuredFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "events.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Warn("retrying", logging.Error(errors.New("boom")), logging.Duration("backoff", 2*time.Second))

	content := readLog(t, logPath)
	for _, want := range []string{`"level":"warn"`, `"msg":"retrying"`, `"error":"boom"`, `"backoff":2`, `"ts":`} {
		if !strings.Contains(content, want) {
			t.Fatalf("expected %s in %q", want, content)
		}
	}
}

type classifiedError struct{}

func (classifiedError) Error() string     { return "model offline" }
func (classifiedError) ErrorKind() string { return "transient" }

func TestJSONLoggerAddsErrorKind(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "events.jsonl")
	logger, err := logging.New(logging.Options{Format: "json", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Warn("attempt failed", logging.Error(fmt.Errorf("attempt 1: %w", classifiedError{})))
	logger.Info("plain", logging.Error(errors.New("boom")))

	lines := strings.Split(strings.TrimSpace(readLog(t, logPath)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 records, got %q", lines)
	}
	if !strings.Contains(lines[0], `"error_kind":"transient"`) || !strings.Contains(lines[0], `"error":"attempt 1: model offline"`) {
		t.Fatalf("expected classified error, got %s", lines[0])
	}
	if strings.Contains(lines[1], "error_kind") {
		t.Fatalf("unclassified error must not carry error_kind: %s", lines[1])
	}
}

func TestOpenClosesLogFiles(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "generation.log")
	handler, closer, err := logging.NewHandler(logging.Options{Format: "console", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("NewHandler returned error: %v", err)
	}
	record := slog.NewRecord(time.Now(), slog.LevelInfo, "asset generated", 0)
	if err := handler.Handle(context.Background(), record); err != nil {
		t.Fatalf("Handle before close: %v", err)
	}
	if err := closer.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if err := handler.Handle(context.Background(), record); err == nil {
		t.Fatal("expected write to a closed log file to fail")
	}
	if !strings.Contains(readLog(t, logPath), "asset generated") {
		t.Fatal("expected record written before close")
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "ctx.log")
	base, err := logging.New(logging.Options{Format: "json", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := logging.WithRunID(context.Background(), "run-1")
	ctx = logging.WithAssetID(ctx, "sfx_pop")
	ctx = logging.WithPhase(ctx, "running_audio")
	logging.WithContext(ctx, base).Info("processing")

	content := readLog(t, logPath)
	for _, want := range []string{`"run_id":"run-1"`, `"asset_id":"sfx_pop"`, `"phase":"running_audio"`} {
		if !strings.Contains(content, want) {
			t.Fatalf("expected %s in %q", want, content)
		}
	}
	if id, ok := logging.RunIDFromContext(ctx); !ok || id != "run-1" {
		t.Fatalf("unexpected run id: %q %v", id, ok)
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "warn.log")
	logger, err := logging.New(logging.Options{Format: "json", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "checkpoint slow", "checkpoint_slow")

	content := readLog(t, logPath)
	for _, want := range []string{`"event_type":"checkpoint_slow"`, `"error_hint":`, `"impact":`} {
		if !strings.Contains(content, want) {
			t.Fatalf("expected %s in %q", want, content)
		}
	}
}

func TestRunLogNameRoundTrip(t *testing.T) {
	started := time.Date(2026, 3, 4, 5, 6, 7, 0, time.Local)
	name := logging.RunLogName(started, "0123456789abcdef")
	if name != "run-20260304T050607-01234567.jsonl" {
		t.Fatalf("unexpected run log name %q", name)
	}
}

func TestPruneRunLogsKeepsActiveAndRecentRuns(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.Local)
	old := now.AddDate(0, 0, -40)

	expired := logging.RunLogName(old, "aaaaaaaa-1111")
	active := logging.RunLogName(old, "bbbbbbbb-2222")
	recent := logging.RunLogName(now.AddDate(0, 0, -2), "cccccccc-3333")
	foreign := "notes.jsonl"
	for _, name := range []string{expired, active, recent, foreign} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}\n"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	// Age comes from the name, not the modification time.
	past := now.AddDate(0, 0, -90)
	if err := os.Chtimes(filepath.Join(dir, foreign), past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	removed := logging.PruneRunLogs(logging.NewNop(), dir, 30, "bbbbbbbb-2222", now)
	if len(removed) != 1 || filepath.Base(removed[0]) != expired {
		t.Fatalf("expected only %s removed, got %v", expired, removed)
	}
	for _, name := range []string{active, recent, foreign} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("expected %s kept: %v", name, err)
		}
	}
}

func TestPruneRunLogsDisabled(t *testing.T) {
	dir := t.TempDir()
	name := logging.RunLogName(time.Now().AddDate(-1, 0, 0), "dddddddd")
	if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if removed := logging.PruneRunLogs(nil, dir, 0, "", time.Now()); removed != nil {
		t.Fatalf("retention 0 must not prune, removed %v", removed)
	}
}
