package main

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"assetgen/internal/history"
	"assetgen/internal/logging"
)

func openTestHistory(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRunRecordAbandonMarksFailed(t *testing.T) {
	store := openTestHistory(t)
	ctx := context.Background()

	record := beginRunRecord(ctx, store, logging.NewNop(), history.Run{ID: "run-early", OutputDir: "/out"})
	record.abandon(errors.New("backend setup failed"))

	run, err := store.Get(ctx, "run-early")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if run.State != history.StateFailed || run.ErrorMessage != "backend setup failed" || run.FinishedAt == nil {
		t.Fatalf("expected failed row, got %+v", run)
	}
}

func TestRunRecordFinishIsFinal(t *testing.T) {
	store := openTestHistory(t)
	ctx := context.Background()

	record := beginRunRecord(ctx, store, logging.NewNop(), history.Run{ID: "run-done", OutputDir: "/out"})
	record.finish(history.Outcome{State: history.StateDone, Planned: 3, Succeeded: 3})
	record.abandon(errors.New("late error"))

	run, err := store.Get(ctx, "run-done")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if run.State != history.StateDone || run.Succeeded != 3 || run.ErrorMessage != "" {
		t.Fatalf("abandon after finish must not change the row, got %+v", run)
	}
}

func TestRunRecordWithoutHistory(t *testing.T) {
	record := beginRunRecord(context.Background(), nil, logging.NewNop(), history.Run{ID: "run-x"})
	record.finish(history.Outcome{State: history.StateDone})
	record.abandon(nil)
}
