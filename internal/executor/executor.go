// Package executor runs one work item against a backend with bounded retries
// and exponential backoff.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"assetgen/internal/backend"
	"assetgen/internal/logging"
	"assetgen/internal/manifest"
	"assetgen/internal/workspec"
)

// DefaultMaxAttempts is used when Execute receives a non-positive bound.
const DefaultMaxAttempts = 3

// Placer stores a generated artifact and returns its final path.
type Placer interface {
	Place(item workspec.WorkItem, artifact backend.Artifact) (string, error)
}

// PlacerFunc adapts a function to Placer.
type PlacerFunc func(item workspec.WorkItem, artifact backend.Artifact) (string, error)

func (f PlacerFunc) Place(item workspec.WorkItem, artifact backend.Artifact) (string, error) {
	return f(item, artifact)
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// TerminalError reports an item whose attempts were exhausted. It is recorded
// in the manifest and never aborts the run.
type TerminalError struct {
	AssetID  string
	Attempts int
	Err      error
}

func (e *TerminalError) Error() string {
	return fmt.Sprintf("%s: failed after %d attempts: %s", e.AssetID, e.Attempts, Message(e.Err))
}

func (e *TerminalError) Unwrap() error { return e.Err }

// ErrorKind classifies the error for exit reporting.
func (e *TerminalError) ErrorKind() string { return "terminal" }

// Message returns the text recorded for a failure, falling back to
// manifest.FallbackError.
func Message(err error) string {
	if err == nil {
		return manifest.FallbackError
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return manifest.FallbackError
}

// Executor retries a backend call. Retry i (0-based) waits Unit * 2^i.
type Executor struct {
	Unit           time.Duration
	AttemptTimeout time.Duration
	Placer         Placer
	Logger         *slog.Logger
	Sleep          Sleeper
	Now            func() time.Time
}

// New returns an executor with the given backoff unit.
func New(unit time.Duration, placer Placer, logger *slog.Logger) *Executor {
	return &Executor{
		Unit:   unit,
		Placer: placer,
		Logger: logging.NewComponentLogger(logger, "executor"),
	}
}

// Backoff returns the wait after the failed attempt with 0-based index i.
func (e *Executor) Backoff(i int) time.Duration {
	if e.Unit <= 0 || i < 0 {
		return 0
	}
	return e.Unit * time.Duration(int64(1)<<uint(i))
}

// Execute runs item until it succeeds or maxAttempts attempts fail.
//
// On success the entry has status success and a nil error. On exhaustion the
// entry has status error and the returned error is a *TerminalError. If ctx
// is cancelled before an outcome is reached, the entry is zero and the error
// wraps ctx.Err(); the item should not be recorded.
func (e *Executor) Execute(ctx context.Context, item workspec.WorkItem, b backend.Backend, maxAttempts int) (manifest.Entry, error) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	logger := logging.WithContext(ctx, e.logger()).With(
		logging.String(logging.FieldAssetID, item.AssetID),
		logging.String(logging.FieldKind, string(item.Kind)),
	)
	start := e.now()
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return manifest.Entry{}, fmt.Errorf("%s: stopped before attempt %d: %w", item.AssetID, attempt, err)
		}

		path, err := e.attempt(ctx, item, b, attempt)
		if err == nil {
			entry := manifest.NewSuccess(item, path, e.now().Sub(start))
			entry.Attempts = attempt
			if attempt > 1 {
				logger.Debug("attempt succeeded after retry", logging.Int("attempt", attempt))
			}
			return entry, nil
		}
		lastErr = backend.Transient(attempt, err)

		if ctx.Err() != nil {
			return manifest.Entry{}, fmt.Errorf("%s: attempt %d interrupted: %w", item.AssetID, attempt, ctx.Err())
		}
		if attempt == maxAttempts {
			break
		}

		delay := e.Backoff(attempt - 1)
		logging.WarnWithContext(logger, "attempt failed, retrying", "attempt_failed",
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", maxAttempts),
			logging.Duration("backoff", delay),
			logging.Error(lastErr),
			logging.String(logging.FieldErrorHint, "transient backend failures are retried automatically"),
			logging.String(logging.FieldImpact, "item delayed"),
		)
		if err := e.sleep(ctx, delay); err != nil {
			return manifest.Entry{}, fmt.Errorf("%s: backoff interrupted: %w", item.AssetID, err)
		}
	}

	terminal := &TerminalError{AssetID: item.AssetID, Attempts: maxAttempts, Err: lastErr}
	entry := manifest.NewFailure(item, Message(lastErr), e.now().Sub(start))
	entry.Attempts = maxAttempts
	return entry, terminal
}

func (e *Executor) attempt(ctx context.Context, item workspec.WorkItem, b backend.Backend, attempt int) (string, error) {
	attemptCtx := ctx
	if e.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, e.AttemptTimeout)
		defer cancel()
	}

	artifact, err := b.Generate(attemptCtx, backend.RequestFor(item, attempt))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return "", fmt.Errorf("attempt timed out after %s: %w", e.AttemptTimeout, err)
		}
		return "", err
	}
	if artifact.Empty() {
		return "", errors.New("backend returned no artifact")
	}
	if e.Placer == nil {
		if artifact.Path == "" {
			return "", errors.New("no placer configured for in-memory artifact")
		}
		return artifact.Path, nil
	}
	return e.Placer.Place(item, artifact)
}

func (e *Executor) logger() *slog.Logger {
	if e.Logger == nil {
		return logging.NewNop()
	}
	return e.Logger
}

func (e *Executor) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Executor) sleep(ctx context.Context, d time.Duration) error {
	if e.Sleep != nil {
		return e.Sleep(ctx, d)
	}
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
