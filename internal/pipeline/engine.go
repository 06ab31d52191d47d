package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"assetgen/internal/backend"
	"assetgen/internal/executor"
	"assetgen/internal/logging"
	"assetgen/internal/manifest"
	"assetgen/internal/workspec"
)

// DefaultCheckpointInterval is the number of processed items between
// checkpoints.
const DefaultCheckpointInterval = 5

// Options controls one run.
type Options struct {
	OutputDir          string
	RunID              string
	Resume             bool
	MaxAttempts        int
	CheckpointInterval int
	Workers            int
	BackoffUnit        time.Duration
	AttemptTimeout     time.Duration
	Logger             *slog.Logger

	// Sleep overrides backoff waits; tests use it to skip real delays.
	Sleep executor.Sleeper
	// OnStateChange observes every transition.
	OnStateChange func(from, to State)
}

// Result describes a finished or aborted run.
type Result struct {
	RunID        string
	State        State
	Summary      manifest.Summary
	ManifestPath string
	Skipped      int
	Failures     []manifest.Entry
}

// Attempted is the number of items with a recorded outcome this run.
func (r Result) Attempted() int { return r.Summary.Processed() }

// AllSucceeded reports whether the run completed with no failed item.
func (r Result) AllSucceeded() bool {
	return r.State == StateDone && r.Summary.Failed() == 0
}

// Engine runs a work table against a backend.
type Engine struct {
	table   *workspec.Table
	backend backend.Backend
	opts    Options
	exec    *executor.Executor
	output  *OutputWriter
	logger  *slog.Logger

	state atomic.Int32

	mu        sync.Mutex
	manifest  *manifest.Manifest
	summary   manifest.Summary
	processed int
	failures  []manifest.Entry
}

// New constructs an engine. The caller keeps ownership of b.
func New(table *workspec.Table, b backend.Backend, opts Options) *Engine {
	if opts.CheckpointInterval <= 0 {
		opts.CheckpointInterval = DefaultCheckpointInterval
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = executor.DefaultMaxAttempts
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	logger := logging.NewComponentLogger(opts.Logger, "pipeline")
	if opts.RunID != "" {
		logger = logger.With(logging.String(logging.FieldRunID, opts.RunID))
	}
	output := NewOutputWriter(opts.OutputDir)
	exec := executor.New(opts.BackoffUnit, output, opts.Logger)
	exec.AttemptTimeout = opts.AttemptTimeout
	exec.Sleep = opts.Sleep
	return &Engine{
		table:   table,
		backend: b,
		opts:    opts,
		exec:    exec,
		output:  output,
		logger:  logger,
	}
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

func (e *Engine) transition(to State) {
	from := State(e.state.Swap(int32(to)))
	if from == to {
		return
	}
	e.logger.Debug("state transition",
		logging.String("from", from.String()),
		logging.String("to", to.String()),
		logging.String(logging.FieldEventType, "state_transition"),
	)
	if e.opts.OnStateChange != nil {
		e.opts.OnStateChange(from, to)
	}
}

// Run executes the table. It returns ErrAborted (wrapped) on cancellation
// and a *manifest.IOError when the manifest cannot be read or written.
func (e *Engine) Run(ctx context.Context) (Result, error) {
	if e.State() != StateIdle {
		return Result{}, errors.New("engine already ran")
	}
	ctx = logging.WithRunID(ctx, e.opts.RunID)
	manifestPath := manifest.Path(e.opts.OutputDir)
	result := Result{RunID: e.opts.RunID, ManifestPath: manifestPath}

	e.summary = manifest.Summary{RunID: e.opts.RunID}
	e.summary.MarkStart(time.Now())

	e.transition(StateLoadingManifest)
	if err := e.output.Prepare(); err != nil {
		e.transition(StateAborted)
		result.State = StateAborted
		return result, &manifest.IOError{Op: "prepare", Path: e.opts.OutputDir, Err: err}
	}
	m, err := manifest.LoadIfExists(manifestPath)
	if err != nil {
		e.transition(StateAborted)
		result.State = StateAborted
		return result, err
	}
	e.manifest = m

	e.transition(StateFiltering)
	phases, skipped := e.plan()
	result.Skipped = skipped
	e.logger.Info("run planned",
		logging.Int("total_rows", e.table.Len()),
		logging.Int("skipped", skipped),
		logging.Int("images", len(phases[workspec.KindImage])),
		logging.Int("audio", len(phases[workspec.KindAudio])),
		logging.Bool("resume", e.opts.Resume),
		logging.String(logging.FieldEventType, "run_planned"),
	)

	for _, kind := range workspec.Kinds {
		items := phases[kind]
		e.transition(runningState(kind))
		if len(items) == 0 {
			continue
		}
		e.logger.Info("phase started",
			logging.String(logging.FieldPhase, runningState(kind).String()),
			logging.Int("items", len(items)),
		)
		if err := e.runPhase(ctx, kind, items); err != nil {
			return e.abort(result, err)
		}
	}

	e.transition(StateFinalizing)
	e.mu.Lock()
	e.summary.MarkEnd(time.Now())
	e.manifest.SetSummary(e.summary)
	e.mu.Unlock()
	if err := e.manifest.Finalize(manifestPath); err != nil {
		e.transition(StateAborted)
		return e.snapshot(result, StateAborted), err
	}
	e.transition(StateDone)
	result = e.snapshot(result, StateDone)
	e.logSummary(result)
	return result, nil
}

func runningState(kind workspec.Kind) State {
	if kind == workspec.KindAudio {
		return StateRunningAudio
	}
	return StateRunningImage
}

// plan computes the resume filter and the per-kind work lists.
func (e *Engine) plan() (map[workspec.Kind][]workspec.WorkItem, int) {
	done := map[string]struct{}{}
	if e.opts.Resume {
		done = e.manifest.SuccessfulAssetIDs()
	}
	pending := e.table.Filter(func(item workspec.WorkItem) bool {
		_, ok := done[item.AssetID]
		return !ok
	})
	phases := make(map[workspec.Kind][]workspec.WorkItem, len(workspec.Kinds))
	for _, item := range pending {
		phases[item.Kind] = append(phases[item.Kind], item)
	}
	for _, kind := range workspec.Kinds {
		e.summary.Plan(kind, len(phases[kind]))
	}
	return phases, e.table.Len() - len(pending)
}

// runPhase feeds items to the worker pool until the list is exhausted, the
// context is cancelled, or a manifest write fails.
func (e *Engine) runPhase(ctx context.Context, kind workspec.Kind, items []workspec.WorkItem) error {
	phaseCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	phase := runningState(kind).String()

	var (
		failOnce sync.Once
		failErr  error
		recorded atomic.Int64
	)
	jobs := make(chan workspec.WorkItem)
	var wg sync.WaitGroup
	for i := 0; i < e.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobs {
				ok, err := e.process(phaseCtx, phase, item)
				if err != nil {
					failOnce.Do(func() { failErr = err })
					cancel()
					continue
				}
				if ok {
					recorded.Add(1)
				}
			}
		}()
	}

feed:
	for _, item := range items {
		if phaseCtx.Err() != nil {
			break
		}
		select {
		case <-phaseCtx.Done():
			break feed
		case jobs <- item:
		}
	}
	close(jobs)
	wg.Wait()

	if failErr != nil {
		return failErr
	}
	// A cancellation that lands after the last outcome was recorded left
	// nothing undone.
	if err := ctx.Err(); err != nil && recorded.Load() < int64(len(items)) {
		return fmt.Errorf("%w: %w", ErrAborted, context.Cause(ctx))
	}
	return nil
}

// process runs one item and records its outcome. It reports whether an
// outcome was recorded. A non-nil error stops the phase; cancellation of ctx
// is not reported here.
func (e *Engine) process(ctx context.Context, phase string, item workspec.WorkItem) (bool, error) {
	if ctx.Err() != nil {
		return false, nil
	}
	entry, err := e.exec.Execute(ctx, item, e.backend, e.opts.MaxAttempts)
	var terminal *executor.TerminalError
	if err != nil && !errors.As(err, &terminal) {
		e.logger.Info("item interrupted; it will be retried on the next run",
			logging.String(logging.FieldAssetID, item.AssetID),
			logging.String(logging.FieldPhase, phase),
			logging.String(logging.FieldEventType, "item_interrupted"),
		)
		return false, nil
	}
	entry.RunID = e.opts.RunID
	if err := e.record(phase, entry); err != nil {
		return false, err
	}
	return true, nil
}

func (e *Engine) record(phase string, entry manifest.Entry) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.manifest.Append(entry)
	e.summary.Add(entry)
	e.processed++
	total := e.summary.Total
	progress := fmt.Sprintf("%d/%d", e.processed, total)

	if entry.Succeeded() {
		e.logger.Info("asset generated",
			logging.String(logging.FieldAssetID, entry.AssetID),
			logging.String(logging.FieldPhase, phase),
			logging.String("path", entry.Filepath),
			logging.Float64("seconds", entry.GenerationTime),
			logging.Int("attempts", entry.Attempts),
			logging.String("progress", progress),
			logging.String(logging.FieldEventType, "asset_generated"),
		)
	} else {
		e.failures = append(e.failures, entry)
		logging.ErrorWithContext(e.logger, "asset failed", "asset_failed",
			logging.String(logging.FieldAssetID, entry.AssetID),
			logging.String(logging.FieldPhase, phase),
			logging.String("error", entry.Error),
			logging.Int("attempts", entry.Attempts),
			logging.String("progress", progress),
			logging.String(logging.FieldErrorHint, "rerun with resume enabled to retry failed assets"),
		)
	}

	if e.processed%e.opts.CheckpointInterval != 0 {
		return nil
	}
	e.manifest.SetSummary(e.summary)
	if err := e.manifest.Checkpoint(manifest.Path(e.opts.OutputDir)); err != nil {
		return err
	}
	e.logger.Debug("checkpoint written",
		logging.Int("processed", e.processed),
		logging.String(logging.FieldEventType, "checkpoint"),
	)
	return nil
}

// abort handles an early stop. Cancellation writes one checkpoint; a
// manifest failure is returned as is.
func (e *Engine) abort(result Result, cause error) (Result, error) {
	e.mu.Lock()
	e.summary.MarkEnd(time.Now())
	e.manifest.SetSummary(e.summary)
	e.mu.Unlock()

	if !errors.Is(cause, ErrAborted) {
		e.transition(StateAborted)
		logging.ErrorWithContext(e.logger, "run aborted: manifest could not be written", "run_failed",
			logging.Error(cause),
			logging.String(logging.FieldErrorHint, "check free space and permissions on the output directory"),
		)
		return e.snapshot(result, StateAborted), cause
	}

	err := e.manifest.Checkpoint(manifest.Path(e.opts.OutputDir))
	e.transition(StateAborted)
	result = e.snapshot(result, StateAborted)
	logging.WarnWithContext(e.logger, "run aborted; progress checkpointed", "run_aborted",
		logging.Int("processed", result.Attempted()),
		logging.String(logging.FieldErrorHint, "rerun the same command to resume"),
		logging.String(logging.FieldImpact, "remaining items were not generated"),
	)
	if err != nil {
		return result, errors.Join(cause, err)
	}
	return result, cause
}

func (e *Engine) snapshot(result Result, state State) Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	result.State = state
	result.Summary = e.summary
	result.Failures = append([]manifest.Entry(nil), e.failures...)
	return result
}

func (e *Engine) logSummary(result Result) {
	s := result.Summary
	for _, kind := range workspec.Kinds {
		stats := s.Stats(kind)
		e.logger.Info("phase summary",
			logging.String(logging.FieldKind, string(kind)),
			logging.Int("success", stats.Success),
			logging.Int("total", stats.Total),
			logging.Int("errors", stats.Error),
			logging.Float64("average_seconds", stats.AverageTime),
		)
	}
	e.logger.Info("generation complete",
		logging.Int("succeeded", s.Succeeded()),
		logging.Int("failed", s.Failed()),
		logging.Int("skipped", result.Skipped),
		logging.Float64("total_seconds", s.TotalTime),
		logging.Float64("average_seconds", s.AverageTime),
		logging.String("output_dir", e.opts.OutputDir),
		logging.String(logging.FieldEventType, "run_complete"),
	)
}
