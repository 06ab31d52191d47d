package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"assetgen/internal/backend"
	"assetgen/internal/config"
	"assetgen/internal/history"
	"assetgen/internal/logging"
	"assetgen/internal/pipeline"
	"assetgen/internal/preflight"
	"assetgen/internal/runlock"
	"assetgen/internal/workspec"
)

// DefaultLogName is the append-only progress log inside the output directory.
const DefaultLogName = "generation.log"

type runOptions struct {
	outputDir   string
	noResume    bool
	logPath     string
	backendName string
	maxAttempts int
	workers     int
}

// errIncomplete marks a run that finished with failed items.
var errIncomplete = errors.New("run finished with failed assets")

func newRunCommand(ctx *commandContext) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run <spec.csv>",
		Short: "Generate every asset in a work table, resuming prior progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return runGeneration(cmd, cfg, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.outputDir, "output", "o", "", "Output directory (required)")
	cmd.Flags().BoolVar(&opts.noResume, "no-resume", false, "Regenerate every asset, ignoring prior successes")
	cmd.Flags().StringVar(&opts.logPath, "log", "", "Progress log path (default <output>/generation.log)")
	cmd.Flags().StringVar(&opts.backendName, "backend", "", "Backend for both kinds: placeholder, http or command")
	cmd.Flags().IntVar(&opts.maxAttempts, "max-attempts", 0, "Attempts per asset (default from config)")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "Concurrent workers per phase (default from config)")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func applyRunOverrides(cfg *config.Config, opts runOptions) error {
	if name := strings.TrimSpace(opts.backendName); name != "" {
		cfg.Backend.Name = strings.ToLower(name)
		cfg.Backend.ImageName = ""
		cfg.Backend.AudioName = ""
	}
	if opts.maxAttempts > 0 {
		cfg.Generation.MaxAttempts = opts.maxAttempts
	}
	if opts.workers > 0 {
		cfg.Generation.Workers = opts.workers
	}
	if opts.noResume {
		cfg.Generation.Resume = false
	}
	return cfg.Validate()
}

func runGeneration(cmd *cobra.Command, base *config.Config, specPath string, opts runOptions) (retErr error) {
	cfgCopy := *base
	cfg := &cfgCopy
	if err := applyRunOverrides(cfg, opts); err != nil {
		return err
	}

	outputDir, err := filepath.Abs(strings.TrimSpace(opts.outputDir))
	if err != nil {
		return fmt.Errorf("resolve output dir: %w", err)
	}
	specPath, err = filepath.Abs(specPath)
	if err != nil {
		return fmt.Errorf("resolve spec path: %w", err)
	}

	table, err := workspec.LoadFile(specPath)
	if err != nil {
		return err
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	if err := preflight.Failed(preflight.RunAll(parent, cfg, outputDir)); err != nil {
		return fmt.Errorf("preflight failed:\n%w", err)
	}

	lock, err := runlock.Acquire(outputDir)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	runID := uuid.NewString()
	started := time.Now()
	logger, eventLog, closeLogs, err := buildRunLogger(cfg, outputDir, opts.logPath, runID, started)
	if err != nil {
		return err
	}
	defer func() { _ = closeLogs() }()
	logging.PruneRunLogs(logger, cfg.LogDir(), cfg.Logging.RetentionDays, runID, started)

	gen, err := backend.FromConfig(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := gen.Close(); err != nil {
			logging.WarnWithContext(logger, "backend close failed", "backend_close_failed", logging.Error(err))
		}
	}()

	recorder := openHistory(cfg, logger)
	if recorder != nil {
		defer recorder.Close()
	}
	record := beginRunRecord(parent, recorder, logger, history.Run{
		ID:        runID,
		SpecPath:  specPath,
		OutputDir: outputDir,
		Backend:   describeBackends(cfg),
		Resume:    cfg.Generation.Resume,
	})
	defer func() { record.abandon(retErr) }()

	runCtx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("generation started",
		logging.String(logging.FieldRunID, runID),
		logging.String("spec", specPath),
		logging.String("output_dir", outputDir),
		logging.Int("rows", table.Len()),
		logging.String("backend", describeBackends(cfg)),
		logging.String("event_log", eventLog),
		logging.String(logging.FieldEventType, "run_started"),
	)

	engine := pipeline.New(table, gen, pipeline.Options{
		OutputDir:          outputDir,
		RunID:              runID,
		Resume:             cfg.Generation.Resume,
		MaxAttempts:        cfg.Generation.MaxAttempts,
		CheckpointInterval: cfg.Generation.CheckpointInterval,
		Workers:            cfg.Generation.Workers,
		BackoffUnit:        cfg.BackoffUnit(),
		AttemptTimeout:     cfg.AttemptTimeout(),
		Logger:             logger,
	})
	result, runErr := engine.Run(runCtx)

	notifyOutcome(cfg, logger, outputDir, result, runErr)

	record.finish(outcomeFor(result, runErr))

	out := cmd.OutOrStdout()
	writeRunReport(out, result.Summary, result.Failures)
	fmt.Fprintf(out, "Skipped (already generated): %d\nManifest: %s\n", result.Skipped, result.ManifestPath)

	if runErr != nil {
		if errors.Is(runErr, pipeline.ErrAborted) {
			return fmt.Errorf("generation aborted after %d assets (%v); rerun the same command to resume",
				result.Attempted(), runErr)
		}
		return runErr
	}
	if !result.AllSucceeded() {
		return fmt.Errorf("%w: %d of %d (%s)", errIncomplete,
			result.Summary.Failed(), result.Attempted(), joinIDs(result.Failures))
	}
	return nil
}

// buildRunLogger returns the console logger teed into the progress log and
// a per-run JSON event log under the state directory, plus a func closing
// both log files.
func buildRunLogger(cfg *config.Config, outputDir, logPath, runID string, started time.Time) (*slog.Logger, string, func() error, error) {
	progressLog := strings.TrimSpace(logPath)
	if progressLog == "" {
		progressLog = filepath.Join(outputDir, DefaultLogName)
	}
	console, consoleFiles, err := logging.Open(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", progressLog},
	})
	if err != nil {
		return nil, "", nil, fmt.Errorf("init logging: %w", err)
	}

	eventLog := filepath.Join(cfg.LogDir(), logging.RunLogName(started, runID))
	events, eventFiles, err := logging.NewHandler(logging.Options{
		Level:       "debug",
		Format:      "json",
		OutputPaths: []string{eventLog},
	})
	if err != nil {
		_ = consoleFiles.Close()
		return nil, "", nil, fmt.Errorf("init event log: %w", err)
	}
	closeAll := func() error {
		return errors.Join(consoleFiles.Close(), eventFiles.Close())
	}
	return logging.TeeLogger(console, events), eventLog, closeAll, nil
}

func openHistory(cfg *config.Config, logger *slog.Logger) *history.Store {
	if !cfg.History.Enabled {
		return nil
	}
	store, err := history.OpenFromConfig(cfg)
	if err != nil {
		logging.WarnWithContext(logger, "history unavailable", "history_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "delete the history database if the schema changed"),
		)
		return nil
	}
	return store
}

// runRecord owns the history row of one run. A row that was begun is always
// finished, so an early return cannot leave it running.
type runRecord struct {
	store  *history.Store
	id     string
	logger *slog.Logger
	open   bool
}

func beginRunRecord(ctx context.Context, store *history.Store, logger *slog.Logger, run history.Run) *runRecord {
	r := &runRecord{store: store, id: run.ID, logger: logger}
	if store == nil {
		return r
	}
	if err := store.Begin(ctx, run); err != nil {
		logging.WarnWithContext(logger, "history record failed", "history_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "this run is missing from assetgen history"),
		)
		return r
	}
	r.open = true
	return r
}

func (r *runRecord) finish(outcome history.Outcome) {
	if !r.open {
		return
	}
	r.open = false
	ctx, cancel := contextWithTimeout(5 * time.Second)
	defer cancel()
	if err := r.store.Finish(ctx, r.id, outcome); err != nil {
		logging.WarnWithContext(r.logger, "history update failed", "history_failed", logging.Error(err))
	}
}

// abandon closes a row the run never reached the end of.
func (r *runRecord) abandon(err error) {
	if !r.open {
		return
	}
	if err == nil {
		err = errors.New("run ended before generation")
	}
	r.finish(history.Outcome{State: history.StateFailed, Err: err})
}

func describeBackends(cfg *config.Config) string {
	image := cfg.BackendFor(string(workspec.KindImage))
	audio := cfg.BackendFor(string(workspec.KindAudio))
	if image == audio {
		return image
	}
	return fmt.Sprintf("image=%s,audio=%s", image, audio)
}

func outcomeFor(result pipeline.Result, runErr error) history.Outcome {
	state := history.StateDone
	switch {
	case runErr != nil && errors.Is(runErr, pipeline.ErrAborted):
		state = history.StateAborted
	case runErr != nil:
		state = history.StateFailed
	}
	s := result.Summary
	return history.Outcome{
		State:        state,
		Planned:      s.Images.Total + s.Audio.Total,
		Skipped:      result.Skipped,
		Succeeded:    s.Succeeded(),
		Failed:       s.Failed(),
		TotalSeconds: s.TotalTime,
		Err:          runErr,
	}
}

// contextWithTimeout detaches from the run context so bookkeeping still
// happens after an interrupt.
func contextWithTimeout(d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d)
}
