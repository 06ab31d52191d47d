package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"assetgen/internal/config"
	"assetgen/internal/logging"
	"assetgen/internal/notifications"
	"assetgen/internal/pipeline"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification to the configured ntfy topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Notifications.NtfyTopic == "" {
				return errors.New("notifications are disabled: set [notifications] ntfy_topic")
			}
			svc := notifications.NewService(cfg)
			if err := svc.Publish(cmd.Context(), notifications.EventTest, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Test notification sent to %s\n", cfg.Notifications.NtfyTopic)
			return nil
		},
	}
}

// notifyOutcome publishes the run result. Failures are logged, never
// returned.
func notifyOutcome(cfg *config.Config, logger *slog.Logger, outputDir string, result pipeline.Result, runErr error) {
	svc := notifications.NewService(cfg)
	s := result.Summary
	payload := notifications.Payload{
		"outputDir": outputDir,
		"succeeded": strconv.Itoa(s.Succeeded()),
		"failed":    strconv.Itoa(s.Failed()),
		"skipped":   strconv.Itoa(result.Skipped),
		"processed": strconv.Itoa(result.Attempted()),
		"duration":  (time.Duration(s.TotalTime * float64(time.Second))).Round(time.Second).String(),
	}

	event := notifications.EventRunCompleted
	switch {
	case runErr != nil:
		event = notifications.EventRunAborted
		payload["error"] = runErr.Error()
	case !result.AllSucceeded():
		event = notifications.EventRunFailed
		payload["failedIDs"] = joinIDs(result.Failures)
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeoutSeconds) * time.Second
	notifyCtx, cancel := contextWithTimeout(timeout)
	defer cancel()
	if err := svc.Publish(notifyCtx, event, payload); err != nil {
		logging.WarnWithContext(logger, "notification failed", "notification_failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check [notifications] ntfy_topic"),
		)
	}
}
