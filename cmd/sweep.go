package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"privflow/internal/bootstrap"
	"privflow/internal/bootstrap/logging"
	"privflow/internal/errs"
	"privflow/internal/usecase/privileging"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Evaluate pending approvals against the escalation policy",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, svc services) error {
		ctx := commandContext(cmd)
		if err := app.CheckSchema(ctx); err != nil {
			return errs.Wrap(err, "check schema")
		}

		rawNow, _ := cmd.Flags().GetString("now")
		every, _ := cmd.Flags().GetDuration("every")

		var now time.Time
		if strings.TrimSpace(rawNow) != "" {
			parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(rawNow))
			if err != nil {
				return errs.Wrapf(err, "parse --now %q", rawNow)
			}
			now = parsed
		}

		if every <= 0 {
			return runSweep(ctx, svc.Workflow, now, cmd.OutOrStdout())
		}
		if !now.IsZero() {
			return fmt.Errorf("--now cannot be combined with --every")
		}
		return runSweepLoop(ctx, svc.Workflow, every, cmd.OutOrStdout())
	}),
}

func runSweep(ctx context.Context, svc *privileging.Service, now time.Time, out io.Writer) error {
	events, err := svc.SweepEscalations(ctx, now)
	if err != nil {
		logging.Error(ctx, "escalation sweep failed", slog.Any("err", errs.Loggable(err)))
		return errs.Wrap(err, "sweep escalations")
	}
	if _, err := fmt.Fprint(out, renderEscalations(events)); err != nil {
		return errs.Wrap(err, "write sweep output")
	}
	return nil
}

// runSweepLoop sweeps immediately and then on every tick until ctx is done.
// A failed sweep is logged and retried on the next tick.
func runSweepLoop(ctx context.Context, svc *privileging.Service, every time.Duration, out io.Writer) error {
	logging.Info(ctx, "escalation sweeper started", slog.Duration("every", every))

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		if err := runSweep(ctx, svc, time.Time{}, out); err != nil && ctx.Err() == nil {
			logging.Warn(ctx, "escalation sweep will retry", slog.Any("err", errs.Loggable(err)))
		}

		select {
		case <-ctx.Done():
			logging.Info(ctx, "escalation sweeper stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func init() {
	rootCmd.AddCommand(sweepCmd)

	sweepCmd.Flags().String("now", "", "Evaluate as of this RFC3339 time instead of the current time")
	sweepCmd.Flags().Duration("every", 0, "Repeat the sweep on this interval until interrupted")
}
