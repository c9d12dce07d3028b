package cmd

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"privflow/internal/bootstrap"
	"privflow/internal/bootstrap/logging"
	"privflow/internal/errs"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the workflow HTTP API",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, svc services) error {
		ctx := commandContext(cmd)
		if err := app.CheckSchema(ctx); err != nil {
			return errs.Wrap(err, "check schema")
		}

		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = app.Config.HTTP.Addr
		}
		sweepEvery, _ := cmd.Flags().GetDuration("sweep-every")

		server := &http.Server{
			Addr:              addr,
			Handler:           svc.HTTP.Routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		serveErr := make(chan error, 1)
		go func() {
			logging.Info(ctx, "http server listening", slog.String("addr", addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
			close(serveErr)
		}()

		sweepCtx, stopSweep := context.WithCancel(ctx)
		defer stopSweep()
		sweepDone := make(chan struct{})
		go func() {
			defer close(sweepDone)
			if sweepEvery > 0 {
				_ = runSweepLoop(sweepCtx, svc.Workflow, sweepEvery, io.Discard)
			}
		}()

		var runErr error
		select {
		case <-ctx.Done():
		case err, ok := <-serveErr:
			if ok {
				runErr = errs.Wrap(err, "listen and serve")
			}
		}

		stopSweep()
		<-sweepDone

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logging.Error(ctx, "http server shutdown failed", slog.Any("err", errs.Loggable(err)))
			if runErr == nil {
				runErr = errs.Wrap(err, "shutdown http server")
			}
		}
		logging.Info(ctx, "http server stopped")
		return runErr
	}),
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address (defaults to http.addr from config)")
	serveCmd.Flags().Duration("sweep-every", 0, "Run the escalation sweep in the background on this interval")
}
