/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"privflow/internal/bootstrap/logging"
	"privflow/internal/errs"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:          "privflow",
	Short:        "Clinical privileging approval workflow",
	Long:         "Routes clinical privilege requests through a multi-level review chain and escalates stalled approvals.",
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	logger, err := logging.New(rootCmd.ErrOrStderr(), "info", "text")
	if err != nil {
		return errs.Wrap(err, "build logger")
	}
	// Config may replace the default once loaded.
	logging.SetDefault(logger)
	ctx = logging.WithAttrs(ctx, slog.String("app", "privflow"))

	rootCmd.SetContext(ctx)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logging.Error(ctx, "command execution failed", slog.Any("err", errs.Loggable(err)))
		return errs.Wrap(err, "execute root command")
	}

	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file path (default searches ./configs and .)")
}
