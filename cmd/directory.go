package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"privflow/internal/bootstrap"
	"privflow/internal/bootstrap/logging"
	"privflow/internal/errs"
	"privflow/internal/usecase/directory"
)

var directoryCmd = &cobra.Command{
	Use:   "directory",
	Short: "Manage the organization directory",
}

var directoryImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Upsert practitioners and privileges from a TOML file",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc services) error {
		ctx := commandContext(cmd)

		path, err := cmd.Flags().GetString("file")
		if err != nil {
			return errs.Wrap(err, "read --file flag")
		}
		path = strings.TrimSpace(path)

		file, err := directory.LoadFile(path)
		if err != nil {
			logging.Error(ctx, "load directory file failed", slog.String("file", path), slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "load directory file")
		}

		result, err := svc.Directory.Import(ctx, file)
		if err != nil {
			logging.Error(ctx, "directory import failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "import directory")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "imported %d practitioners, %d privileges\n", result.Practitioners, result.Privileges); err != nil {
			return errs.Wrap(err, "write directory import output")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(directoryCmd)
	directoryCmd.AddCommand(directoryImportCmd)

	directoryImportCmd.Flags().String("file", "", "Directory TOML file")
	_ = directoryImportCmd.MarkFlagRequired("file")
}
