package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"privflow/internal/bootstrap"
	"privflow/internal/bootstrap/logging"
	"privflow/internal/errs"
	"privflow/internal/usecase/privileging"
)

var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "Preview the approval chain for a prospective request",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc services) error {
		ctx := commandContext(cmd)

		requester, _ := cmd.Flags().GetString("requester")
		kind, _ := cmd.Flags().GetString("kind")
		privileges, _ := cmd.Flags().GetStringSlice("privilege")

		chain, err := svc.Workflow.BuildChain(ctx, privileging.BuildChainInput{
			RequesterID:  requester,
			PrivilegeIDs: privileges,
			Kind:         kind,
		})
		if err != nil {
			logging.Error(ctx, "build chain failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "build chain")
		}

		if _, err := fmt.Fprint(cmd.OutOrStdout(), renderChain(chain)); err != nil {
			return errs.Wrap(err, "write chain output")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(chainCmd)

	chainCmd.Flags().String("requester", "", "Requesting practitioner id")
	chainCmd.Flags().String("kind", "new", "Request kind")
	chainCmd.Flags().StringSlice("privilege", nil, "Privilege id (repeatable)")
	_ = chainCmd.MarkFlagRequired("requester")
	_ = chainCmd.MarkFlagRequired("privilege")
}
