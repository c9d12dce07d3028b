package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"privflow/internal/bootstrap"
	"privflow/internal/bootstrap/logging"
	"privflow/internal/errs"
	"privflow/internal/usecase/privileging"
)

var requestCmd = &cobra.Command{
	Use:   "request",
	Short: "Create, edit and submit privilege requests",
}

var requestCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a draft privilege request",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc services) error {
		ctx := commandContext(cmd)

		requester, _ := cmd.Flags().GetString("requester")
		kind, _ := cmd.Flags().GetString("kind")
		privileges, _ := cmd.Flags().GetStringSlice("privilege")

		detail, err := svc.Workflow.CreateRequest(ctx, privileging.CreateRequestInput{
			RequesterID:  requester,
			Kind:         kind,
			PrivilegeIDs: privileges,
		})
		if err != nil {
			logging.Error(ctx, "create request failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "create request")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "created request %s (%s)\n", detail.RequestID, detail.Status); err != nil {
			return errs.Wrap(err, "write request create output")
		}
		return nil
	}),
}

var requestAddLineCmd = &cobra.Command{
	Use:   "add-line",
	Short: "Add a privilege to a draft request",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc services) error {
		ctx := commandContext(cmd)

		detail, err := svc.Workflow.AddPrivilegeLine(ctx, lineInput(cmd))
		if err != nil {
			logging.Error(ctx, "add privilege line failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "add privilege line")
		}

		if _, err := fmt.Fprint(cmd.OutOrStdout(), renderRequest(detail)); err != nil {
			return errs.Wrap(err, "write add-line output")
		}
		return nil
	}),
}

var requestRemoveLineCmd = &cobra.Command{
	Use:   "remove-line",
	Short: "Remove a privilege from a draft request",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc services) error {
		ctx := commandContext(cmd)

		detail, err := svc.Workflow.RemovePrivilegeLine(ctx, lineInput(cmd))
		if err != nil {
			logging.Error(ctx, "remove privilege line failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "remove privilege line")
		}

		if _, err := fmt.Fprint(cmd.OutOrStdout(), renderRequest(detail)); err != nil {
			return errs.Wrap(err, "write remove-line output")
		}
		return nil
	}),
}

var requestSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a draft request into the approval chain",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc services) error {
		ctx := commandContext(cmd)

		requestID, _ := cmd.Flags().GetString("id")
		actor, _ := cmd.Flags().GetString("actor")

		result, err := svc.Workflow.SubmitRequest(ctx, privileging.SubmitRequestInput{RequestID: requestID, Actor: actor})
		if err != nil {
			logging.Error(ctx, "submit request failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "submit request")
		}

		out := cmd.OutOrStdout()
		if _, err := fmt.Fprintf(out, "request %s is %s\n", result.RequestID, result.Status); err != nil {
			return errs.Wrap(err, "write submit output")
		}
		if result.AutoApproved {
			return nil
		}
		if _, err := fmt.Fprint(out, renderChain(privileging.Chain{Steps: result.Chain})); err != nil {
			return errs.Wrap(err, "write submit chain")
		}
		return nil
	}),
}

var requestShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show a request and its privilege lines",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc services) error {
		ctx := commandContext(cmd)

		requestID, _ := cmd.Flags().GetString("id")
		detail, err := svc.Workflow.GetRequest(ctx, requestID)
		if err != nil {
			logging.Error(ctx, "get request failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "get request")
		}

		if _, err := fmt.Fprint(cmd.OutOrStdout(), renderRequest(detail)); err != nil {
			return errs.Wrap(err, "write request output")
		}
		return nil
	}),
}

var requestListCmd = &cobra.Command{
	Use:   "list",
	Short: "List requests",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc services) error {
		ctx := commandContext(cmd)

		requester, _ := cmd.Flags().GetString("requester")
		statuses, _ := cmd.Flags().GetStringSlice("status")

		items, err := svc.Workflow.ListRequests(ctx, requester, statuses)
		if err != nil {
			logging.Error(ctx, "list requests failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "list requests")
		}

		out := cmd.OutOrStdout()
		if len(items) == 0 {
			if _, err := fmt.Fprintln(out, dimStyle.Render("- no requests")); err != nil {
				return errs.Wrap(err, "write request list output")
			}
			return nil
		}
		for _, item := range items {
			if _, err := fmt.Fprintf(out, "%s\t%s\t%s\t%s\t%d lines\n", item.RequestID, item.RequesterID, item.Kind, item.Status, len(item.Lines)); err != nil {
				return errs.Wrap(err, "write request list output")
			}
		}
		return nil
	}),
}

var requestProgressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Show per-level approval progress",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc services) error {
		ctx := commandContext(cmd)

		requestID, _ := cmd.Flags().GetString("id")
		progress, err := svc.Workflow.GetProgress(ctx, requestID)
		if err != nil {
			logging.Error(ctx, "get progress failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "get progress")
		}

		if _, err := fmt.Fprint(cmd.OutOrStdout(), renderProgress(progress)); err != nil {
			return errs.Wrap(err, "write progress output")
		}
		return nil
	}),
}

var requestHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the audit trail of a request",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc services) error {
		ctx := commandContext(cmd)

		requestID, _ := cmd.Flags().GetString("id")
		events, err := svc.Workflow.ListRequestEvents(ctx, requestID)
		if err != nil {
			logging.Error(ctx, "list request events failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "list request events")
		}

		if _, err := fmt.Fprint(cmd.OutOrStdout(), renderEvents(events)); err != nil {
			return errs.Wrap(err, "write history output")
		}
		return nil
	}),
}

func lineInput(cmd *cobra.Command) privileging.PrivilegeLineInput {
	requestID, _ := cmd.Flags().GetString("id")
	privilege, _ := cmd.Flags().GetString("privilege")
	actor, _ := cmd.Flags().GetString("actor")
	return privileging.PrivilegeLineInput{
		RequestID:   strings.TrimSpace(requestID),
		PrivilegeID: strings.TrimSpace(privilege),
		Actor:       strings.TrimSpace(actor),
	}
}

func init() {
	rootCmd.AddCommand(requestCmd)
	requestCmd.AddCommand(
		requestCreateCmd,
		requestAddLineCmd,
		requestRemoveLineCmd,
		requestSubmitCmd,
		requestShowCmd,
		requestListCmd,
		requestProgressCmd,
		requestHistoryCmd,
	)

	requestCreateCmd.Flags().String("requester", "", "Requesting practitioner id")
	requestCreateCmd.Flags().String("kind", "new", "Request kind: new|renewal|reapplication|expansion")
	requestCreateCmd.Flags().StringSlice("privilege", nil, "Privilege id (repeatable)")
	_ = requestCreateCmd.MarkFlagRequired("requester")

	for _, c := range []*cobra.Command{requestAddLineCmd, requestRemoveLineCmd} {
		c.Flags().String("id", "", "Request id")
		c.Flags().String("privilege", "", "Privilege id")
		c.Flags().String("actor", "", "Acting practitioner id")
		_ = c.MarkFlagRequired("id")
		_ = c.MarkFlagRequired("privilege")
	}

	requestSubmitCmd.Flags().String("id", "", "Request id")
	requestSubmitCmd.Flags().String("actor", "", "Acting practitioner id")
	_ = requestSubmitCmd.MarkFlagRequired("id")

	for _, c := range []*cobra.Command{requestShowCmd, requestProgressCmd, requestHistoryCmd} {
		c.Flags().String("id", "", "Request id")
		_ = c.MarkFlagRequired("id")
	}

	requestListCmd.Flags().String("requester", "", "Filter by requester id")
	requestListCmd.Flags().StringSlice("status", nil, "Filter by status (repeatable)")
}
