package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"privflow/internal/bootstrap"
	"privflow/internal/bootstrap/logging"
	domain "privflow/internal/domain/privileging"
	"privflow/internal/errs"
	"privflow/internal/usecase/privileging"
)

var decideCmd = &cobra.Command{
	Use:   "decide",
	Short: "Record a reviewer decision on the active level",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc services) error {
		ctx := commandContext(cmd)

		requestID, _ := cmd.Flags().GetString("id")
		reviewer, _ := cmd.Flags().GetString("reviewer")
		decision, _ := cmd.Flags().GetString("decision")
		level, _ := cmd.Flags().GetString("level")
		grants, _ := cmd.Flags().GetStringSlice("grant")
		denies, _ := cmd.Flags().GetStringSlice("deny")

		comment, err := resolveComment(cmd)
		if err != nil {
			return err
		}

		lines := make([]privileging.LineDecisionInput, 0, len(grants)+len(denies))
		for _, id := range grants {
			lines = append(lines, privileging.LineDecisionInput{PrivilegeID: id, Decision: string(domain.LineGranted)})
		}
		for _, id := range denies {
			lines = append(lines, privileging.LineDecisionInput{PrivilegeID: id, Decision: string(domain.LineDenied)})
		}

		input := privileging.DecisionInput{
			RequestID:     requestID,
			ReviewerID:    reviewer,
			Decision:      decision,
			Comment:       comment,
			LineDecisions: lines,
			ExpectedLevel: level,
		}
		if cmd.Flags().Changed("expected-version") {
			version, _ := cmd.Flags().GetInt("expected-version")
			input.ExpectedVersion = &version
		}

		result, err := svc.Workflow.SubmitDecision(ctx, input)
		if err != nil {
			logging.Error(ctx, "submit decision failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "submit decision")
		}

		out := cmd.OutOrStdout()
		if _, err := fmt.Fprintf(out, "%s %s at %s, request is %s\n", reviewer, result.Decision, result.Level, result.Status); err != nil {
			return errs.Wrap(err, "write decide output")
		}
		if result.NextReviewerID != "" {
			if _, err := fmt.Fprintf(out, "next: %s (%s)\n", result.NextReviewerID, result.NextLevel); err != nil {
				return errs.Wrap(err, "write decide output")
			}
		}
		return nil
	}),
}

func resolveComment(cmd *cobra.Command) (string, error) {
	inline, _ := cmd.Flags().GetString("comment")
	commentFile, _ := cmd.Flags().GetString("comment-file")

	if strings.TrimSpace(inline) != "" && strings.TrimSpace(commentFile) != "" {
		return "", errors.New("comment and comment-file are mutually exclusive")
	}

	if strings.TrimSpace(commentFile) != "" {
		raw, err := os.ReadFile(commentFile)
		if err != nil {
			return "", errs.Wrapf(err, "read comment file %q", commentFile)
		}
		inline = string(raw)
	}
	return strings.TrimSpace(inline), nil
}

func init() {
	rootCmd.AddCommand(decideCmd)

	decideCmd.Flags().String("id", "", "Request id")
	decideCmd.Flags().String("reviewer", "", "Reviewer practitioner id")
	decideCmd.Flags().String("decision", "", "approved|rejected|returned_for_modification")
	decideCmd.Flags().String("comment", "", "Decision comment")
	decideCmd.Flags().String("comment-file", "", "Read the decision comment from a file")
	decideCmd.Flags().String("level", "", "Level the reviewer expects to be active")
	decideCmd.Flags().Int("expected-version", 0, "Record version the reviewer last saw (see progress)")
	decideCmd.Flags().StringSlice("grant", nil, "Privilege id to grant (repeatable)")
	decideCmd.Flags().StringSlice("deny", nil, "Privilege id to deny (repeatable)")
	_ = decideCmd.MarkFlagRequired("id")
	_ = decideCmd.MarkFlagRequired("reviewer")
	_ = decideCmd.MarkFlagRequired("decision")
}
