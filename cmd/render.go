package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"privflow/internal/usecase/privileging"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	alertStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203"))
	activeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("62"))
)

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func renderRequest(detail privileging.RequestDetail) string {
	var builder strings.Builder
	builder.WriteString(titleStyle.Render("Request " + detail.RequestID))
	builder.WriteString("\n")
	builder.WriteString(dimStyle.Render(fmt.Sprintf(
		"requester=%s kind=%s created=%s",
		detail.RequesterID,
		detail.Kind,
		detail.CreatedAt,
	)))
	builder.WriteString("\n")
	builder.WriteString(fmt.Sprintf("Status: %s\n", detail.Status))
	if detail.SubmittedAt != "" {
		builder.WriteString(fmt.Sprintf("Submitted: %s\n", detail.SubmittedAt))
	}
	if detail.CompletedAt != "" {
		builder.WriteString(fmt.Sprintf("Completed: %s\n", detail.CompletedAt))
	}

	builder.WriteString("\n")
	builder.WriteString(sectionStyle.Render("Privileges"))
	builder.WriteString("\n")
	if len(detail.Lines) == 0 {
		builder.WriteString(dimStyle.Render("- none"))
		builder.WriteString("\n")
	}
	for _, line := range detail.Lines {
		text := fmt.Sprintf("- %s [%s]", line.PrivilegeID, line.Decision)
		if line.DecidedBy != "" {
			text += " by " + line.DecidedBy
		}
		if line.Comment != "" {
			text += ": " + line.Comment
		}
		builder.WriteString(text)
		builder.WriteString("\n")
	}
	return builder.String()
}

func renderChain(chain privileging.Chain) string {
	var builder strings.Builder
	builder.WriteString(titleStyle.Render("Approval chain"))
	builder.WriteString("\n")
	builder.WriteString(dimStyle.Render(fmt.Sprintf(
		"specialty_match=%t skipped_supervisor=%t core_only=%t",
		chain.SpecialtyMatch,
		chain.SkippedSupervisor,
		chain.CoreOnly,
	)))
	builder.WriteString("\n")
	if len(chain.Steps) == 0 {
		builder.WriteString(dimStyle.Render("- no review required"))
		builder.WriteString("\n")
	}
	for i, step := range chain.Steps {
		builder.WriteString(fmt.Sprintf("%d. %s %s", i+1, step.Level, step.ReviewerID))
		if step.ReviewerName != "" {
			builder.WriteString(" (" + step.ReviewerName + ")")
		}
		builder.WriteString("\n")
	}
	return builder.String()
}

func renderProgress(progress privileging.Progress) string {
	var builder strings.Builder
	builder.WriteString(titleStyle.Render("Progress " + progress.RequestID))
	builder.WriteString("\n")
	builder.WriteString(fmt.Sprintf("Status: %s\n", progress.Status))
	if progress.CurrentReviewerID != "" {
		builder.WriteString(fmt.Sprintf("Waiting on: %s (%s), %d days\n", progress.CurrentReviewerID, progress.CurrentLevel, progress.DaysPending))
	}
	if progress.IsEscalated {
		builder.WriteString(alertStyle.Render(fmt.Sprintf("Escalated: tier %d", progress.EscalationLevel)))
		builder.WriteString("\n")
	}

	builder.WriteString("\n")
	builder.WriteString(sectionStyle.Render("Levels"))
	builder.WriteString("\n")
	for _, level := range progress.Levels {
		line := fmt.Sprintf("%s %s [%s]", level.Level, level.ReviewerID, level.Status)
		if level.DecidedAt != "" {
			line += " " + level.DecidedAt
		}
		if level.Comment != "" {
			line += ": " + level.Comment
		}
		if progress.CurrentReviewerID != "" && level.Level == progress.CurrentLevel {
			builder.WriteString(activeStyle.Render("> " + line))
		} else {
			builder.WriteString("  " + line)
		}
		builder.WriteString("\n")
	}
	return builder.String()
}

func renderEvents(events []privileging.EventItem) string {
	if len(events) == 0 {
		return dimStyle.Render("- no events") + "\n"
	}
	var builder strings.Builder
	for _, event := range events {
		builder.WriteString(fmt.Sprintf(
			"%s %s %s %s\n",
			dimStyle.Render(event.CreatedAt),
			event.Kind,
			firstNonEmpty(event.Actor, "-"),
			event.Body,
		))
	}
	return builder.String()
}

func renderEscalations(events []privileging.EscalationEvent) string {
	if len(events) == 0 {
		return dimStyle.Render("- no escalations") + "\n"
	}
	var builder strings.Builder
	for _, ev := range events {
		builder.WriteString(fmt.Sprintf(
			"%s request=%s level=%s reviewer=%s tier=%d days=%d\n",
			ev.Kind,
			ev.RequestID,
			ev.Level,
			ev.ReviewerID,
			ev.EscalationLevel,
			ev.DaysPending,
		))
	}
	return builder.String()
}
