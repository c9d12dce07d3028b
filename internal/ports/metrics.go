package ports

// WorkflowMetrics records workflow outcomes. Implementations must be safe for
// concurrent use.
type WorkflowMetrics interface {
	ObserveSubmission(result string)
	ObserveDecision(decision string, result string)
	ObserveEscalation(kind string)
	SetOpenEscalations(n int)
}
