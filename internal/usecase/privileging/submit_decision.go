package privileging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"privflow/internal/bootstrap/logging"
	domain "privflow/internal/domain/privileging"
	"privflow/internal/errs"
	"privflow/internal/ports"
)

type parsedLineDecision struct {
	privilegeID string
	decision    domain.LineDecision
	comment     string
}

// SubmitDecision records one reviewer's decision on the active level. The
// record write, line decisions, status derivation and escalation bookkeeping
// commit together or not at all.
func (s *Service) SubmitDecision(ctx context.Context, input DecisionInput) (DecisionResult, error) {
	if err := s.ready(ctx); err != nil {
		return DecisionResult{}, err
	}
	requestID := strings.TrimSpace(input.RequestID)
	reviewerID := strings.TrimSpace(input.ReviewerID)
	if requestID == "" {
		return DecisionResult{}, fmt.Errorf("%w: %v", domain.ErrValidation, errRequestIDRequired)
	}
	if reviewerID == "" {
		return DecisionResult{}, fmt.Errorf("%w: %v", domain.ErrValidation, errReviewerIDRequired)
	}
	decision, err := domain.ParseDecision(input.Decision)
	if err != nil {
		return DecisionResult{}, err
	}
	var expectedLevel domain.ReviewLevel
	if raw := strings.TrimSpace(input.ExpectedLevel); raw != "" {
		expectedLevel, err = domain.ParseReviewLevel(raw)
		if err != nil {
			return DecisionResult{}, err
		}
	}
	lineDecisions, err := parseLineDecisions(input.LineDecisions)
	if err != nil {
		return DecisionResult{}, err
	}

	ctx = logContext(
		ctx,
		"submit_decision",
		slog.String("request_id", requestID),
		slog.String("reviewer_id", reviewerID),
	)

	var (
		result      DecisionResult
		requesterID string
	)
	err = s.uow.WithTx(ctx, func(txCtx context.Context) error {
		req, err := s.getRequest(txCtx, requestID)
		if err != nil {
			return err
		}
		requesterID = req.RequesterID

		records, err := s.repo.ListApprovalRecords(txCtx, requestID)
		if err != nil {
			return err
		}
		entries := ledgerEntries(records)

		index, err := resolveReviewerRecord(req.Status, entries, reviewerID, expectedLevel)
		if err != nil {
			return err
		}
		rec := records[index]
		if input.ExpectedVersion != nil && *input.ExpectedVersion != rec.Version {
			return fmt.Errorf("%w: %s record is at version %d, not %d", domain.ErrAlreadyDecided, rec.Level, rec.Version, *input.ExpectedVersion)
		}
		if decision == domain.DecisionReturned {
			events, err := s.repo.ListEvents(txCtx, requestID)
			if err != nil {
				return err
			}
			if repeatedReturn(events, requesterID, reviewerID, rec.Level) {
				return fmt.Errorf("%w: %s already returned request %s at %s", domain.ErrAlreadyDecided, reviewerID, requestID, rec.Level)
			}
		}

		transition, err := domain.ApplyDecision(entries, index, decision)
		if err != nil {
			return err
		}

		now := formatTime(s.nowUTC())
		written, err := s.repo.DecideApprovalRecord(txCtx, ports.ApprovalDecisionWrite{
			RecordID:        rec.RecordID,
			ExpectedVersion: rec.Version,
			Status:          decision.RecordStatus(),
			Comment:         input.Comment,
			DecidedAt:       now,
		})
		if err != nil {
			return err
		}
		if !written {
			return fmt.Errorf("%w: %s record of request %s", domain.ErrAlreadyDecided, rec.Level, requestID)
		}

		if err := s.applyLineDecisions(txCtx, requestID, reviewerID, lineDecisions, transition.Status); err != nil {
			return err
		}

		write := ports.RequestStatusWrite{
			RequestID: requestID,
			From:      req.Status,
			To:        transition.Status,
			UpdatedAt: now,
		}
		if transition.Status.Terminal() {
			write.CompletedAt = stringPtr(now)
		}
		updated, err := s.repo.UpdateRequestStatus(txCtx, write)
		if err != nil {
			return err
		}
		if !updated {
			return fmt.Errorf("%w: request %s changed concurrently", domain.ErrAlreadyDecided, requestID)
		}

		if _, err := s.repo.CloseOpenEscalations(txCtx, requestID, now); err != nil {
			return err
		}

		result = DecisionResult{
			RequestID: requestID,
			Level:     rec.Level,
			Decision:  decision,
			Status:    transition.Status,
		}
		if transition.Status.Terminal() {
			result.CompletedAt = now
		} else if transition.Active >= 0 {
			next := records[transition.Active]
			if _, err := s.repo.OpenEscalation(txCtx, ports.EscalationCreate{
				RequestID:        requestID,
				ApprovalRecordID: next.RecordID,
				ReceivedAt:       now,
			}); err != nil {
				return err
			}
			result.NextLevel = next.Level
			result.NextReviewerID = next.ReviewerID
		}

		body := decisionEventBody(rec.Level, decision)
		if c := strings.TrimSpace(input.Comment); c != "" {
			body += " comment=" + c
		}
		return s.appendEvent(txCtx, requestID, reviewerID, eventDecision, body)
	})
	if err != nil {
		s.metrics.ObserveDecision(string(decision), domain.ErrorKind(err))
		logging.Warn(ctx, "submit decision failed", slog.Any("err", errs.Loggable(err)))
		return DecisionResult{}, err
	}

	s.metrics.ObserveDecision(string(decision), "ok")
	s.setCacheBestEffort(ctx, cacheRequestStatusKey(requestID), string(result.Status), requestStatusTTL)
	logging.Info(
		ctx,
		"decision recorded",
		slog.String("level", result.Level.String()),
		slog.String("decision", string(decision)),
		slog.String("status", string(result.Status)),
	)
	s.dispatch(ctx, decisionNotifications(result, requesterID))
	return result, nil
}

// resolveReviewerRecord picks the ledger entry the reviewer is deciding on.
// A reviewer whose own record is already decided is told so rather than
// being treated as out of turn.
func resolveReviewerRecord(status domain.RequestStatus, entries []domain.LedgerEntry, reviewerID string, expected domain.ReviewLevel) (int, error) {
	var (
		assigned bool
		decided  bool
	)
	for i, entry := range entries {
		if entry.ReviewerID != reviewerID {
			continue
		}
		assigned = true
		if entry.Status != domain.RecordPending {
			decided = true
		}
		if expected != 0 && entry.Level == expected && entry.Status != domain.RecordPending {
			return -1, fmt.Errorf("%w: %s", domain.ErrAlreadyDecided, entries[i].Level)
		}
	}

	if !status.Decidable() {
		if decided {
			return -1, domain.ErrAlreadyDecided
		}
		return -1, fmt.Errorf("%w: request is %s", domain.ErrInvalidState, status)
	}

	active := domain.ActiveIndex(entries)
	if active < 0 {
		return -1, fmt.Errorf("%w: no pending approval record", domain.ErrInvalidState)
	}
	if entries[active].ReviewerID == reviewerID && (expected == 0 || expected == entries[active].Level) {
		return active, nil
	}

	switch {
	case !assigned:
		return -1, fmt.Errorf("%w: %s is not a reviewer on this request", domain.ErrForbidden, reviewerID)
	case expected == 0 && decided && entries[active].ReviewerID != reviewerID && !hasPending(entries, reviewerID):
		return -1, domain.ErrAlreadyDecided
	default:
		return -1, fmt.Errorf("%w: active level is %s", domain.ErrNotYourTurn, entries[active].Level)
	}
}

// repeatedReturn reports whether the latest decision or requester event on the
// request is a return by the same reviewer at the same level. Escalation
// events do not count.
func repeatedReturn(events []ports.RequestEvent, requesterID string, reviewerID string, level domain.ReviewLevel) bool {
	returned := decisionEventBody(level, domain.DecisionReturned)
	for i := len(events) - 1; i >= 0; i-- {
		ev := events[i]
		switch {
		case ev.Kind == eventEscalation:
			continue
		case ev.Actor == requesterID:
			return false
		case ev.Kind == eventDecision:
			return ev.Actor == reviewerID && (ev.Body == returned || strings.HasPrefix(ev.Body, returned+" "))
		}
	}
	return false
}

func decisionEventBody(level domain.ReviewLevel, decision domain.Decision) string {
	return fmt.Sprintf("level=%s decision=%s", level, decision)
}

func hasPending(entries []domain.LedgerEntry, reviewerID string) bool {
	for _, entry := range entries {
		if entry.ReviewerID == reviewerID && entry.Status == domain.RecordPending {
			return true
		}
	}
	return false
}

func parseLineDecisions(in []LineDecisionInput) ([]parsedLineDecision, error) {
	if len(in) == 0 {
		return nil, nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]parsedLineDecision, 0, len(in))
	for _, item := range in {
		privilegeID := strings.TrimSpace(item.PrivilegeID)
		if privilegeID == "" {
			return nil, fmt.Errorf("%w: line decision without privilege id", domain.ErrValidation)
		}
		if _, ok := seen[privilegeID]; ok {
			return nil, fmt.Errorf("%w: duplicate line decision for %s", domain.ErrValidation, privilegeID)
		}
		seen[privilegeID] = struct{}{}

		decision, err := domain.ParseLineDecision(item.Decision)
		if err != nil {
			return nil, err
		}
		out = append(out, parsedLineDecision{privilegeID: privilegeID, decision: decision, comment: item.Comment})
	}
	return out, nil
}

// applyLineDecisions writes explicit per-line decisions. When the request
// reaches a terminal status, lines nobody decided take the aggregate outcome.
func (s *Service) applyLineDecisions(ctx context.Context, requestID string, reviewerID string, decisions []parsedLineDecision, status domain.RequestStatus) error {
	if len(decisions) == 0 && !status.Terminal() {
		return nil
	}

	lines, err := s.repo.ListPrivilegeLines(ctx, requestID)
	if err != nil {
		return err
	}
	byPrivilege := make(map[string]ports.PrivilegeLine, len(lines))
	for _, line := range lines {
		byPrivilege[line.PrivilegeID] = line
	}

	explicit := make(map[string]struct{}, len(decisions))
	for _, d := range decisions {
		line, ok := byPrivilege[d.privilegeID]
		if !ok {
			return fmt.Errorf("%w: privilege %s is not on request %s", domain.ErrValidation, d.privilegeID, requestID)
		}
		if _, err := s.repo.SetLineDecision(ctx, ports.LineDecisionWrite{
			RequestID: requestID,
			LineID:    line.LineID,
			Decision:  d.decision,
			Comment:   d.comment,
			DecidedBy: reviewerID,
		}); err != nil {
			return err
		}
		explicit[d.privilegeID] = struct{}{}
	}

	if !status.Terminal() {
		return nil
	}
	inherited := domain.LineGranted
	if status == domain.StatusRejected {
		inherited = domain.LineDenied
	}
	for _, line := range lines {
		if _, ok := explicit[line.PrivilegeID]; ok {
			continue
		}
		if line.Decision != domain.LineUndecided {
			continue
		}
		if _, err := s.repo.SetLineDecision(ctx, ports.LineDecisionWrite{
			RequestID: requestID,
			LineID:    line.LineID,
			Decision:  inherited,
			Comment:   line.Comment,
			DecidedBy: reviewerID,
		}); err != nil {
			return err
		}
	}
	return nil
}

func decisionNotifications(result DecisionResult, requesterID string) []ports.Notification {
	ctx := map[string]string{
		"level":    result.Level.String(),
		"decision": string(result.Decision),
		"status":   string(result.Status),
	}
	switch {
	case result.Status == domain.StatusApproved:
		return []ports.Notification{{Kind: NotifyRequestApproved, Recipient: requesterID, RequestID: result.RequestID, Context: ctx}}
	case result.Status == domain.StatusRejected:
		return []ports.Notification{{Kind: NotifyRequestRejected, Recipient: requesterID, RequestID: result.RequestID, Context: ctx}}
	case result.Decision == domain.DecisionReturned:
		return []ports.Notification{{Kind: NotifyRequestReturned, Recipient: requesterID, RequestID: result.RequestID, Context: ctx}}
	default:
		next := map[string]string{"level": result.NextLevel.String()}
		return []ports.Notification{{Kind: NotifyReviewRequested, Recipient: result.NextReviewerID, RequestID: result.RequestID, Context: next}}
	}
}
