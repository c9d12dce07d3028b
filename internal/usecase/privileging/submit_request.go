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

// SubmitRequest freezes a draft (or a rejected request being resubmitted),
// builds its chain and initialises the ledger in one transaction. Any failure
// leaves the request untouched.
func (s *Service) SubmitRequest(ctx context.Context, input SubmitRequestInput) (SubmitResult, error) {
	if err := s.ready(ctx); err != nil {
		return SubmitResult{}, err
	}
	requestID := strings.TrimSpace(input.RequestID)
	if requestID == "" {
		return SubmitResult{}, fmt.Errorf("%w: %v", domain.ErrValidation, errRequestIDRequired)
	}
	ctx = logContext(ctx, "submit_request", slog.String("request_id", requestID))

	var (
		result        SubmitResult
		requesterID   string
		resubmission  bool
		firstReviewer string
	)
	err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		req, err := s.getRequest(txCtx, requestID)
		if err != nil {
			return err
		}
		if actor := strings.TrimSpace(input.Actor); actor != "" && actor != req.RequesterID {
			return fmt.Errorf("%w: only the requester may submit request %s", domain.ErrForbidden, requestID)
		}
		if !req.Status.Submittable() {
			return fmt.Errorf("%w: request %s is %s", domain.ErrInvalidState, requestID, req.Status)
		}
		requesterID = req.RequesterID
		resubmission = req.Status == domain.StatusRejected

		lines, err := s.repo.ListPrivilegeLines(txCtx, requestID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return fmt.Errorf("%w: request %s has no privilege lines", domain.ErrValidation, requestID)
		}
		privilegeIDs := make([]string, 0, len(lines))
		for _, line := range lines {
			privilegeIDs = append(privilegeIDs, line.PrivilegeID)
		}

		chain, err := s.BuildChain(txCtx, BuildChainInput{
			RequesterID:  req.RequesterID,
			PrivilegeIDs: privilegeIDs,
			Kind:         string(req.Kind),
		})
		if err != nil {
			return err
		}
		if chain.CoreOnly && !s.opts.AutoApproveCore {
			return fmt.Errorf("%w: request %s contains only core privileges", domain.ErrValidation, requestID)
		}

		now := formatTime(s.nowUTC())
		if resubmission {
			if err := s.repo.DeleteLedger(txCtx, requestID); err != nil {
				return err
			}
			if err := s.repo.ResetLineDecisions(txCtx, requestID); err != nil {
				return err
			}
		}
		if err := s.grantCoreLines(txCtx, requestID, lines, privilegeIDs); err != nil {
			return err
		}

		write := ports.RequestStatusWrite{
			RequestID:        requestID,
			From:             req.Status,
			To:               domain.StatusPending,
			UpdatedAt:        now,
			SubmittedAt:      stringPtr(now),
			ClearCompletedAt: true,
		}

		if chain.CoreOnly {
			write.To = domain.StatusApproved
			write.CompletedAt = stringPtr(now)
			write.ClearCompletedAt = false
		} else {
			creates := make([]ports.ApprovalRecordCreate, 0, len(chain.Steps))
			for _, step := range chain.Steps {
				creates = append(creates, ports.ApprovalRecordCreate{
					RequestID:  requestID,
					Level:      step.Level,
					ReviewerID: step.ReviewerID,
					CreatedAt:  now,
				})
			}
			records, err := s.repo.CreateApprovalRecords(txCtx, creates)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				return fmt.Errorf("%w: empty approval chain for request %s", domain.ErrNoApproverAvailable, requestID)
			}
			if _, err := s.repo.OpenEscalation(txCtx, ports.EscalationCreate{
				RequestID:        requestID,
				ApprovalRecordID: records[0].RecordID,
				ReceivedAt:       now,
			}); err != nil {
				return err
			}
			firstReviewer = records[0].ReviewerID
		}

		updated, err := s.repo.UpdateRequestStatus(txCtx, write)
		if err != nil {
			return err
		}
		if !updated {
			return fmt.Errorf("%w: request %s changed concurrently", domain.ErrInvalidState, requestID)
		}

		body := fmt.Sprintf("levels=%d", len(chain.Steps))
		if chain.CoreOnly {
			body = "core_only=auto_approved"
		}
		if err := s.appendEvent(txCtx, requestID, req.RequesterID, eventSubmitted, body); err != nil {
			return err
		}

		result = SubmitResult{
			RequestID:    requestID,
			Status:       write.To,
			Chain:        chain.Steps,
			AutoApproved: chain.CoreOnly,
		}
		return nil
	})
	if err != nil {
		s.metrics.ObserveSubmission(domain.ErrorKind(err))
		logging.Warn(ctx, "submit request failed", slog.Any("err", errs.Loggable(err)))
		return SubmitResult{}, err
	}

	s.metrics.ObserveSubmission("ok")
	s.setCacheBestEffort(ctx, cacheRequestStatusKey(requestID), string(result.Status), requestStatusTTL)
	logging.Info(
		ctx,
		"request submitted",
		slog.String("status", string(result.Status)),
		slog.Int("levels", len(result.Chain)),
		slog.Bool("resubmission", resubmission),
	)

	notifications := []ports.Notification{{
		Kind:      NotifyRequestSubmitted,
		Recipient: requesterID,
		RequestID: requestID,
		Context:   map[string]string{"status": string(result.Status)},
	}}
	if result.AutoApproved {
		notifications = append(notifications, ports.Notification{
			Kind:      NotifyRequestApproved,
			Recipient: requesterID,
			RequestID: requestID,
		})
	} else {
		notifications = append(notifications, ports.Notification{
			Kind:      NotifyReviewRequested,
			Recipient: firstReviewer,
			RequestID: requestID,
			Context:   map[string]string{"level": result.Chain[0].Level.String()},
		})
	}
	s.dispatch(ctx, notifications)
	return result, nil
}

// grantCoreLines marks core privilege lines granted; they never enter the chain.
func (s *Service) grantCoreLines(ctx context.Context, requestID string, lines []ports.PrivilegeLine, privilegeIDs []string) error {
	privileges, err := s.directory.GetPrivileges(ctx, privilegeIDs)
	if err != nil {
		return err
	}
	core := make(map[string]bool, len(privileges))
	for _, p := range privileges {
		core[p.ID] = p.Core
	}

	for _, line := range lines {
		if !core[line.PrivilegeID] {
			continue
		}
		if _, err := s.repo.SetLineDecision(ctx, ports.LineDecisionWrite{
			RequestID: requestID,
			LineID:    line.LineID,
			Decision:  domain.LineGranted,
			Comment:   "core privilege",
			DecidedBy: systemActor,
		}); err != nil {
			return err
		}
	}
	return nil
}
