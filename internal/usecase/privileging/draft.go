package privileging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"privflow/internal/bootstrap/logging"
	domain "privflow/internal/domain/privileging"
	"privflow/internal/errs"
	"privflow/internal/ports"
)

// CreateRequest opens a draft owned by the requester. Privileges listed in the
// input become the initial lines.
func (s *Service) CreateRequest(ctx context.Context, input CreateRequestInput) (RequestDetail, error) {
	if err := s.ready(ctx); err != nil {
		return RequestDetail{}, err
	}
	requesterID := strings.TrimSpace(input.RequesterID)
	if requesterID == "" {
		return RequestDetail{}, fmt.Errorf("%w: %v", domain.ErrValidation, errRequesterIDRequired)
	}
	kind, err := domain.ParseRequestKind(input.Kind)
	if err != nil {
		return RequestDetail{}, err
	}
	if _, err := s.directory.GetPractitioner(ctx, requesterID); err != nil {
		if errors.Is(err, ports.ErrPractitionerNotFound) {
			return RequestDetail{}, fmt.Errorf("%w: requester %s", domain.ErrNotFound, requesterID)
		}
		return RequestDetail{}, err
	}

	privilegeIDs := normalizeIDs(input.PrivilegeIDs)
	if err := s.checkPrivileges(ctx, privilegeIDs); err != nil {
		return RequestDetail{}, err
	}

	requestID := uuid.NewString()
	now := formatTime(s.nowUTC())
	err = s.uow.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.CreateRequest(txCtx, ports.Request{
			ID:          requestID,
			RequesterID: requesterID,
			Kind:        kind,
			Status:      domain.StatusDraft,
			CreatedAt:   now,
			UpdatedAt:   now,
		}); err != nil {
			return err
		}
		for _, privilegeID := range privilegeIDs {
			if _, err := s.repo.AddPrivilegeLine(txCtx, ports.PrivilegeLine{
				RequestID:   requestID,
				PrivilegeID: privilegeID,
				Decision:    domain.LineUndecided,
				CreatedAt:   now,
			}); err != nil {
				return err
			}
		}
		return s.appendEvent(txCtx, requestID, requesterID, eventCreated, string(kind))
	})
	if err != nil {
		return RequestDetail{}, errs.Wrap(err, "create request")
	}

	logging.Info(
		logContext(ctx, "create_request", slog.String("request_id", requestID)),
		"draft request created",
		slog.String("requester_id", requesterID),
		slog.String("kind", string(kind)),
		slog.Int("lines", len(privilegeIDs)),
	)
	return s.GetRequest(ctx, requestID)
}

// AddPrivilegeLine appends a privilege to a draft. Actor, when set, must be
// the requester.
func (s *Service) AddPrivilegeLine(ctx context.Context, input PrivilegeLineInput) (RequestDetail, error) {
	if err := s.ready(ctx); err != nil {
		return RequestDetail{}, err
	}
	requestID := strings.TrimSpace(input.RequestID)
	privilegeID := strings.TrimSpace(input.PrivilegeID)
	if requestID == "" {
		return RequestDetail{}, fmt.Errorf("%w: %v", domain.ErrValidation, errRequestIDRequired)
	}
	if privilegeID == "" {
		return RequestDetail{}, fmt.Errorf("%w: privilege id is required", domain.ErrValidation)
	}
	if err := s.checkPrivileges(ctx, []string{privilegeID}); err != nil {
		return RequestDetail{}, err
	}

	err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		req, err := s.draftOwnedBy(txCtx, requestID, input.Actor)
		if err != nil {
			return err
		}
		now := formatTime(s.nowUTC())
		if _, err := s.repo.AddPrivilegeLine(txCtx, ports.PrivilegeLine{
			RequestID:   req.ID,
			PrivilegeID: privilegeID,
			Decision:    domain.LineUndecided,
			CreatedAt:   now,
		}); err != nil {
			if errors.Is(err, ports.ErrDuplicateLine) {
				return fmt.Errorf("%w: privilege %s already on request", domain.ErrValidation, privilegeID)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return RequestDetail{}, err
	}
	return s.GetRequest(ctx, requestID)
}

// RemovePrivilegeLine drops a privilege from a draft.
func (s *Service) RemovePrivilegeLine(ctx context.Context, input PrivilegeLineInput) (RequestDetail, error) {
	if err := s.ready(ctx); err != nil {
		return RequestDetail{}, err
	}
	requestID := strings.TrimSpace(input.RequestID)
	privilegeID := strings.TrimSpace(input.PrivilegeID)
	if requestID == "" {
		return RequestDetail{}, fmt.Errorf("%w: %v", domain.ErrValidation, errRequestIDRequired)
	}

	err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := s.draftOwnedBy(txCtx, requestID, input.Actor); err != nil {
			return err
		}
		removed, err := s.repo.RemovePrivilegeLine(txCtx, requestID, privilegeID)
		if err != nil {
			return err
		}
		if !removed {
			return fmt.Errorf("%w: privilege %s not on request", domain.ErrNotFound, privilegeID)
		}
		return nil
	})
	if err != nil {
		return RequestDetail{}, err
	}
	return s.GetRequest(ctx, requestID)
}

func (s *Service) GetRequest(ctx context.Context, requestID string) (RequestDetail, error) {
	if err := s.ready(ctx); err != nil {
		return RequestDetail{}, err
	}
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return RequestDetail{}, fmt.Errorf("%w: %v", domain.ErrValidation, errRequestIDRequired)
	}

	req, err := s.getRequest(ctx, requestID)
	if err != nil {
		return RequestDetail{}, err
	}
	lines, err := s.repo.ListPrivilegeLines(ctx, requestID)
	if err != nil {
		return RequestDetail{}, err
	}
	return toRequestDetail(req, lines), nil
}

// ListRequests filters by requester and status; both are optional.
func (s *Service) ListRequests(ctx context.Context, requesterID string, statuses []string) ([]RequestDetail, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	filter := ports.RequestFilter{RequesterID: strings.TrimSpace(requesterID)}
	for _, raw := range statuses {
		status := domain.RequestStatus(strings.ToLower(strings.TrimSpace(raw)))
		switch status {
		case domain.StatusDraft, domain.StatusPending, domain.StatusInReview, domain.StatusApproved, domain.StatusRejected:
			filter.Statuses = append(filter.Statuses, status)
		default:
			return nil, fmt.Errorf("%w: unknown request status %q", domain.ErrValidation, raw)
		}
	}

	requests, err := s.repo.ListRequests(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]RequestDetail, 0, len(requests))
	for _, req := range requests {
		out = append(out, toRequestDetail(req, nil))
	}
	return out, nil
}

func (s *Service) checkPrivileges(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := s.directory.GetPrivileges(ctx, ids); err != nil {
		if errors.Is(err, ports.ErrPrivilegeNotFound) {
			return fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
		return err
	}
	return nil
}

func (s *Service) draftOwnedBy(ctx context.Context, requestID string, actor string) (ports.Request, error) {
	req, err := s.getRequest(ctx, requestID)
	if err != nil {
		return ports.Request{}, err
	}
	if actor = strings.TrimSpace(actor); actor != "" && actor != req.RequesterID {
		return ports.Request{}, fmt.Errorf("%w: only the requester may edit request %s", domain.ErrForbidden, requestID)
	}
	if req.Status != domain.StatusDraft {
		return ports.Request{}, fmt.Errorf("%w: request %s is %s", domain.ErrInvalidState, requestID, req.Status)
	}
	return req, nil
}

func toRequestDetail(req ports.Request, lines []ports.PrivilegeLine) RequestDetail {
	detail := RequestDetail{
		RequestID:   req.ID,
		RequesterID: req.RequesterID,
		Kind:        req.Kind,
		Status:      req.Status,
		CreatedAt:   req.CreatedAt,
		SubmittedAt: derefString(req.SubmittedAt),
		CompletedAt: derefString(req.CompletedAt),
	}
	for _, line := range lines {
		detail.Lines = append(detail.Lines, RequestLine{
			PrivilegeID: line.PrivilegeID,
			Decision:    line.Decision,
			Comment:     line.Comment,
			DecidedBy:   derefString(line.DecidedBy),
		})
	}
	return detail
}
