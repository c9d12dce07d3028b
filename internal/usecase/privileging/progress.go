package privileging

import (
	"context"
	"fmt"
	"strings"
	"time"

	domain "privflow/internal/domain/privileging"
)

// GetProgress is the read-only view of a request's ledger and clock.
func (s *Service) GetProgress(ctx context.Context, requestID string) (Progress, error) {
	if err := s.ready(ctx); err != nil {
		return Progress{}, err
	}
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return Progress{}, fmt.Errorf("%w: %v", domain.ErrValidation, errRequestIDRequired)
	}

	req, err := s.getRequest(ctx, requestID)
	if err != nil {
		return Progress{}, err
	}
	records, err := s.repo.ListApprovalRecords(ctx, requestID)
	if err != nil {
		return Progress{}, err
	}

	progress := Progress{
		RequestID:   req.ID,
		Status:      req.Status,
		Levels:      make([]LevelProgress, 0, len(records)),
		SubmittedAt: derefString(req.SubmittedAt),
		CompletedAt: derefString(req.CompletedAt),
	}
	for _, rec := range records {
		progress.Levels = append(progress.Levels, LevelProgress{
			Level:      rec.Level,
			ReviewerID: rec.ReviewerID,
			Status:     rec.Status,
			Comment:    rec.Comment,
			DecidedAt:  derefString(rec.DecidedAt),
			Version:    rec.Version,
		})
	}

	if !req.Status.Decidable() {
		return progress, nil
	}
	if active := domain.ActiveIndex(ledgerEntries(records)); active >= 0 {
		progress.CurrentLevel = records[active].Level
		progress.CurrentReviewerID = records[active].ReviewerID
	}

	esc, ok, err := s.repo.GetOpenEscalation(ctx, requestID)
	if err != nil {
		return Progress{}, err
	}
	if ok {
		received, err := parseTime(esc.ReceivedAt)
		if err != nil {
			return Progress{}, err
		}
		progress.DaysPending = domain.DaysPending(received, s.nowUTC())
		progress.EscalationLevel = esc.Level
		progress.IsEscalated = esc.Level > 0
	}
	return progress, nil
}

func (s *Service) ListRequestEvents(ctx context.Context, requestID string) ([]EventItem, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, errRequestIDRequired)
	}
	if _, err := s.getRequest(ctx, requestID); err != nil {
		return nil, err
	}

	events, err := s.repo.ListEvents(ctx, requestID)
	if err != nil {
		return nil, err
	}
	out := make([]EventItem, 0, len(events))
	for _, ev := range events {
		out = append(out, EventItem{
			EventID:   ev.EventID,
			Actor:     ev.Actor,
			Kind:      ev.Kind,
			Body:      ev.Body,
			CreatedAt: ev.CreatedAt,
		})
	}
	return out, nil
}

// GetLastSweep returns the watermark of the last completed sweep, if cached.
func (s *Service) GetLastSweep(ctx context.Context) (time.Time, bool, error) {
	if ctx == nil {
		return time.Time{}, false, fmt.Errorf("context is required")
	}
	if s.cache == nil {
		return time.Time{}, false, nil
	}
	raw, found, err := s.cache.Get(ctx, cacheLastSweepKey)
	if err != nil || !found {
		return time.Time{}, false, err
	}
	at, err := parseTime(raw)
	if err != nil {
		return time.Time{}, false, err
	}
	return at, true, nil
}
