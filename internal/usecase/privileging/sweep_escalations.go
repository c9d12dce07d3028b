package privileging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"privflow/internal/bootstrap/logging"
	domain "privflow/internal/domain/privileging"
	"privflow/internal/errs"
	"privflow/internal/ports"
)

const (
	EscalationKindWarning   = "warning"
	EscalationKindEscalated = "escalated"
)

// SweepEscalations evaluates every open escalation record against now. Each
// record is updated in its own transaction; records closed meanwhile are
// skipped. Request status is never touched here.
func (s *Service) SweepEscalations(ctx context.Context, now time.Time) ([]EscalationEvent, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if err := s.opts.Policy.Validate(); err != nil {
		return nil, err
	}
	if now.IsZero() {
		now = s.nowUTC()
	}
	now = now.UTC()
	ctx = logContext(ctx, "sweep_escalations", slog.String("now", formatTime(now)))

	open, err := s.repo.ListOpenEscalations(ctx)
	if err != nil {
		return nil, errs.Wrap(err, "list open escalations")
	}

	workers := s.opts.SweepWorkers
	if workers > len(open) {
		workers = len(open)
	}

	var (
		mu       sync.Mutex
		events   []EscalationEvent
		firstErr error
		wg       sync.WaitGroup
	)
	jobs := make(chan ports.EscalationRecord)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rec := range jobs {
				ev, fired, err := s.sweepOne(ctx, rec.EscalationID, now)
				mu.Lock()
				switch {
				case err != nil:
					if firstErr == nil {
						firstErr = errs.WithStack(errs.Wrapf(err, "escalation %d", rec.EscalationID))
					}
				case fired:
					events = append(events, ev)
				}
				mu.Unlock()
			}
		}()
	}

dispatchLoop:
	for _, rec := range open {
		select {
		case <-ctx.Done():
			break dispatchLoop
		case jobs <- rec:
		}
	}
	close(jobs)
	wg.Wait()

	sort.Slice(events, func(i, j int) bool {
		return events[i].EscalationID < events[j].EscalationID
	})

	for _, ev := range events {
		s.metrics.ObserveEscalation(ev.Kind)
	}
	if remaining, err := s.repo.ListOpenEscalations(ctx); err == nil {
		s.metrics.SetOpenEscalations(len(remaining))
	}

	notifications := make([]ports.Notification, 0, len(events))
	for _, ev := range events {
		kind := NotifyEscalationWarning
		if ev.Kind == EscalationKindEscalated {
			kind = NotifyEscalationRaised
		}
		notifications = append(notifications, ports.Notification{
			Kind:      kind,
			Recipient: ev.ReviewerID,
			RequestID: ev.RequestID,
			Context: map[string]string{
				"level":            ev.Level.String(),
				"days_pending":     fmt.Sprintf("%d", ev.DaysPending),
				"escalation_level": fmt.Sprintf("%d", ev.EscalationLevel),
			},
		})
	}
	// Committed transitions notify even when another record failed.
	s.dispatch(ctx, notifications)

	if firstErr != nil {
		logging.Error(ctx, "escalation sweep failed", slog.Any("err", errs.Loggable(firstErr)))
		return events, firstErr
	}
	if err := ctx.Err(); err != nil {
		return events, err
	}

	s.setCacheBestEffort(ctx, cacheLastSweepKey, formatTime(now), ports.NoExpiry)
	logging.Info(ctx, "escalation sweep finished", slog.Int("open", len(open)), slog.Int("events", len(events)))
	return events, nil
}

func (s *Service) sweepOne(ctx context.Context, escalationID uint64, now time.Time) (EscalationEvent, bool, error) {
	var (
		event EscalationEvent
		fired bool
	)
	err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		rec, err := s.repo.GetEscalation(txCtx, escalationID)
		if err != nil {
			if errors.Is(err, ports.ErrEscalationNotFound) {
				return nil
			}
			return err
		}
		if rec.ClosedAt != nil {
			return nil
		}

		received, err := parseTime(rec.ReceivedAt)
		if err != nil {
			return err
		}
		prev := domain.EscalationState{ReceivedAt: received, Level: rec.Level, Warned: rec.Warned}
		outcome := domain.EvaluateEscalation(s.opts.Policy, prev, now)
		if !outcome.Changed(prev) {
			return nil
		}

		updated, err := s.repo.UpdateEscalation(txCtx, ports.EscalationUpdate{
			EscalationID:    rec.EscalationID,
			ExpectedVersion: rec.Version,
			Level:           outcome.Level,
			Warned:          outcome.Warned,
		})
		if err != nil {
			return err
		}
		if !updated {
			return nil
		}

		approval, err := s.approvalRecord(txCtx, rec.RequestID, rec.ApprovalRecordID)
		if err != nil {
			return err
		}

		kind := EscalationKindWarning
		if outcome.FireEscalation {
			kind = EscalationKindEscalated
		}
		event = EscalationEvent{
			EscalationID:    rec.EscalationID,
			RequestID:       rec.RequestID,
			Level:           approval.Level,
			ReviewerID:      approval.ReviewerID,
			Kind:            kind,
			EscalationLevel: outcome.Level,
			DaysPending:     outcome.DaysPending,
		}
		fired = outcome.FireWarning || outcome.FireEscalation

		body := fmt.Sprintf("%s level=%s days=%d escalation_level=%d", kind, approval.Level, outcome.DaysPending, outcome.Level)
		return s.appendEvent(txCtx, rec.RequestID, systemActor, eventEscalation, body)
	})
	if err != nil {
		return EscalationEvent{}, false, errs.Wrapf(err, "sweep escalation %d", escalationID)
	}
	return event, fired, nil
}

func (s *Service) approvalRecord(ctx context.Context, requestID string, recordID uint64) (ports.ApprovalRecord, error) {
	records, err := s.repo.ListApprovalRecords(ctx, requestID)
	if err != nil {
		return ports.ApprovalRecord{}, err
	}
	for _, rec := range records {
		if rec.RecordID == recordID {
			return rec, nil
		}
	}
	return ports.ApprovalRecord{}, fmt.Errorf("%w: approval record %d of request %s", domain.ErrNotFound, recordID, requestID)
}
