package privileging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"privflow/internal/bootstrap/logging"
	domain "privflow/internal/domain/privileging"
	"privflow/internal/errs"
	"privflow/internal/ports"
)

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, errs.Wrapf(err, "parse timestamp %q", value)
	}
	return t, nil
}

func (s *Service) nowUTC() time.Time {
	return s.opts.Now().UTC()
}

func derefString(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

func stringPtr(v string) *string {
	return &v
}

func normalizeIDs(in []string) []string {
	if len(in) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, raw := range in {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// getRequest maps the repository miss onto the domain error.
func (s *Service) getRequest(ctx context.Context, requestID string) (ports.Request, error) {
	req, err := s.repo.GetRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, ports.ErrRequestNotFound) {
			return ports.Request{}, fmt.Errorf("%w: request %s", domain.ErrNotFound, requestID)
		}
		return ports.Request{}, err
	}
	return req, nil
}

func ledgerEntries(records []ports.ApprovalRecord) []domain.LedgerEntry {
	entries := make([]domain.LedgerEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, domain.LedgerEntry{
			Level:      rec.Level,
			ReviewerID: rec.ReviewerID,
			Status:     rec.Status,
		})
	}
	return entries
}

func (s *Service) appendEvent(ctx context.Context, requestID string, actor string, kind string, body string) error {
	return s.repo.AppendEvent(ctx, ports.RequestEventCreate{
		RequestID: requestID,
		Actor:     actor,
		Kind:      kind,
		Body:      body,
		CreatedAt: formatTime(s.nowUTC()),
	})
}

// dispatch sends notifications after commit. Failures are logged only.
func (s *Service) dispatch(ctx context.Context, notifications []ports.Notification) {
	if s.notifier == nil {
		return
	}
	for _, n := range notifications {
		if strings.TrimSpace(n.Recipient) == "" {
			continue
		}
		if n.CreatedAt == "" {
			n.CreatedAt = formatTime(s.nowUTC())
		}
		if err := s.notifier.Notify(ctx, n); err != nil {
			logging.Warn(
				ctx,
				"notification dispatch failed",
				slog.String("kind", n.Kind),
				slog.String("recipient", n.Recipient),
				slog.String("request_id", n.RequestID),
				slog.Any("err", errs.Loggable(err)),
			)
		}
	}
}

func (s *Service) setCacheBestEffort(ctx context.Context, key string, value string, ttl time.Duration) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, ttl); err != nil {
		logging.Warn(ctx, "cache write failed", slog.String("key", key), slog.Any("err", errs.Loggable(err)))
	}
}

func cacheRequestStatusKey(requestID string) string {
	return "request_status:" + requestID
}

func logContext(ctx context.Context, op string, attrs ...slog.Attr) context.Context {
	base := []slog.Attr{
		slog.String("component", "usecase.privileging"),
		slog.String("operation", op),
	}
	return logging.WithAttrs(ctx, append(base, attrs...)...)
}
