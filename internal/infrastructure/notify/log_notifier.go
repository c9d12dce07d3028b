package notify

import (
	"context"
	"log/slog"
	"sort"

	"privflow/internal/bootstrap/logging"
	"privflow/internal/ports"
)

// LogNotifier writes notifications to the structured log. It is the default
// dispatcher when no broker is configured.
type LogNotifier struct{}

var _ ports.Notifier = LogNotifier{}

func NewLogNotifier() LogNotifier {
	return LogNotifier{}
}

func (LogNotifier) Notify(ctx context.Context, n ports.Notification) error {
	attrs := []slog.Attr{
		slog.String("component", "notify.log"),
		slog.String("kind", n.Kind),
		slog.String("recipient", n.Recipient),
		slog.String("request_id", n.RequestID),
	}

	keys := make([]string, 0, len(n.Context))
	for k := range n.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, slog.String("ctx."+k, n.Context[k]))
	}

	logging.Info(ctx, "notification", attrs...)
	return nil
}
