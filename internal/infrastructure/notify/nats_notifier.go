package notify

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"privflow/internal/errs"
	"privflow/internal/ports"
)

const DefaultSubjectPrefix = "privflow.notify"

// Publisher is the subset of *nats.Conn the notifier needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

type payload struct {
	Kind      string            `json:"kind"`
	Recipient string            `json:"recipient"`
	RequestID string            `json:"request_id"`
	Context   map[string]string `json:"context,omitempty"`
	CreatedAt string            `json:"created_at"`
}

// NATSNotifier publishes each notification as JSON on <prefix>.<kind>.
type NATSNotifier struct {
	pub    Publisher
	prefix string
	conn   *nats.Conn
}

var _ ports.Notifier = (*NATSNotifier)(nil)

func NewNATSNotifier(pub Publisher, prefix string) *NATSNotifier {
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATSNotifier{pub: pub, prefix: prefix}
}

// DialNATS connects to url and returns a notifier owning the connection.
func DialNATS(url string, prefix string) (*NATSNotifier, error) {
	if strings.TrimSpace(url) == "" {
		url = nats.DefaultURL
	}
	conn, err := nats.Connect(
		url,
		nats.Name("privflow"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, errs.Wrapf(err, "connect nats %s", url)
	}
	n := NewNATSNotifier(conn, prefix)
	n.conn = conn
	return n, nil
}

func (n *NATSNotifier) Subject(kind string) string {
	return n.prefix + "." + kind
}

func (n *NATSNotifier) Notify(ctx context.Context, item ports.Notification) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if n.pub == nil {
		return errors.New("nats publisher is required")
	}
	if strings.TrimSpace(item.Kind) == "" {
		return errors.New("notification kind is required")
	}

	data, err := json.Marshal(payload{
		Kind:      item.Kind,
		Recipient: item.Recipient,
		RequestID: item.RequestID,
		Context:   item.Context,
		CreatedAt: item.CreatedAt,
	})
	if err != nil {
		return errs.Wrap(err, "marshal notification")
	}
	if err := n.pub.Publish(n.Subject(item.Kind), data); err != nil {
		return errs.Wrapf(err, "publish %s", n.Subject(item.Kind))
	}
	return nil
}

// Close drains the connection if this notifier dialed it.
func (n *NATSNotifier) Close() error {
	if n.conn == nil {
		return nil
	}
	return n.conn.Drain()
}
