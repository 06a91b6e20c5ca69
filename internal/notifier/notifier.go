package notifier

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/andymarkow/hostmart/internal/httpclient"
)

// Event types published to the notification sink.
const (
	EventDepositCreated       = "deposit_created"
	EventDepositProofAttached = "deposit_proof_attached"
	EventDepositDecided       = "deposit_decided"
	EventOrderCreated         = "order_created"
	EventOrderProofAttached   = "order_proof_attached"
	EventOrderDecided         = "order_decided"
	EventOrderCancelled       = "order_cancelled"
	EventAdjustmentPosted     = "adjustment_posted"
)

// Event is a state transition notification for dashboards.
type Event struct {
	Type         string    `json:"type"`
	EntityID     string    `json:"entity_id"`
	AccountLogin string    `json:"account_login"`
	Status       string    `json:"status,omitempty"`
	Amount       int64     `json:"amount,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Notifier delivers events to a webhook sink. Delivery is best-effort and
// asynchronous: it must never block or gate the transactional outcome.
type Notifier struct {
	log        *slog.Logger
	client     *resty.Client
	webhookURI string
}

func New(opts ...Option) *Notifier {
	n := &Notifier{
		log:    slog.New(slog.NewJSONHandler(os.Stderr, nil)),
		client: httpclient.New(httpclient.WithRetryCount(0)),
	}

	for _, opt := range opts {
		opt(n)
	}

	return n
}

type Option func(n *Notifier)

func WithLogger(logger *slog.Logger) Option {
	return func(n *Notifier) {
		n.log = logger
	}
}

func WithWebhookURI(uri string) Option {
	return func(n *Notifier) {
		n.webhookURI = uri
	}
}

func WithClient(client *resty.Client) Option {
	return func(n *Notifier) {
		n.client = client
	}
}

// Notify publishes the event in the background. Callers invoke it after
// their transaction committed; failures are logged and dropped.
func (n *Notifier) Notify(event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	if n.webhookURI == "" {
		n.log.Debug("Notification sink disabled, dropping event",
			slog.String("event_type", event.Type),
			slog.String("entity_id", event.EntityID),
		)

		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if _, err := n.client.R().
			SetContext(ctx).
			SetBody(event).
			Post(n.webhookURI); err != nil {
			n.log.Error("notifier.Notify", slog.Any("error", err))
		}
	}()
}
