// Package ledger turns carts into orders and keeps order status and user
// balance consistent: checkout, payments, settlement and cancellation.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ariefcatur/go-shop/internal/orders"
)

// Publisher ships committed domain events to other services.
type Publisher interface {
	Publish(ctx context.Context, topic string, key []byte, env orders.Envelope) error
}

type Service struct {
	Store      orders.Store
	Reconciler *Reconciler
	Publisher  Publisher // optional
	Producer   string
	Log        *slog.Logger

	now func() time.Time
}

func NewService(store orders.Store, pub Publisher, producer string, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		Store:      store,
		Reconciler: &Reconciler{Log: log},
		Publisher:  pub,
		Producer:   producer,
		Log:        log,
		now:        time.Now,
	}
}

type traceKey struct{}

// WithTrace attaches a request id that is copied into published events.
func WithTrace(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceKey{}, id)
}

func traceID(ctx context.Context) string {
	s, _ := ctx.Value(traceKey{}).(string)
	return s
}

type outEvent struct {
	eventType string
	userID    string
	payload   any
}

// emit runs after commit. A failed publish is logged and dropped; the
// committed state is the source of truth.
func (s *Service) emit(ctx context.Context, events ...outEvent) {
	if s.Publisher == nil {
		return
	}
	for _, ev := range events {
		env, err := orders.NewEnvelope(ev.eventType, s.Producer, traceID(ctx), ev.userID, ev.payload)
		if err != nil {
			s.Log.Error("encode event", "event_type", ev.eventType, "err", err)
			continue
		}
		if err := s.Publisher.Publish(ctx, orders.TopicFor(ev.eventType), orders.PartitionKey(ev.userID), env); err != nil {
			s.Log.Warn("publish event", "event_type", ev.eventType, "user_id", ev.userID, "err", err)
		}
	}
}

func paidEvents(st Settlement) []outEvent {
	out := make([]outEvent, 0, len(st.Paid))
	for _, id := range st.Paid {
		out = append(out, outEvent{
			eventType: orders.EventOrderPaid,
			userID:    st.UserID,
			payload:   orders.OrderPaidPayload{OrderID: id, UserID: st.UserID},
		})
	}
	return out
}

func (s *Service) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

func externalID(userID string, at time.Time) string {
	return fmt.Sprintf("%s_%d", userID, at.UnixNano())
}
