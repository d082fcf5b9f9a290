package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"

	"github.com/ariefcatur/go-shop/internal/orders"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []*mail.Msg
	err  error
}

func (f *fakeSender) Send(ctx context.Context, msg *mail.Msg) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return f.err
}

func recipients(t *testing.T, msgs []*mail.Msg) []string {
	t.Helper()
	var out []string
	for _, m := range msgs {
		to, err := m.GetRecipients()
		require.NoError(t, err)
		out = append(out, to...)
	}
	return out
}

func newService(t *testing.T, s Sender) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return &Service{
		Sender:      s,
		Redis:       rdb,
		From:        "shop@example.com",
		AdminEmail:  "admin@example.com",
		ServiceName: "notifier",
		Log:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, mr
}

func message(t *testing.T, eventType string, payload any) kafka.Message {
	t.Helper()
	env, err := orders.NewEnvelope(eventType, "test", "", "u1", payload)
	require.NoError(t, err)
	return kafka.Message{Topic: orders.TopicFor(eventType), Value: mustJSON(t, env)}
}

func TestHandle_OrderCreatedMailsBuyerAndAdmin(t *testing.T) {
	snd := &fakeSender{}
	svc, _ := newService(t, snd)

	m := message(t, orders.EventOrderCreated, orders.OrderCreatedPayload{
		OrderID: "o1", ExternalID: "u1_1", UserID: "u1", Email: "buyer@example.com",
		Status: orders.StatusPaid,
		Items:  []orders.ItemPrice{{ProductID: "p1", Qty: 2, Price: decimal.RequireFromString("1.80")}},
		Total:  decimal.RequireFromString("3.60"),
	})
	require.NoError(t, svc.HandleMessage(context.Background(), m))

	assert.Equal(t, []string{"buyer@example.com", "admin@example.com"}, recipients(t, snd.sent))
	assert.Equal(t, []string{"Your order u1_1"}, snd.sent[0].GetGenHeader(mail.HeaderSubject))
}

func TestHandle_DuplicateEventSentOnce(t *testing.T) {
	snd := &fakeSender{}
	svc, mr := newService(t, snd)

	m := message(t, orders.EventOrderPaid, orders.OrderPaidPayload{OrderID: "o1", UserID: "u1"})
	require.NoError(t, svc.HandleMessage(context.Background(), m))
	require.NoError(t, svc.HandleMessage(context.Background(), m))

	assert.Len(t, snd.sent, 1)
	assert.Len(t, mr.Keys(), 1)
}

func TestHandle_SendFailureIsSwallowed(t *testing.T) {
	snd := &fakeSender{err: errors.New("smtp: 421 try later")}
	svc, _ := newService(t, snd)

	m := message(t, orders.EventPaymentCompleted, orders.PaymentCompletedPayload{
		PaymentID: "pay1", UserID: "u1", Amount: decimal.NewFromInt(10), Balance: decimal.NewFromInt(10),
	})
	assert.NoError(t, svc.HandleMessage(context.Background(), m))
	assert.Len(t, snd.sent, 1)
}

func TestHandle_GarbageAndUnknown(t *testing.T) {
	snd := &fakeSender{}
	svc, _ := newService(t, snd)
	ctx := context.Background()

	assert.NoError(t, svc.HandleMessage(ctx, kafka.Message{Value: []byte("{not json")}))
	assert.NoError(t, svc.HandleMessage(ctx, message(t, "StockReserved", map[string]string{"x": "y"})))
	assert.Empty(t, snd.sent)
}

func TestHandle_NoAdminNoBuyerEmail(t *testing.T) {
	snd := &fakeSender{}
	svc, _ := newService(t, snd)
	svc.AdminEmail = ""
	svc.Redis = nil

	m := message(t, orders.EventOrderCanceled, orders.OrderCanceledPayload{OrderID: "o1", UserID: "u1", Refunded: decimal.Zero})
	require.NoError(t, svc.HandleMessage(context.Background(), m))
	assert.Empty(t, snd.sent)
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}
