// Package notify turns committed shop events into e-mails. Delivery is best
// effort: a failure is logged and the event is still acknowledged.
package notify

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/wneessen/go-mail"

	kafkax "github.com/ariefcatur/go-shop/internal/kafka"
	"github.com/ariefcatur/go-shop/internal/orders"
	"github.com/ariefcatur/go-shop/internal/redisx"
)

// Topics the notifier subscribes to.
var Topics = []string{
	orders.TopicOrderCreated,
	orders.TopicOrderPaid,
	orders.TopicOrderCanceled,
	orders.TopicPaymentCompleted,
}

type Service struct {
	Sender      Sender
	Redis       redis.Cmdable // optional dedup
	From        string
	AdminEmail  string
	ServiceName string
	Log         *slog.Logger
}

// HandleMessage is a kafka.Handler. It never returns an error for a message
// it could not deliver, only logs it.
func (s *Service) HandleMessage(ctx context.Context, m kafka.Message) error {
	env, err := kafkax.DecodeEnvelope(m.Value)
	if err != nil {
		s.log().Warn("drop undecodable event", "topic", m.Topic, "offset", m.Offset, "err", err)
		return nil
	}

	if s.Redis != nil {
		key := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
		first, err := redisx.Claim(ctx, s.Redis, key, redisx.TTLDedup)
		if err != nil {
			s.log().Warn("dedup check failed, sending anyway", "event_id", env.EventID, "err", err)
		} else if !first {
			s.log().Info("duplicate event skipped", "event_id", env.EventID)
			return nil
		}
	}

	msgs, err := s.build(env)
	if err != nil {
		s.log().Warn("build notification", "event_id", env.EventID, "event_type", env.EventType, "err", err)
		return nil
	}
	for _, msg := range msgs {
		if err := s.Sender.Send(ctx, msg); err != nil {
			to, _ := msg.GetRecipients()
			s.log().Error("send email", "event_id", env.EventID, "to", to, "err", err)
		}
	}
	return nil
}

func (s *Service) build(env orders.Envelope) ([]*mail.Msg, error) {
	var out []*mail.Msg
	switch env.EventType {
	case orders.EventOrderCreated:
		p, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
		if err != nil {
			return nil, err
		}
		if p.Email != "" {
			msg, err := s.htmlMsg(p.Email, "Your order "+p.ExternalID, orderCreatedTpl, p)
			if err != nil {
				return nil, err
			}
			out = append(out, msg)
		}
		return s.withAdmin(out, "New order "+p.ExternalID, adminNotice{
			Title: "New order " + p.ExternalID,
			Lines: []string{
				"user: " + p.UserID,
				"status: " + string(p.Status),
				"items: " + fmt.Sprint(len(p.Items)),
				"total: " + p.Total.StringFixed(2),
			},
		})

	case orders.EventOrderPaid:
		p, err := kafkax.UnwrapPayload[orders.OrderPaidPayload](env.Payload)
		if err != nil {
			return nil, err
		}
		return s.withAdmin(out, "Order paid", adminNotice{
			Title: "Order paid",
			Lines: []string{"order: " + p.OrderID, "user: " + p.UserID},
		})

	case orders.EventOrderCanceled:
		p, err := kafkax.UnwrapPayload[orders.OrderCanceledPayload](env.Payload)
		if err != nil {
			return nil, err
		}
		return s.withAdmin(out, "Order canceled", adminNotice{
			Title: "Order canceled",
			Lines: []string{"order: " + p.OrderID, "user: " + p.UserID, "refunded: " + p.Refunded.StringFixed(2)},
		})

	case orders.EventPaymentCompleted:
		p, err := kafkax.UnwrapPayload[orders.PaymentCompletedPayload](env.Payload)
		if err != nil {
			return nil, err
		}
		return s.withAdmin(out, "Payment received", adminNotice{
			Title: "Payment received",
			Lines: []string{"payment: " + p.PaymentID, "user: " + p.UserID, "amount: " + p.Amount.StringFixed(2), "balance: " + p.Balance.StringFixed(2)},
		})
	}
	return nil, fmt.Errorf("unknown event type %q", env.EventType)
}

func (s *Service) withAdmin(out []*mail.Msg, subject string, n adminNotice) ([]*mail.Msg, error) {
	if s.AdminEmail == "" {
		return out, nil
	}
	msg, err := s.htmlMsg(s.AdminEmail, subject, adminNoticeTpl, n)
	if err != nil {
		return nil, err
	}
	return append(out, msg), nil
}

func (s *Service) htmlMsg(to, subject string, tpl *template.Template, data any) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(s.From); err != nil {
		return nil, fmt.Errorf("from %q: %w", s.From, err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("to %q: %w", to, err)
	}
	msg.Subject(subject)
	if err := msg.SetBodyHTMLTemplate(tpl, data); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *Service) log() *slog.Logger {
	if s.Log == nil {
		return slog.Default()
	}
	return s.Log
}
