package notify

import (
	"context"

	"github.com/wneessen/go-mail"

	"github.com/ariefcatur/go-shop/internal/config"
)

// Sender delivers one prepared message.
type Sender interface {
	Send(ctx context.Context, msg *mail.Msg) error
}

// Mailer sends through an SMTP relay. A fresh connection is dialed per
// message; notification volume is low.
type Mailer struct {
	client *mail.Client
}

func NewMailer(cfg config.Config) (*Mailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.SMTPPort),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.SMTPUsername != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(cfg.SMTPUsername),
			mail.WithPassword(cfg.SMTPPassword),
		)
	}
	c, err := mail.NewClient(cfg.SMTPHost, opts...)
	if err != nil {
		return nil, err
	}
	return &Mailer{client: c}, nil
}

func (m *Mailer) Send(ctx context.Context, msg *mail.Msg) error {
	return m.client.DialAndSendWithContext(ctx, msg)
}
