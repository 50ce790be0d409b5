package mail

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/nclex311/billing/pkg/config"
	"github.com/nclex311/billing/pkg/logctx"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers one message. Callers on the payment path must treat errors
// as log-only; delivery is best effort.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// SMTPSender sends plain-text mail over SMTP with optional PLAIN auth.
type SMTPSender struct {
	addr string
	auth smtp.Auth
	from string
}

func (s *SMTPSender) Send(ctx context.Context, msg *Message) error {
	payload := []byte(
		fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", s.from, msg.To, msg.Subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/plain; charset=UTF-8\r\n\r\n" +
			msg.Body,
	)
	if err := smtp.SendMail(s.addr, s.auth, s.from, []string{msg.To}, payload); err != nil {
		return fmt.Errorf("smtp send to %s failed: %w", msg.To, err)
	}
	return nil
}

// NopSender drops messages. Used when no SMTP host is configured.
type NopSender struct {
	log *zap.SugaredLogger
}

func (s *NopSender) Send(ctx context.Context, msg *Message) error {
	logctx.FromCtx(ctx, s.log).Infow("mail disabled, dropping message", "to", msg.To, "subject", msg.Subject)
	return nil
}

func NewSender(cfg *config.Config, log *zap.SugaredLogger) Sender {
	if cfg.SMTP.Host == "" {
		return &NopSender{log: log}
	}
	var auth smtp.Auth
	if cfg.SMTP.Username != "" && cfg.SMTP.Password != "" {
		auth = smtp.PlainAuth("", cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.Host)
	}
	from := cfg.SMTP.From
	if from == "" {
		from = "no-reply@nclex311.com"
	}
	return &SMTPSender{
		addr: fmt.Sprintf("%s:%d", cfg.SMTP.Host, cfg.SMTP.Port),
		auth: auth,
		from: from,
	}
}

var Module = fx.Options(
	fx.Provide(NewSender),
)
