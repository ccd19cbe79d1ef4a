// Package mailer sends the drafted reply emails over an authenticated,
// TLS-upgraded submission session.
package mailer

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	gomail "gopkg.in/gomail.v2"

	"github.com/spec-kit/support-orchestrator/internal/config"
)

// Message is a two-part outbound email.
type Message struct {
	To        string
	Subject   string
	PlainBody string
	HTMLBody  string
}

// Mailer sends messages through the configured relay.
type Mailer struct {
	cfg config.EmailConfig
	log *zap.Logger
}

// NewMailer builds a mailer; a missing relay configuration is reported per
// send, not at startup.
func NewMailer(cfg config.EmailConfig, logger *zap.Logger) *Mailer {
	return &Mailer{cfg: cfg, log: logger}
}

// Send delivers one message with plain-text and HTML alternative parts.
// The dialer performs STARTTLS against the relay before authenticating.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if m.cfg.Host == "" || m.cfg.From == "" {
		return fmt.Errorf("mailer: relay not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	gm := gomail.NewMessage()
	gm.SetHeader("From", m.cfg.From)
	gm.SetHeader("To", msg.To)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/plain", msg.PlainBody)
	gm.AddAlternative("text/html", msg.HTMLBody)

	dialer := gomail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.User, m.cfg.Password)
	if err := dialer.DialAndSend(gm); err != nil {
		m.log.Error("email send failed", zap.String("to", msg.To), zap.Error(err))
		return fmt.Errorf("mailer: %w", err)
	}

	m.log.Info("email sent", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}
