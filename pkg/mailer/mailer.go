package mailer

import (
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/parishhub/chms-api/pkg/config"
)

// Mailer sends plain-text notification mail.
type Mailer interface {
	Send(to, subject, body string) error
}

// SMTPMailer delivers mail through a configured SMTP relay.
type SMTPMailer struct {
	cfg    config.SMTPConfig
	logger *zap.Logger
}

// NewSMTPMailer constructs an SMTP mailer.
func NewSMTPMailer(cfg config.SMTPConfig, logger *zap.Logger) *SMTPMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SMTPMailer{cfg: cfg, logger: logger}
}

// Send delivers one message. A missing SMTP host disables delivery.
func (m *SMTPMailer) Send(to, subject, body string) error {
	if m.cfg.Host == "" {
		return fmt.Errorf("smtp host not configured")
	}
	if to == "" {
		return fmt.Errorf("recipient required")
	}

	msg := strings.Join([]string{
		fmt.Sprintf("From: %s", m.cfg.From),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"utf-8\"",
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	m.logger.Debug("mail sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}
