package email

import (
	"context"
	"fmt"
	"net/smtp"

	"go.uber.org/zap"

	"lastseat/server/internal/config"
	"lastseat/server/internal/logging"
)

// Sender defines the interface for sending emails. The rawMessage parameter
// must contain the full message, headers included, properly formatted.
type Sender interface {
	Send(ctx context.Context, to []string, subject string, rawMessage []byte) error
}

// SMTPSender implements the Sender interface using net/smtp.
type SMTPSender struct {
	cfg  *config.Config
	auth smtp.Auth
	addr string
}

// NewSMTPSender creates a new SMTPSender, falling back to a logging sender
// when no SMTP host is configured (local development).
func NewSMTPSender(cfg *config.Config) Sender {
	if cfg.SmtpHost == "" {
		logging.Get().Warn("SMTP host not configured, using logging email sender")
		return &LoggingSender{cfg: cfg}
	}

	auth := smtp.PlainAuth("", cfg.SmtpUsername, cfg.SmtpPassword, cfg.SmtpHost)
	return &SMTPSender{
		cfg:  cfg,
		auth: auth,
		addr: fmt.Sprintf("%s:%d", cfg.SmtpHost, cfg.SmtpPort),
	}
}

// Send sends an email using SMTP.
func (s *SMTPSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	if err := smtp.SendMail(s.addr, s.auth, s.cfg.SmtpFromAddress, to, rawMessage); err != nil {
		return fmt.Errorf("smtp error: %w", err)
	}
	logging.Get().Info("email sent", zap.Strings("to", to), zap.String("subject", subject))
	return nil
}

// LoggingSender logs email details instead of sending. Used when SMTP isn't
// configured.
type LoggingSender struct {
	cfg *config.Config
}

func (s *LoggingSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	logging.Get().Info("email (logged, not sent)",
		zap.Strings("to", to),
		zap.String("from", s.cfg.SmtpFromAddress),
		zap.String("subject", subject),
		zap.ByteString("message", rawMessage))
	return nil
}
