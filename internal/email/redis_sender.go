package email

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"lastseat/server/internal/config"
)

// RedisSender stores emails in Redis instead of sending them. Enabled under
// MOCK_SERVICES so integration tests can fetch what "was sent" through the
// service API.
type RedisSender struct {
	client *redis.Client
	cfg    *config.Config
}

// NewRedisSender creates a new RedisSender.
func NewRedisSender(client *redis.Client, cfg *config.Config) Sender {
	return &RedisSender{client: client, cfg: cfg}
}

// kindFromSubject buckets test emails by what triggered them, so tests can
// fetch "the payment receipt sent to x" without scanning.
func kindFromSubject(subject string) string {
	switch {
	case strings.Contains(subject, "receipt"):
		return "payment_receipt"
	case strings.Contains(subject, "inquiry"):
		return "inquiry_notify"
	case strings.Contains(subject, "invoice"):
		return "payment_link"
	default:
		return "unknown"
	}
}

// Send stores a JSON representation of the email under a key derived from the
// primary recipient and the email kind.
func (s *RedisSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	primaryTo := ""
	if len(to) > 0 {
		primaryTo = to[0]
	}

	data, err := json.Marshal(map[string]interface{}{
		"to":      strings.Join(to, ", "),
		"from":    s.cfg.SmtpFromAddress,
		"subject": subject,
		"body":    string(rawMessage),
		"sent_at": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal mock email: %w", err)
	}

	key := fmt.Sprintf("mockemail:%s:%s", primaryTo, kindFromSubject(subject))
	if err := s.client.Set(ctx, key, data, 10*time.Minute).Err(); err != nil {
		return fmt.Errorf("failed to store mock email in redis: %w", err)
	}
	return nil
}
