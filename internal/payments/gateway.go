// Package payments wraps the external card processor behind a small Gateway
// interface so handlers and tests never talk HTTP to it directly.
package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"lastseat/server/internal/config"
	"lastseat/server/internal/logging"
)

// ChargeRequest describes one card charge attempt against an invoice.
// PaymentToken is the single-use token issued by the processor's card widget;
// raw card details never pass through this server.
type ChargeRequest struct {
	PaymentToken   string  `json:"payment_token"`
	Amount         float64 `json:"amount"`
	Currency       string  `json:"currency"`
	InvoiceNumber  string  `json:"invoice_number"`
	CustomerEmail  string  `json:"customer_email"`
	IdempotencyKey string  `json:"idempotency_key"`
}

// ChargeResult is the processor's answer to a charge attempt. RequiresAuth
// means the cardholder must complete a 3-D Secure challenge at AuthURL before
// the charge settles; AttemptID identifies that pending attempt.
type ChargeResult struct {
	Success      bool   `json:"success"`
	RequiresAuth bool   `json:"requires_auth"`
	AuthURL      string `json:"auth_url,omitempty"`
	AttemptID    string `json:"attempt_id,omitempty"`
	Message      string `json:"message,omitempty"`
}

// Gateway is the payment processor abstraction.
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
	Complete3DS(ctx context.Context, attemptID string) (*ChargeResult, error)
}

// httpGateway talks JSON-over-HTTPS to the configured processor.
type httpGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

// NewGateway returns the HTTP gateway when a processor URL is configured, and
// a local auto-approving sandbox otherwise so development environments work
// without processor credentials.
func NewGateway(cfg *config.Config) Gateway {
	if cfg.PaymentAPIURL == "" {
		logging.Get().Warn("PAYMENT_API_URL not set, using sandbox payment gateway")
		return NewSandboxGateway()
	}
	return &httpGateway{
		baseURL: cfg.PaymentAPIURL,
		apiKey:  cfg.PaymentAPIKey,
		client:  &http.Client{Timeout: 15 * time.Second},
		logger:  logging.Get().Named("payments"),
	}
}

func (g *httpGateway) post(ctx context.Context, path string, payload interface{}) (*ChargeResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("error encoding payment request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error building payment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error calling payment processor: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("error reading payment processor response: %w", err)
	}
	if resp.StatusCode >= 500 {
		g.logger.Error("payment processor unavailable",
			zap.Int("status", resp.StatusCode), zap.ByteString("body", raw))
		return nil, fmt.Errorf("payment processor returned status %d", resp.StatusCode)
	}

	var result ChargeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("error decoding payment processor response: %w", err)
	}
	return &result, nil
}

// Charge submits a card charge. A declined card is not an error: the result
// comes back with Success=false and a message.
func (g *httpGateway) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	return g.post(ctx, "/charges", req)
}

// Complete3DS asks the processor for the outcome of a 3-D Secure challenge.
func (g *httpGateway) Complete3DS(ctx context.Context, attemptID string) (*ChargeResult, error) {
	return g.post(ctx, "/charges/3ds/complete", map[string]string{"attempt_id": attemptID})
}
