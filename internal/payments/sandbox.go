package payments

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"lastseat/server/internal/logging"
)

// sandboxGateway is an in-process stand-in for the real processor. Widget
// tokens ending in "0002" are declined, tokens ending in "3220" require a
// 3-D Secure round trip, everything else is approved. Mirrors common test-card
// conventions so the front end can exercise every path.
type sandboxGateway struct {
	mu       sync.Mutex
	attempts map[string]ChargeRequest // pending 3DS attempts by id
	logger   *zap.Logger
}

// NewSandboxGateway creates the local auto-approving gateway.
func NewSandboxGateway() Gateway {
	return &sandboxGateway{
		attempts: make(map[string]ChargeRequest),
		logger:   logging.Get().Named("payments.sandbox"),
	}
}

func (g *sandboxGateway) Charge(_ context.Context, req ChargeRequest) (*ChargeResult, error) {
	switch {
	case strings.HasSuffix(req.PaymentToken, "0002"):
		return &ChargeResult{Success: false, Message: "card declined"}, nil
	case strings.HasSuffix(req.PaymentToken, "3220"):
		id := uuid.NewString()
		g.mu.Lock()
		g.attempts[id] = req
		g.mu.Unlock()
		return &ChargeResult{
			RequiresAuth: true,
			AttemptID:    id,
			AuthURL:      "https://sandbox.invalid/3ds/" + id,
		}, nil
	default:
		g.logger.Info("sandbox charge approved",
			zap.String("invoice_number", req.InvoiceNumber),
			zap.Float64("amount", req.Amount),
			zap.String("currency", req.Currency))
		return &ChargeResult{Success: true, Message: "approved"}, nil
	}
}

func (g *sandboxGateway) Complete3DS(_ context.Context, attemptID string) (*ChargeResult, error) {
	g.mu.Lock()
	_, ok := g.attempts[attemptID]
	delete(g.attempts, attemptID)
	g.mu.Unlock()
	if !ok {
		return &ChargeResult{Success: false, Message: "unknown or expired authentication attempt"}, nil
	}
	return &ChargeResult{Success: true, Message: "approved"}, nil
}
