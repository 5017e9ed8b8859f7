package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lastseat/server/internal/config"
)

func chargeReq() ChargeRequest {
	return ChargeRequest{
		PaymentToken:   "tok_widget_4242",
		Amount:         1850.50,
		Currency:       "USD",
		InvoiceNumber:  "INV-12345678-001",
		CustomerEmail:  "jordan@example.com",
		IdempotencyKey: "11111111-2222-3333-4444-555555555555",
	}
}

func TestHTTPGateway_Charge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/charges", r.URL.Path)
		assert.Equal(t, "Bearer secret-key", r.Header.Get("Authorization"))

		var req ChargeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "INV-12345678-001", req.InvoiceNumber)
		assert.NotEmpty(t, req.IdempotencyKey)

		json.NewEncoder(w).Encode(ChargeResult{Success: true, Message: "approved"})
	}))
	defer srv.Close()

	gw := NewGateway(&config.Config{PaymentAPIURL: srv.URL, PaymentAPIKey: "secret-key"})
	result, err := gw.Charge(context.Background(), chargeReq())
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestHTTPGateway_DeclineIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		json.NewEncoder(w).Encode(ChargeResult{Success: false, Message: "insufficient funds"})
	}))
	defer srv.Close()

	gw := NewGateway(&config.Config{PaymentAPIURL: srv.URL})
	result, err := gw.Charge(context.Background(), chargeReq())
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "insufficient funds", result.Message)
}

func TestHTTPGateway_ServerErrorIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	gw := NewGateway(&config.Config{PaymentAPIURL: srv.URL})
	_, err := gw.Charge(context.Background(), chargeReq())
	assert.Error(t, err)
}

func TestHTTPGateway_Complete3DS(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/charges/3ds/complete", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "attempt-123", body["attempt_id"])
		json.NewEncoder(w).Encode(ChargeResult{Success: true})
	}))
	defer srv.Close()

	gw := NewGateway(&config.Config{PaymentAPIURL: srv.URL})
	result, err := gw.Complete3DS(context.Background(), "attempt-123")
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestSandboxGateway(t *testing.T) {
	gw := NewSandboxGateway()
	ctx := context.Background()

	// Plain token approves immediately.
	ok, err := gw.Charge(ctx, chargeReq())
	require.NoError(t, err)
	assert.True(t, ok.Success)

	// Decline suffix.
	declined := chargeReq()
	declined.PaymentToken = "tok_widget_0002"
	res, err := gw.Charge(ctx, declined)
	require.NoError(t, err)
	assert.False(t, res.Success)

	// 3DS suffix round-trips through Complete3DS.
	threeDS := chargeReq()
	threeDS.PaymentToken = "tok_widget_3220"
	pending, err := gw.Charge(ctx, threeDS)
	require.NoError(t, err)
	assert.True(t, pending.RequiresAuth)
	require.NotEmpty(t, pending.AttemptID)

	done, err := gw.Complete3DS(ctx, pending.AttemptID)
	require.NoError(t, err)
	assert.True(t, done.Success)

	// An attempt cannot be completed twice.
	replay, err := gw.Complete3DS(ctx, pending.AttemptID)
	require.NoError(t, err)
	assert.False(t, replay.Success)

	// Unknown attempts fail closed.
	unknown, err := gw.Complete3DS(ctx, "no-such-attempt")
	require.NoError(t, err)
	assert.False(t, unknown.Success)
}

func TestNewGateway_FallsBackToSandbox(t *testing.T) {
	gw := NewGateway(&config.Config{})
	_, isSandbox := gw.(*sandboxGateway)
	assert.True(t, isSandbox)
}
