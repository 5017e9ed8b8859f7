package pricing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lastseat/server/internal/config"
	"lastseat/server/internal/models"
)

func newTestFareClient(serverURL string, timeout time.Duration) FareClient {
	return NewFareClient(&config.Config{
		FareAPIURL:     serverURL,
		FareAPIKey:     "test-key",
		FareAPITimeout: timeout,
	})
}

func TestFareClient_Quote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "CAI", r.URL.Query().Get("origin"))
		assert.Equal(t, "LHR", r.URL.Query().Get("destination"))
		assert.Equal(t, "true", r.URL.Query().Get("round_trip"))
		assert.Equal(t, "2", r.URL.Query().Get("passengers"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"total": 1234.56, "currency": "USD"}`))
	}))
	defer srv.Close()

	client := newTestFareClient(srv.URL, time.Second)
	quote, err := client.Quote(context.Background(), "CAI", "LHR", models.CabinEconomy, true, 2)
	require.NoError(t, err)
	assert.InDelta(t, 1234.56, quote.Total, 0.001)
	assert.Equal(t, "USD", quote.Currency)
}

func TestFareClient_TimeoutBecomesUnavailable(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release // hold the request past the client's deadline
	}))
	defer srv.Close()
	defer close(release)

	client := newTestFareClient(srv.URL, 50*time.Millisecond)

	start := time.Now()
	_, err := client.Quote(context.Background(), "CAI", "LHR", models.CabinEconomy, false, 1)
	assert.ErrorIs(t, err, ErrFareUnavailable)
	// The call gave up at its own deadline rather than hanging.
	assert.Less(t, time.Since(start), time.Second)
}

func TestFareClient_ErrorResponses(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"bad json", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json"))
		}},
		{"incomplete quote", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"total": 0, "currency": ""}`))
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			client := newTestFareClient(srv.URL, time.Second)
			_, err := client.Quote(context.Background(), "CAI", "LHR", models.CabinEconomy, false, 1)
			assert.ErrorIs(t, err, ErrFareUnavailable)
		})
	}
}

func TestNewFareClient_NilWithoutURL(t *testing.T) {
	assert.Nil(t, NewFareClient(&config.Config{}))
}
