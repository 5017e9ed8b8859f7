package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"lastseat/server/internal/config"
)

// ErrFareUnavailable means the external fare API could not produce a quote in
// time; callers fall back to the local heuristic.
var ErrFareUnavailable = errors.New("fare API unavailable")

// FareQuote is a live quote from the external fare API.
type FareQuote struct {
	Total    float64 `json:"total"`
	Currency string  `json:"currency"`
}

// FareClient fetches live quotes. Implementations must respect the context
// deadline: a slow upstream becomes ErrFareUnavailable, never a hung request.
type FareClient interface {
	Quote(ctx context.Context, origin, destination, cabinClass string, roundTrip bool, passengers int) (*FareQuote, error)
}

type httpFareClient struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	client  *http.Client
}

// NewFareClient returns the HTTP fare client, or nil when no fare API is
// configured (the estimator then goes straight to the heuristic).
func NewFareClient(cfg *config.Config) FareClient {
	if cfg.FareAPIURL == "" {
		return nil
	}
	return &httpFareClient{
		baseURL: cfg.FareAPIURL,
		apiKey:  cfg.FareAPIKey,
		timeout: cfg.FareAPITimeout,
		client:  &http.Client{},
	}
}

func (c *httpFareClient) Quote(ctx context.Context, origin, destination, cabinClass string, roundTrip bool, passengers int) (*FareQuote, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	q := url.Values{}
	q.Set("origin", origin)
	q.Set("destination", destination)
	q.Set("cabin", cabinClass)
	q.Set("round_trip", strconv.FormatBool(roundTrip))
	q.Set("passengers", strconv.Itoa(passengers))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/quotes?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("error building fare request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFareUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrFareUnavailable, resp.StatusCode)
	}

	var quote FareQuote
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		return nil, fmt.Errorf("%w: bad response body: %v", ErrFareUnavailable, err)
	}
	if quote.Total <= 0 || quote.Currency == "" {
		return nil, fmt.Errorf("%w: incomplete quote", ErrFareUnavailable)
	}
	return &quote, nil
}
