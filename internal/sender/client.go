// Package sender posts normalized ad batches to the ingestion endpoint.
package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/law-makers/adscout/pkg/models"
)

// SecretHeader carries the shared secret on ingestion requests
const SecretHeader = "x-scraper-secret"

// Source is the value of the payload's source field
const Source = "facebook"

// maxErrorBody caps how much of a failed response is kept
const maxErrorBody = 4 << 10

// ErrMissingSecret is returned before any network call when no shared secret is configured
var ErrMissingSecret = errors.New("SCRAPER_API_SECRET is not configured")

// StatusError reports a non-2xx ingestion response
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ingestion API responded %d: %s", e.StatusCode, e.Body)
}

// Client sends one niche batch per call. It never retries; the next cycle does.
type Client struct {
	Endpoint string
	Secret   string
	HTTP     *http.Client
}

// New returns a Client with its own http.Client bounded by timeout
func New(endpoint, secret string, timeout time.Duration) *Client {
	return &Client{
		Endpoint: endpoint,
		Secret:   secret,
		HTTP:     &http.Client{Timeout: timeout},
	}
}

// BuildPayload assembles the request body for one niche
func BuildPayload(niche models.NicheTarget, country string, ads []models.Ad) models.ImportPayload {
	if niche.Country != "" {
		country = niche.Country
	}
	return models.ImportPayload{
		Category: niche.Category,
		Niche:    niche.Name,
		Country:  country,
		Source:   Source,
		Ads:      ads,
	}
}

// Send posts ads for niche. An empty batch sends nothing and returns a nil response.
func (c *Client) Send(ctx context.Context, niche models.NicheTarget, country string, ads []models.Ad) (*models.ImportResponse, error) {
	if c.Secret == "" {
		return nil, ErrMissingSecret
	}
	if len(ads) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(BuildPayload(niche, country, ads))
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SecretHeader, c.Secret)

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post batch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(raw))}
	}

	var out models.ImportResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}
