// Package checkwx fetches METAR and TAF reports from the CheckWX API.
package checkwx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultBaseURL is the public CheckWX endpoint
const DefaultBaseURL = "https://api.checkwx.com"

// Kind selects the report type
type Kind string

const (
	Metar Kind = "metar"
	Taf   Kind = "taf"
)

var (
	ErrNoData      = errors.New("no data available")
	ErrInvalidICAO = errors.New("airport code must be 4 letters or digits")
	ErrNoAPIKey    = errors.New("weather lookups are not configured")
)

// APIError is returned for non-2xx responses
type APIError struct {
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("checkwx returned status %d", e.StatusCode)
}

var icaoPattern = regexp.MustCompile(`^[A-Z0-9]{4}$`)

type response struct {
	Results int `json:"results"`
	Data    []struct {
		RawText string `json:"raw_text"`
	} `json:"data"`
}

// Client looks up weather reports and caches successful answers
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	cache   *expirable.LRU[string, string]
}

// NewClient creates a weather client. A zero ttl disables caching.
func NewClient(baseURL, apiKey string, timeout, ttl time.Duration, size int) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
	if ttl > 0 && size > 0 {
		c.cache = expirable.NewLRU[string, string](size, nil, ttl)
	}
	return c
}

// NormalizeICAO upper-cases and validates an airport code
func NormalizeICAO(icao string) (string, error) {
	icao = strings.ToUpper(strings.TrimSpace(icao))
	if !icaoPattern.MatchString(icao) {
		return "", ErrInvalidICAO
	}
	return icao, nil
}

// Metar returns the raw METAR for the airport
func (c *Client) Metar(ctx context.Context, icao string) (string, error) {
	return c.Report(ctx, Metar, icao)
}

// Taf returns the raw TAF for the airport
func (c *Client) Taf(ctx context.Context, icao string) (string, error) {
	return c.Report(ctx, Taf, icao)
}

// Report fetches one raw report of the given kind
func (c *Client) Report(ctx context.Context, kind Kind, icao string) (string, error) {
	icao, err := NormalizeICAO(icao)
	if err != nil {
		return "", err
	}
	if c.apiKey == "" {
		return "", ErrNoAPIKey
	}

	key := string(kind) + ":" + icao
	if c.cache != nil {
		if raw, ok := c.cache.Get(key); ok {
			slog.Debug("Weather cache hit", "kind", kind, "icao", icao)
			return raw, nil
		}
	}

	raw, err := c.fetch(ctx, kind, icao)
	if err != nil {
		slog.Error("Failed to fetch weather", "kind", kind, "icao", icao, "error", err)
		return "", err
	}
	if c.cache != nil {
		c.cache.Add(key, raw)
	}
	return raw, nil
}

func (c *Client) fetch(ctx context.Context, kind Kind, icao string) (string, error) {
	url := fmt.Sprintf("%s/%s/%s/decoded", c.baseURL, kind, icao)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("requesting %s: %w", kind, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &APIError{StatusCode: resp.StatusCode}
	}

	var r response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return "", fmt.Errorf("decoding %s: %w", kind, err)
	}
	if len(r.Data) == 0 || r.Data[0].RawText == "" {
		return "", ErrNoData
	}
	return r.Data[0].RawText, nil
}
