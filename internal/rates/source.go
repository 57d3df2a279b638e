// Package rates refreshes the currency table from an exchange rate source.
package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"nosam/internal/currency"
)

// Source returns the latest rates as units per one unit of base.
type Source interface {
	Latest(ctx context.Context) (base string, rates map[string]float64, err error)
}

// StaticSource serves the built-in table. It is the default when no rate
// endpoint is configured.
type StaticSource struct{}

func (StaticSource) Latest(context.Context) (string, map[string]float64, error) {
	return currency.BaseCurrency, currency.DefaultRates(), nil
}

// HTTPSource reads a JSON document shaped {"base":"USD","rates":{"CNY":7.25,...}}.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

func NewHTTPSource(url string) *HTTPSource {
	return &HTTPSource{URL: url, Client: &http.Client{Timeout: 10 * time.Second}}
}

type latestResponse struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

func (s *HTTPSource) Latest(ctx context.Context) (string, map[string]float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return "", nil, fmt.Errorf("build rates request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("fetch rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", nil, fmt.Errorf("fetch rates: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out latestResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return "", nil, fmt.Errorf("decode rates: %w", err)
	}
	if out.Base == "" {
		out.Base = currency.BaseCurrency
	}
	// Many providers omit the base from its own table.
	if _, ok := out.Rates[out.Base]; !ok && out.Rates != nil {
		out.Rates[out.Base] = 1
	}
	return out.Base, out.Rates, nil
}
