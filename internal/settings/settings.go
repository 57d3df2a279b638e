// Package settings persists user preferences next to the object store
// collections.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"nosam/internal/core"
	"nosam/internal/currency"
	"nosam/internal/storage"
)

const (
	KeyDisplayCurrency = "displayCurrency"
	KeyRatesUpdatedAt  = "exchangeRatesUpdateTime"
	KeyRates           = "exchangeRates"
	RatesMaxAge        = 24 * time.Hour
	DefaultDisplay     = core.DefaultCurrency
)

type Settings struct {
	medium storage.Medium
	table  *currency.Table
}

func New(medium storage.Medium, table *currency.Table) *Settings {
	return &Settings{medium: medium, table: table}
}

// DisplayCurrency returns the stored preference, or CNY when none is set.
func (s *Settings) DisplayCurrency(ctx context.Context) (string, error) {
	raw, ok, err := s.medium.Get(ctx, KeyDisplayCurrency)
	if err != nil {
		return "", fmt.Errorf("read display currency: %w", err)
	}
	if !ok || strings.TrimSpace(string(raw)) == "" {
		return DefaultDisplay, nil
	}
	return string(raw), nil
}

// SetDisplayCurrency stores code after checking it is registered.
func (s *Settings) SetDisplayCurrency(ctx context.Context, code string) error {
	if _, err := s.table.Currency(code); err != nil {
		return err
	}
	if err := s.medium.Set(ctx, KeyDisplayCurrency, []byte(code)); err != nil {
		return fmt.Errorf("write display currency: %w", err)
	}
	return nil
}

// RatesUpdatedAt returns the last refresh time; ok is false when rates were
// never refreshed or the stored value is unreadable.
func (s *Settings) RatesUpdatedAt(ctx context.Context) (t time.Time, ok bool, err error) {
	raw, found, err := s.medium.Get(ctx, KeyRatesUpdatedAt)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read rates update time: %w", err)
	}
	if !found {
		return time.Time{}, false, nil
	}
	t, perr := time.Parse(time.RFC3339Nano, string(raw))
	if perr != nil {
		return time.Time{}, false, nil
	}
	return t, true, nil
}

func (s *Settings) MarkRatesUpdated(ctx context.Context, at time.Time) error {
	v := at.UTC().Format(time.RFC3339Nano)
	if err := s.medium.Set(ctx, KeyRatesUpdatedAt, []byte(v)); err != nil {
		return fmt.Errorf("write rates update time: %w", err)
	}
	return nil
}

// StoredRates is the last rate table a refresh installed.
type StoredRates struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

// SaveRates stores the rate table so a restarted process can reinstall it.
func (s *Settings) SaveRates(ctx context.Context, base string, rates map[string]float64) error {
	raw, err := json.Marshal(StoredRates{Base: base, Rates: rates})
	if err != nil {
		return fmt.Errorf("encode rates: %w", err)
	}
	if err := s.medium.Set(ctx, KeyRates, raw); err != nil {
		return fmt.Errorf("write rates: %w", err)
	}
	return nil
}

// LoadRates returns the stored rate table; ok is false when none was saved
// or the stored value is unreadable.
func (s *Settings) LoadRates(ctx context.Context) (StoredRates, bool, error) {
	raw, found, err := s.medium.Get(ctx, KeyRates)
	if err != nil {
		return StoredRates{}, false, fmt.Errorf("read rates: %w", err)
	}
	if !found {
		return StoredRates{}, false, nil
	}
	var stored StoredRates
	if err := json.Unmarshal(raw, &stored); err != nil || stored.Base == "" || len(stored.Rates) == 0 {
		return StoredRates{}, false, nil
	}
	return stored, true, nil
}

// ShouldUpdateRates reports whether rates were never refreshed or the last
// refresh is older than RatesMaxAge.
func (s *Settings) ShouldUpdateRates(ctx context.Context, now time.Time) (bool, error) {
	last, ok, err := s.RatesUpdatedAt(ctx)
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	return now.Sub(last) > RatesMaxAge, nil
}
