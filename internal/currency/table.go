package currency

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"sync"

	"github.com/Rhymond/go-money"
)

var ErrInvalidRates = errors.New("invalid rate table")

// Table is the registered currencies plus the current rate table. Rates are
// only ever replaced as a whole. A Table is safe for concurrent use.
type Table struct {
	mu         sync.RWMutex
	base       string
	currencies []Currency
	byCode     map[string]Currency
	rates      map[string]float64
}

// Default returns a table loaded with the built-in currencies and rates.
func Default() *Table {
	t, err := NewTable(BaseCurrency, DefaultCurrencies(), DefaultRates())
	if err != nil {
		panic(fmt.Sprintf("currency: default table: %v", err))
	}
	return t
}

// NewTable builds a table. The first currency is the documented fallback
// returned by Lookup for unknown codes.
func NewTable(base string, currencies []Currency, rates map[string]float64) (*Table, error) {
	if len(currencies) == 0 {
		return nil, fmt.Errorf("%w: no currencies", ErrInvalidRates)
	}
	t := &Table{
		base:       base,
		currencies: append([]Currency(nil), currencies...),
		byCode:     make(map[string]Currency, len(currencies)),
	}
	for _, c := range currencies {
		t.byCode[c.Code] = c
	}
	if err := t.ReplaceRates(base, rates); err != nil {
		return nil, err
	}
	return t, nil
}

// Base returns the code the rates are expressed against.
func (t *Table) Base() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.base
}

// Currencies returns the registered currencies in table order.
func (t *Table) Currencies() []Currency {
	return append([]Currency(nil), t.currencies...)
}

// Rates returns a copy of the current rate table.
func (t *Table) Rates() map[string]float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return maps.Clone(t.rates)
}

// Rate returns units of code per one unit of the base currency.
func (t *Table) Rate(code string) (float64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rateLocked(code)
}

func (t *Table) rateLocked(code string) (float64, error) {
	if _, ok := t.byCode[code]; !ok {
		return 0, &UnknownCurrencyError{Code: code}
	}
	r, ok := t.rates[code]
	if !ok {
		return 0, &UnknownCurrencyError{Code: code}
	}
	return r, nil
}

// ReplaceRates swaps the whole rate table. Every registered currency must
// have a positive finite rate, every code must be an ISO 4217 code and the
// base must have rate 1. Rates for unregistered codes are dropped. On error
// the previous table stays in place.
func (t *Table) ReplaceRates(base string, rates map[string]float64) error {
	if money.GetCurrency(base) == nil {
		return fmt.Errorf("%w: base %q is not an ISO 4217 code", ErrInvalidRates, base)
	}
	if r, ok := rates[base]; !ok || r != 1 {
		return fmt.Errorf("%w: base %s must have rate 1", ErrInvalidRates, base)
	}
	if _, ok := t.byCode[base]; !ok {
		return fmt.Errorf("%w: base %s is not registered", ErrInvalidRates, base)
	}

	next := make(map[string]float64, len(t.currencies))
	for code, r := range rates {
		if money.GetCurrency(code) == nil {
			return fmt.Errorf("%w: %q is not an ISO 4217 code", ErrInvalidRates, code)
		}
		if r <= 0 || math.IsNaN(r) || math.IsInf(r, 0) {
			return fmt.Errorf("%w: rate for %s must be positive, got %v", ErrInvalidRates, code, r)
		}
		if _, ok := t.byCode[code]; ok {
			next[code] = r
		}
	}
	for _, c := range t.currencies {
		if _, ok := next[c.Code]; !ok {
			return fmt.Errorf("%w: missing rate for %s", ErrInvalidRates, c.Code)
		}
	}

	t.mu.Lock()
	t.base = base
	t.rates = next
	t.mu.Unlock()
	return nil
}

// Lookup returns the record for code, or the table's first currency when
// code is not registered.
func (t *Table) Lookup(code string) Currency {
	if c, ok := t.byCode[code]; ok {
		return c
	}
	return t.currencies[0]
}

// Currency is the strict variant of Lookup.
func (t *Table) Currency(code string) (Currency, error) {
	c, ok := t.byCode[code]
	if !ok {
		return Currency{}, &UnknownCurrencyError{Code: code}
	}
	return c, nil
}
