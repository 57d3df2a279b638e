package currency

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"nosam/internal/core"
)

// DisplayLocale drives digit grouping in Format.
var DisplayLocale = language.SimplifiedChinese

// Convert converts amount between two registered currencies through the
// base currency and rounds to cents, half away from zero. Converting a
// currency to itself returns amount unchanged.
//
//	Convert(100, "USD", "CNY") -> 725, nil
//	Convert(100, "USD", "XXX") -> 0, *UnknownCurrencyError
func (t *Table) Convert(amount float64, from, to string) (float64, error) {
	t.mu.RLock()
	rateFrom, err := t.rateLocked(from)
	if err != nil {
		t.mu.RUnlock()
		return 0, err
	}
	rateTo, err := t.rateLocked(to)
	t.mu.RUnlock()
	if err != nil {
		return 0, err
	}
	if from == to {
		return amount, nil
	}
	return core.Round(amount/rateFrom*rateTo, 2), nil
}

// Format renders amount with the currency symbol, locale digit grouping and
// at most two fraction digits, optionally followed by the code.
//
//	Format(1234.5, "USD", false) -> "$1,234.5"
//	Format(725, "CNY", true)     -> "¥725 CNY"
func (t *Table) Format(amount float64, code string, showCode bool) string {
	c := t.Lookup(code)
	rounded := core.Round(amount, 2)

	p := message.NewPrinter(DisplayLocale)
	s := c.Symbol + p.Sprintf("%v", number.Decimal(rounded, number.MinFractionDigits(0), number.MaxFractionDigits(2)))
	if showCode {
		s += " " + code
	}
	return s
}
