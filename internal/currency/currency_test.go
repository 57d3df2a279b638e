package currency

import (
	"errors"
	"math"
	"testing"
)

func TestConvert(t *testing.T) {
	table := Default()

	tests := []struct {
		name   string
		amount float64
		from   string
		to     string
		want   float64
	}{
		{"usd to cny", 100, "USD", "CNY", 725},
		{"cny to usd", 725, "CNY", "USD", 100},
		{"eur to gbp rounds to cents", 10, "EUR", "GBP", 8.59},
		{"jpy to usd", 1000, "JPY", "USD", 6.69},
		{"zero", 0, "USD", "KRW", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := table.Convert(tt.amount, tt.from, tt.to)
			if err != nil {
				t.Fatalf("Convert() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Convert(%v, %s, %s) = %v, want %v", tt.amount, tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestConvertIdentity(t *testing.T) {
	table := Default()
	amounts := []float64{0, 0.001, 1.005, 19.99, 123456.789, 1.0 / 3}
	for _, c := range table.Currencies() {
		for _, x := range amounts {
			got, err := table.Convert(x, c.Code, c.Code)
			if err != nil {
				t.Fatalf("Convert(%v, %s, %s) error = %v", x, c.Code, c.Code, err)
			}
			if got != x {
				t.Fatalf("Convert(%v, %s, %s) = %v, want exact identity", x, c.Code, c.Code, got)
			}
		}
	}
}

// A round trip drifts by at most one cent when the first leg goes towards
// the currency with more units per base unit.
func TestConvertRoundTrip(t *testing.T) {
	table := Default()
	rates := table.Rates()
	amounts := []float64{0, 1, 9.99, 20, 100, 1234.56}

	for _, a := range table.Currencies() {
		for _, b := range table.Currencies() {
			if a.Code == b.Code || rates[a.Code] > rates[b.Code] {
				continue
			}
			for _, x := range amounts {
				there, err := table.Convert(x, a.Code, b.Code)
				if err != nil {
					t.Fatal(err)
				}
				back, err := table.Convert(there, b.Code, a.Code)
				if err != nil {
					t.Fatal(err)
				}
				if math.Abs(back-x) > 0.01+1e-9 {
					t.Errorf("%v %s -> %s -> %s = %v, drift %v", x, a.Code, b.Code, a.Code, back, back-x)
				}
			}
		}
	}
}

func TestConvertUnknownCurrency(t *testing.T) {
	table := Default()
	for _, pair := range [][2]string{{"XXX", "USD"}, {"USD", "XXX"}, {"XXX", "XXX"}} {
		_, err := table.Convert(1, pair[0], pair[1])
		if !errors.Is(err, ErrUnknownCurrency) {
			t.Fatalf("Convert(1, %s, %s) error = %v, want ErrUnknownCurrency", pair[0], pair[1], err)
		}
		var uerr *UnknownCurrencyError
		if !errors.As(err, &uerr) || uerr.Code != "XXX" {
			t.Fatalf("expected UnknownCurrencyError for XXX, got %v", err)
		}
	}
}

func TestLookup(t *testing.T) {
	table := Default()
	if got := table.Lookup("EUR"); got.Symbol != "€" || got.Name != "欧元" {
		t.Errorf("Lookup(EUR) = %+v", got)
	}
	if got := table.Lookup("ZZZ"); got.Code != "USD" {
		t.Errorf("Lookup(ZZZ) = %+v, want USD fallback", got)
	}
	if _, err := table.Currency("ZZZ"); !errors.Is(err, ErrUnknownCurrency) {
		t.Errorf("Currency(ZZZ) error = %v, want ErrUnknownCurrency", err)
	}
	if n := len(table.Currencies()); n != 20 {
		t.Errorf("expected 20 currencies, got %d", n)
	}
}

func TestFormat(t *testing.T) {
	table := Default()
	tests := []struct {
		amount   float64
		code     string
		showCode bool
		want     string
	}{
		{1234.5, "USD", false, "$1,234.5"},
		{725, "CNY", true, "¥725 CNY"},
		{0, "EUR", false, "€0"},
		{12.345, "GBP", false, "£12.35"},
		{10, "ZZZ", true, "$10 ZZZ"},
	}
	for _, tt := range tests {
		amount := tt.amount
		if got := table.Format(amount, tt.code, tt.showCode); got != tt.want {
			t.Errorf("Format(%v, %s, %v) = %q, want %q", tt.amount, tt.code, tt.showCode, got, tt.want)
		}
		if amount != tt.amount {
			t.Errorf("Format mutated its amount")
		}
	}
}

func TestReplaceRates(t *testing.T) {
	table := Default()

	next := DefaultRates()
	next["CNY"] = 7.10
	next["BRL"] = 5.0
	if err := table.ReplaceRates("USD", next); err != nil {
		t.Fatalf("ReplaceRates() error = %v", err)
	}
	if got, _ := table.Convert(100, "USD", "CNY"); got != 710 {
		t.Errorf("after replace Convert(100, USD, CNY) = %v, want 710", got)
	}
	if _, ok := table.Rates()["BRL"]; ok {
		t.Errorf("unregistered rate should be dropped")
	}

	bad := []struct {
		name  string
		base  string
		rates func() map[string]float64
	}{
		{"missing currency", "USD", func() map[string]float64 { r := DefaultRates(); delete(r, "TWD"); return r }},
		{"negative rate", "USD", func() map[string]float64 { r := DefaultRates(); r["EUR"] = -1; return r }},
		{"zero rate", "USD", func() map[string]float64 { r := DefaultRates(); r["EUR"] = 0; return r }},
		{"not iso", "USD", func() map[string]float64 { r := DefaultRates(); r["ABCD"] = 2; return r }},
		{"base not one", "USD", func() map[string]float64 { r := DefaultRates(); r["USD"] = 1.1; return r }},
		{"unknown base", "QQQ", DefaultRates},
	}
	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			if err := table.ReplaceRates(tt.base, tt.rates()); !errors.Is(err, ErrInvalidRates) {
				t.Fatalf("expected ErrInvalidRates, got %v", err)
			}
			if got, _ := table.Convert(100, "USD", "CNY"); got != 710 {
				t.Errorf("failed replace must keep previous rates, got %v", got)
			}
		})
	}
}
