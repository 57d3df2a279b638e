// Package currency holds the currency reference table, the exchange rates
// relative to a base currency and the conversion and formatting functions
// built on top of them.
package currency

import (
	"errors"
	"fmt"
)

// BaseCurrency is the unit the default rate table is expressed in.
const BaseCurrency = "USD"

// Currency is static reference data for one currency.
type Currency struct {
	Code   string `json:"code"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Flag   string `json:"flag"`
}

var ErrUnknownCurrency = errors.New("unknown currency")

// UnknownCurrencyError reports a code that is not registered in the table.
type UnknownCurrencyError struct {
	Code string
}

func (e *UnknownCurrencyError) Error() string {
	return fmt.Sprintf("unknown currency %q", e.Code)
}

func (e *UnknownCurrencyError) Is(target error) bool {
	return target == ErrUnknownCurrency
}

var defaultCurrencies = []Currency{
	{Code: "USD", Symbol: "$", Name: "美元", Flag: "🇺🇸"},
	{Code: "CNY", Symbol: "¥", Name: "人民币", Flag: "🇨🇳"},
	{Code: "HKD", Symbol: "HK$", Name: "港币", Flag: "🇭🇰"},
	{Code: "EUR", Symbol: "€", Name: "欧元", Flag: "🇪🇺"},
	{Code: "GBP", Symbol: "£", Name: "英镑", Flag: "🇬🇧"},
	{Code: "JPY", Symbol: "¥", Name: "日元", Flag: "🇯🇵"},
	{Code: "KRW", Symbol: "₩", Name: "韩元", Flag: "🇰🇷"},
	{Code: "SGD", Symbol: "S$", Name: "新加坡元", Flag: "🇸🇬"},
	{Code: "AUD", Symbol: "A$", Name: "澳元", Flag: "🇦🇺"},
	{Code: "CAD", Symbol: "C$", Name: "加元", Flag: "🇨🇦"},
	{Code: "CHF", Symbol: "Fr", Name: "瑞士法郎", Flag: "🇨🇭"},
	{Code: "INR", Symbol: "₹", Name: "印度卢比", Flag: "🇮🇳"},
	{Code: "MYR", Symbol: "RM", Name: "马来西亚令吉", Flag: "🇲🇾"},
	{Code: "THB", Symbol: "฿", Name: "泰铢", Flag: "🇹🇭"},
	{Code: "NZD", Symbol: "NZ$", Name: "新西兰元", Flag: "🇳🇿"},
	{Code: "SEK", Symbol: "kr", Name: "瑞典克朗", Flag: "🇸🇪"},
	{Code: "NOK", Symbol: "kr", Name: "挪威克朗", Flag: "🇳🇴"},
	{Code: "DKK", Symbol: "kr", Name: "丹麦克朗", Flag: "🇩🇰"},
	{Code: "RUB", Symbol: "₽", Name: "俄罗斯卢布", Flag: "🇷🇺"},
	{Code: "TWD", Symbol: "NT$", Name: "新台币", Flag: "🇹🇼"},
}

// Units of each currency per 1 USD. Approximate, refreshed through rates.Refresher.
var defaultRates = map[string]float64{
	"USD": 1.00,
	"CNY": 7.25,
	"HKD": 7.85,
	"EUR": 0.92,
	"GBP": 0.79,
	"JPY": 149.50,
	"KRW": 1330.00,
	"SGD": 1.35,
	"AUD": 1.52,
	"CAD": 1.36,
	"CHF": 0.88,
	"INR": 83.20,
	"MYR": 4.68,
	"THB": 35.60,
	"NZD": 1.63,
	"SEK": 10.35,
	"NOK": 10.58,
	"DKK": 6.85,
	"RUB": 91.50,
	"TWD": 31.50,
}

// DefaultRates returns a copy of the built-in rate table.
func DefaultRates() map[string]float64 {
	out := make(map[string]float64, len(defaultRates))
	for k, v := range defaultRates {
		out[k] = v
	}
	return out
}

// DefaultCurrencies returns a copy of the built-in currency list.
func DefaultCurrencies() []Currency {
	return append([]Currency(nil), defaultCurrencies...)
}
