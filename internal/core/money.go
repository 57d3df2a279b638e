package core

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a decimal string to a float64 amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. A comma
// followed by exactly three digits, or any comma before a dot, separates
// thousands and must sit between groups of three digits. Negative values and
// anything that is not a plain decimal number are rejected with
// ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("12.34")    -> 12.34, nil
//	ParseAmount("12,34")    -> 12.34, nil
//	ParseAmount("1,234")    -> 1234, nil
//	ParseAmount("1,234.50") -> 1234.5, nil
//	ParseAmount("1,2,3")    -> 0, ErrInvalidAmount
//	ParseAmount("-1")       -> 0, ErrInvalidAmount
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	if strings.ContainsAny(s, "eE") {
		return 0, ErrInvalidAmount
	}
	s, ok := normalizeSeparators(s)
	if !ok {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return d.InexactFloat64(), nil
}

// normalizeSeparators rewrites s with a dot decimal separator and no
// thousands separators.
func normalizeSeparators(s string) (string, bool) {
	intPart, frac, hasDot := strings.Cut(s, ".")
	if !hasDot && strings.Count(s, ",") == 1 {
		whole, rest, _ := strings.Cut(s, ",")
		if len(rest) != 3 {
			return whole + "." + rest, true
		}
	}
	if strings.Contains(frac, ",") {
		return "", false
	}
	groups := strings.Split(intPart, ",")
	if len(groups) > 1 {
		if n := len(groups[0]); n == 0 || n > 3 {
			return "", false
		}
		for _, g := range groups[1:] {
			if len(g) != 3 {
				return "", false
			}
		}
	}
	out := strings.Join(groups, "")
	if hasDot {
		out += "." + frac
	}
	return out, true
}

// Round rounds x to the given number of decimal places, half away from zero.
// Rounding works on the shortest decimal representation of x, so 1.005 rounds
// to 1.01.
func Round(x float64, places int32) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	return decimal.NewFromFloat(x).Round(places).InexactFloat64()
}
