// Package stats reduces subscriptions to spend figures in a display currency.
package stats

import (
	"fmt"

	"nosam/internal/core"
	"nosam/internal/currency"
)

// Stats is the aggregate spend of a set of subscriptions. Money fields are
// whole units of Currency.
type Stats struct {
	Total        int     `json:"total"`
	MonthlyTotal float64 `json:"monthlyTotal"`
	YearlyTotal  float64 `json:"yearlyTotal"`
	AvgPrice     float64 `json:"avgPrice"`
	Currency     string  `json:"currency"`
}

// PricedSubscription is a subscription with its price expressed in the
// display currency.
type PricedSubscription struct {
	core.Subscription
	DisplayPrice    float64 `json:"displayPrice"`
	DisplayMonthly  float64 `json:"displayMonthly"`
	DisplayCurrency string  `json:"displayCurrency"`
}

// Aggregate converts every subscription to display, scales it by its user
// count and normalises it to monthly and yearly figures. Sums are kept as
// floats and only the final figures are rounded half away from zero.
// AvgPrice is the unrounded monthly sum divided by the count.
func Aggregate(table *currency.Table, subs []core.Subscription, display string) (Stats, error) {
	out := Stats{Total: len(subs), Currency: display}
	if _, err := table.Currency(display); err != nil {
		return Stats{}, err
	}

	var monthly, yearly float64
	for _, s := range subs {
		strategy, err := core.GetCycleStrategy(s.BillingCycle)
		if err != nil {
			return Stats{}, fmt.Errorf("subscription %s: %w", s.ID, err)
		}
		price, err := table.Convert(s.Price, currencyOf(s), display)
		if err != nil {
			return Stats{}, fmt.Errorf("subscription %s: %w", s.ID, err)
		}
		period := price * usersOf(s)
		monthly += strategy.Monthly(period)
		yearly += strategy.Yearly(period)
	}

	out.MonthlyTotal = core.Round(monthly, 0)
	out.YearlyTotal = core.Round(yearly, 0)
	if out.Total > 0 {
		out.AvgPrice = core.Round(monthly/float64(out.Total), 0)
	}
	return out, nil
}

// ConvertPrices prices every subscription in display. DisplayMonthly covers
// all users of the subscription.
func ConvertPrices(table *currency.Table, subs []core.Subscription, display string) ([]PricedSubscription, error) {
	out := make([]PricedSubscription, 0, len(subs))
	for _, s := range subs {
		strategy, err := core.GetCycleStrategy(s.BillingCycle)
		if err != nil {
			return nil, fmt.Errorf("subscription %s: %w", s.ID, err)
		}
		price, err := table.Convert(s.Price, currencyOf(s), display)
		if err != nil {
			return nil, fmt.Errorf("subscription %s: %w", s.ID, err)
		}
		out = append(out, PricedSubscription{
			Subscription:    s,
			DisplayPrice:    price,
			DisplayMonthly:  strategy.Monthly(price) * usersOf(s),
			DisplayCurrency: display,
		})
	}
	return out, nil
}

func currencyOf(s core.Subscription) string {
	if s.Currency == "" {
		return core.DefaultCurrency
	}
	return s.Currency
}

func usersOf(s core.Subscription) float64 {
	if s.Users <= 0 {
		return 1
	}
	return s.Users
}
