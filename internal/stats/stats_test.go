package stats

import (
	"errors"
	"testing"

	"nosam/internal/core"
	"nosam/internal/currency"
)

func TestAggregate(t *testing.T) {
	table := currency.Default()

	tests := []struct {
		name    string
		subs    []core.Subscription
		display string
		want    Stats
	}{
		{
			name: "mixed cycles in usd",
			subs: []core.Subscription{
				{ID: "a", Price: 20, Currency: "USD", BillingCycle: core.Monthly, Users: 1},
				{ID: "b", Price: 200, Currency: "USD", BillingCycle: core.Yearly, Users: 1},
				{ID: "c", Price: 30, Currency: "USD", BillingCycle: core.Quarterly, Users: 1},
			},
			display: "USD",
			want:    Stats{Total: 3, MonthlyTotal: 47, YearlyTotal: 560, AvgPrice: 16, Currency: "USD"},
		},
		{
			name:    "empty",
			subs:    nil,
			display: "CNY",
			want:    Stats{Total: 0, Currency: "CNY"},
		},
		{
			name: "users multiply and currency converts",
			subs: []core.Subscription{
				{ID: "a", Price: 20, Currency: "USD", BillingCycle: core.Monthly, Users: 3},
			},
			display: "CNY",
			want:    Stats{Total: 1, MonthlyTotal: 435, YearlyTotal: 5220, AvgPrice: 435, Currency: "CNY"},
		},
		{
			name: "fractional users are not truncated",
			subs: []core.Subscription{
				{ID: "a", Price: 40, Currency: "USD", BillingCycle: core.Monthly, Users: 1.5},
			},
			display: "CNY",
			want:    Stats{Total: 1, MonthlyTotal: 435, YearlyTotal: 5220, AvgPrice: 435, Currency: "CNY"},
		},
		{
			name: "missing currency and users default",
			subs: []core.Subscription{
				{ID: "a", Price: 79, BillingCycle: core.Monthly},
			},
			display: "CNY",
			want:    Stats{Total: 1, MonthlyTotal: 79, YearlyTotal: 948, AvgPrice: 79, Currency: "CNY"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Aggregate(table, tt.subs, tt.display)
			if err != nil {
				t.Fatalf("Aggregate() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Aggregate() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestAggregateErrors(t *testing.T) {
	table := currency.Default()

	_, err := Aggregate(table, []core.Subscription{{ID: "a", Price: 1, Currency: "XXX", BillingCycle: core.Monthly}}, "USD")
	if !errors.Is(err, currency.ErrUnknownCurrency) {
		t.Errorf("expected ErrUnknownCurrency, got %v", err)
	}

	_, err = Aggregate(table, []core.Subscription{{ID: "a", Price: 1, Currency: "USD", BillingCycle: "weekly"}}, "USD")
	if !errors.Is(err, core.ErrUnknownBillingCycle) {
		t.Errorf("expected ErrUnknownBillingCycle, got %v", err)
	}

	_, err = Aggregate(table, nil, "XXX")
	if !errors.Is(err, currency.ErrUnknownCurrency) {
		t.Errorf("expected ErrUnknownCurrency for display, got %v", err)
	}
}

func TestConvertPrices(t *testing.T) {
	table := currency.Default()
	subs := []core.Subscription{
		{ID: "a", Price: 240, Currency: "USD", BillingCycle: core.Yearly, Users: 2},
		{ID: "b", Price: 725, Currency: "CNY", BillingCycle: core.Monthly, Users: 1},
	}

	got, err := ConvertPrices(table, subs, "USD")
	if err != nil {
		t.Fatalf("ConvertPrices() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if got[0].DisplayPrice != 240 || got[0].DisplayMonthly != 40 {
		t.Errorf("row a = %+v", got[0])
	}
	if got[1].DisplayPrice != 100 || got[1].DisplayMonthly != 100 || got[1].DisplayCurrency != "USD" {
		t.Errorf("row b = %+v", got[1])
	}
	if got[1].Subscription.ID != "b" {
		t.Errorf("row b lost its subscription")
	}
}
