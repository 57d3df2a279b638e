package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"nosam/internal/core"
	"nosam/internal/currency"
	"nosam/internal/facade"
	"nosam/internal/settings"
	"nosam/internal/stats"
	"nosam/internal/storage"
	"nosam/internal/store"
)

type fixture struct {
	svc      *StatsService
	client   *facade.Client
	settings *settings.Settings
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	medium := storage.NewMemory(0)
	s, err := store.Open(context.Background(), medium)
	if err != nil {
		t.Fatal(err)
	}
	client := facade.New(s, nil)
	t.Cleanup(func() { client.Close() })

	table := currency.Default()
	st := settings.New(medium, table)
	return fixture{svc: NewStatsService(client, table, st, nil), client: client, settings: st}
}

func (f fixture) create(t *testing.T, data core.Data) {
	t.Helper()
	ctx := context.Background()
	if _, err := f.client.CreateObject(ctx, core.TypeSubscription, data).Await(ctx); err != nil {
		t.Fatal(err)
	}
}

func TestDashboard(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.create(t, core.Data{"productName": "ChatGPT Plus", "price": 20, "currency": "USD", "billingCycle": "月付"})
	f.create(t, core.Data{"productName": "Claude Pro", "price": 200, "currency": "USD", "billingCycle": "年付"})
	f.create(t, core.Data{"productName": "Copilot", "price": 30, "currency": "USD", "billingCycle": "季付"})

	got, err := f.svc.Dashboard(ctx, "USD")
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	want := stats.Stats{Total: 3, MonthlyTotal: 47, YearlyTotal: 560, AvgPrice: 16, Currency: "USD"}
	if got.Stats != want {
		t.Errorf("Stats = %+v, want %+v", got.Stats, want)
	}
	if len(got.Subscriptions) != 3 || got.Subscriptions[0].DisplayCurrency != "USD" {
		t.Errorf("unexpected priced rows %+v", got.Subscriptions)
	}
}

func TestDashboardUsesStoredPreference(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.create(t, core.Data{"productName": "Kimi", "price": 79, "billingCycle": "月付"})

	got, err := f.svc.Dashboard(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if got.Stats.Currency != "CNY" || got.Stats.MonthlyTotal != 79 {
		t.Errorf("default preference: %+v", got.Stats)
	}

	if err := f.settings.SetDisplayCurrency(ctx, "USD"); err != nil {
		t.Fatal(err)
	}
	got, err = f.svc.Dashboard(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if got.Stats.Currency != "USD" || got.Stats.MonthlyTotal != 11 {
		t.Errorf("USD preference: %+v", got.Stats)
	}
}

func TestDashboardSkipsUndecodable(t *testing.T) {
	f := newFixture(t)
	f.create(t, core.Data{"productName": "Broken"})
	f.create(t, core.Data{"productName": "Kimi", "price": 79, "billingCycle": "月付"})

	got, err := f.svc.Dashboard(context.Background(), "CNY")
	if err != nil {
		t.Fatal(err)
	}
	if got.Skipped != 1 || got.Stats.Total != 1 {
		t.Errorf("Skipped = %d, Total = %d", got.Skipped, got.Stats.Total)
	}
}

func TestDashboardUnknownCurrency(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Dashboard(context.Background(), "XXX")
	if !errors.Is(err, currency.ErrUnknownCurrency) {
		t.Fatalf("expected ErrUnknownCurrency, got %v", err)
	}
}

func TestRenewals(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := newFixture(t)
	f.svc.WithClock(func() time.Time { return now })

	f.create(t, core.Data{"productName": "Expired", "price": 1, "billingCycle": "月付", "endDate": "2025-05-20"})
	f.create(t, core.Data{"productName": "Soon", "price": 1, "billingCycle": "月付", "endDate": "2025-06-10"})
	f.create(t, core.Data{"productName": "Later", "price": 1, "billingCycle": "年付", "endDate": "2026-01-01"})
	f.create(t, core.Data{"productName": "Derived", "price": 1, "billingCycle": "月付", "startDate": "2025-05-05"})
	f.create(t, core.Data{"productName": "Undated", "price": 1, "billingCycle": "月付"})

	got, err := f.svc.Renewals(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	want := []struct {
		name   string
		status core.SubscriptionStatus
	}{
		{"Expired", core.StatusExpired},
		{"Derived", core.StatusExpiring},
		{"Soon", core.StatusExpiring},
	}
	if len(got) != len(want) {
		t.Fatalf("Renewals = %+v", got)
	}
	for i, w := range want {
		if got[i].Name != w.name || got[i].Status != w.status {
			t.Errorf("renewal %d = %s/%s, want %s/%s", i, got[i].Name, got[i].Status, w.name, w.status)
		}
	}
	if got[0].DaysRemaining != 0 || got[2].DaysRemaining != 9 {
		t.Errorf("days remaining: %d, %d", got[0].DaysRemaining, got[2].DaysRemaining)
	}
}
