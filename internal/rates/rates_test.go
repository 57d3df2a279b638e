package rates

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"nosam/internal/currency"
	"nosam/internal/settings"
	"nosam/internal/storage"
)

type countingSource struct {
	calls atomic.Int32
	gate  chan struct{}
	rates map[string]float64
	err   error
}

func (s *countingSource) Latest(context.Context) (string, map[string]float64, error) {
	s.calls.Add(1)
	if s.gate != nil {
		<-s.gate
	}
	if s.err != nil {
		return "", nil, s.err
	}
	return "USD", s.rates, nil
}

func newRefresher(src Source, now time.Time) (*Refresher, *currency.Table, *settings.Settings) {
	table := currency.Default()
	st := settings.New(storage.NewMemory(0), table)
	r := NewRefresher(table, st, src, nil).WithClock(func() time.Time { return now })
	return r, table, st
}

func TestRefreshReplacesTable(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	next := currency.DefaultRates()
	next["CNY"] = 7.0
	r, table, st := newRefresher(&countingSource{rates: next}, now)

	res, err := r.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if res.Base != "USD" || res.Count != 20 || !res.UpdatedAt.Equal(now) {
		t.Errorf("unexpected result %+v", res)
	}
	if got, _ := table.Convert(100, "USD", "CNY"); got != 700 {
		t.Errorf("Convert after refresh = %v, want 700", got)
	}
	if stale, _ := st.ShouldUpdateRates(ctx, now.Add(time.Hour)); stale {
		t.Errorf("refresh time was not recorded")
	}
}

func TestRefreshRejectsBadTable(t *testing.T) {
	ctx := context.Background()
	bad := currency.DefaultRates()
	delete(bad, "EUR")
	r, table, st := newRefresher(&countingSource{rates: bad}, time.Now())

	if _, err := r.Refresh(ctx); !errors.Is(err, currency.ErrInvalidRates) {
		t.Fatalf("expected ErrInvalidRates, got %v", err)
	}
	if got, _ := table.Convert(100, "USD", "CNY"); got != 725 {
		t.Errorf("table changed after rejected refresh: %v", got)
	}
	if _, ok, _ := st.RatesUpdatedAt(ctx); ok {
		t.Errorf("failed refresh must not record a time")
	}
}

func TestRefreshedRatesSurviveRestart(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	medium := storage.NewMemory(0)
	next := currency.DefaultRates()
	next["CNY"] = 8.0

	table := currency.Default()
	r := NewRefresher(table, settings.New(medium, table), &countingSource{rates: next}, nil).
		WithClock(func() time.Time { return now })
	if _, err := r.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	later := now.Add(time.Hour)
	src := &countingSource{rates: currency.DefaultRates()}
	restarted := currency.Default()
	r2 := NewRefresher(restarted, settings.New(medium, restarted), src, nil).
		WithClock(func() time.Time { return later })

	ran, err := r2.RefreshIfStale(ctx)
	if err != nil || ran {
		t.Fatalf("RefreshIfStale = %v, %v; want no refresh", ran, err)
	}
	if got, _ := restarted.Convert(100, "USD", "CNY"); got != 800 {
		t.Errorf("Convert after restart = %v, want 800", got)
	}
	if n := src.calls.Load(); n != 0 {
		t.Errorf("source calls = %d, want 0", n)
	}
}

func TestRefreshIfStaleWithoutStoredRates(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	next := currency.DefaultRates()
	next["CNY"] = 8.0
	src := &countingSource{rates: next}
	r, table, st := newRefresher(src, now)

	// A refresh time with no stored table cannot be trusted.
	if err := st.MarkRatesUpdated(ctx, now.Add(-time.Hour)); err != nil {
		t.Fatal(err)
	}
	ran, err := r.RefreshIfStale(ctx)
	if err != nil || !ran {
		t.Fatalf("RefreshIfStale = %v, %v; want refresh", ran, err)
	}
	if got, _ := table.Convert(100, "USD", "CNY"); got != 800 {
		t.Errorf("Convert = %v, want 800", got)
	}
}

func TestRestoreIgnoresInvalidStoredTable(t *testing.T) {
	ctx := context.Background()
	r, table, st := newRefresher(&countingSource{rates: currency.DefaultRates()}, time.Now())

	if err := st.SaveRates(ctx, "USD", map[string]float64{"USD": 1, "CNY": 8}); err != nil {
		t.Fatal(err)
	}
	ok, err := r.Restore(ctx)
	if err != nil || ok {
		t.Fatalf("Restore = %v, %v; want false", ok, err)
	}
	if got, _ := table.Convert(100, "USD", "CNY"); got != 725 {
		t.Errorf("table changed by rejected restore: %v", got)
	}
}

func TestRefreshCoalescesConcurrentCalls(t *testing.T) {
	ctx := context.Background()
	src := &countingSource{rates: currency.DefaultRates(), gate: make(chan struct{})}
	r, _, _ := newRefresher(src, time.Now())

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Refresh(ctx); err != nil {
				t.Errorf("Refresh: %v", err)
			}
		}()
	}
	for src.calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	close(src.gate)
	wg.Wait()

	if n := src.calls.Load(); n < 1 || n > 5 {
		t.Fatalf("unexpected source calls %d", n)
	}
}

func TestRefreshIfStale(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	src := &countingSource{rates: currency.DefaultRates()}
	r, _, st := newRefresher(src, now)

	ran, err := r.RefreshIfStale(ctx)
	if err != nil || !ran {
		t.Fatalf("first RefreshIfStale = %v, %v; want refresh", ran, err)
	}
	ran, err = r.RefreshIfStale(ctx)
	if err != nil || ran {
		t.Fatalf("second RefreshIfStale = %v, %v; want no refresh", ran, err)
	}

	if err := st.MarkRatesUpdated(ctx, now.Add(-48*time.Hour)); err != nil {
		t.Fatal(err)
	}
	ran, err = r.RefreshIfStale(ctx)
	if err != nil || !ran {
		t.Fatalf("stale RefreshIfStale = %v, %v; want refresh", ran, err)
	}
	if n := src.calls.Load(); n != 2 {
		t.Fatalf("source calls = %d, want 2", n)
	}
}

func TestHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"base":"USD","rates":{"CNY":7.2,"EUR":0.9}}`))
	}))
	defer srv.Close()

	base, rates, err := NewHTTPSource(srv.URL).Latest(context.Background())
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if base != "USD" || rates["CNY"] != 7.2 || rates["USD"] != 1 {
		t.Errorf("unexpected response %s %v", base, rates)
	}
}

func TestHTTPSourceStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	if _, _, err := NewHTTPSource(srv.URL).Latest(context.Background()); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestStaticSource(t *testing.T) {
	base, rates, err := StaticSource{}.Latest(context.Background())
	if err != nil || base != "USD" || rates["JPY"] != 149.5 {
		t.Fatalf("StaticSource = %s %v %v", base, rates, err)
	}
}
