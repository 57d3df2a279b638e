package rates

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"nosam/internal/currency"
	"nosam/internal/log"
	"nosam/internal/settings"
)

// Result describes a completed refresh.
type Result struct {
	Base      string    `json:"base"`
	Count     int       `json:"count"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Refresher replaces the currency table's rates with the source's latest
// and stores them along with the refresh time. Concurrent refreshes share one
// fetch.
type Refresher struct {
	table    *currency.Table
	settings *settings.Settings
	source   Source
	now      func() time.Time
	logger   *log.Logger
	group    singleflight.Group
	// current is set once the table holds the stored rates.
	current atomic.Bool
}

func NewRefresher(table *currency.Table, st *settings.Settings, source Source, logger *log.Logger) *Refresher {
	if logger == nil {
		logger = log.Discard()
	}
	if source == nil {
		source = StaticSource{}
	}
	return &Refresher{
		table:    table,
		settings: st,
		source:   source,
		now:      time.Now,
		logger:   logger.WithComponent(log.ComponentRates),
	}
}

// WithClock replaces the time source, for tests.
func (r *Refresher) WithClock(now func() time.Time) *Refresher {
	r.now = now
	return r
}

// Refresh fetches and installs the latest rates. A rejected table leaves the
// current rates in place.
func (r *Refresher) Refresh(ctx context.Context) (Result, error) {
	v, err, shared := r.group.Do("refresh", func() (any, error) {
		return r.refresh(ctx)
	})
	if err != nil {
		return Result{}, err
	}
	if shared {
		r.logger.DebugContext(ctx, "Joined in-flight rate refresh")
	}
	return v.(Result), nil
}

func (r *Refresher) refresh(ctx context.Context) (Result, error) {
	base, latest, err := r.source.Latest(ctx)
	if err != nil {
		r.logger.WarnContext(ctx, "Rate source failed", log.FieldOperation, log.OpRefresh, log.FieldError, err)
		return Result{}, err
	}
	if err := r.table.ReplaceRates(base, latest); err != nil {
		r.logger.WarnContext(ctx, "Rejected rate table", log.FieldOperation, log.OpRefresh, log.FieldError, err)
		return Result{}, err
	}
	if err := r.settings.SaveRates(ctx, base, latest); err != nil {
		return Result{}, fmt.Errorf("store rates: %w", err)
	}
	now := r.now()
	if err := r.settings.MarkRatesUpdated(ctx, now); err != nil {
		return Result{}, fmt.Errorf("record refresh: %w", err)
	}
	r.current.Store(true)
	res := Result{Base: base, Count: len(r.table.Rates()), UpdatedAt: now.UTC()}
	r.logger.InfoContext(ctx, "Exchange rates refreshed",
		log.FieldOperation, log.OpRefresh,
		log.FieldRatesBase, base,
		log.FieldCount, res.Count)
	return res, nil
}

// Restore installs the rates stored by an earlier refresh. It reports false
// when nothing usable is stored; the table is then left unchanged.
func (r *Refresher) Restore(ctx context.Context) (bool, error) {
	stored, ok, err := r.settings.LoadRates(ctx)
	if err != nil || !ok {
		return false, err
	}
	if err := r.table.ReplaceRates(stored.Base, stored.Rates); err != nil {
		r.logger.WarnContext(ctx, "Ignoring stored rate table", log.FieldOperation, log.OpRefresh, log.FieldError, err)
		return false, nil
	}
	r.current.Store(true)
	r.logger.DebugContext(ctx, "Restored stored exchange rates", log.FieldRatesBase, stored.Base)
	return true, nil
}

// RefreshIfStale refreshes when the stored refresh time is missing or older
// than a day, or when the rates from the last refresh cannot be restored.
// It reports whether a refresh ran.
func (r *Refresher) RefreshIfStale(ctx context.Context) (bool, error) {
	stale, err := r.settings.ShouldUpdateRates(ctx, r.now())
	if err != nil {
		return false, err
	}
	if !stale && !r.current.Load() {
		restored, err := r.Restore(ctx)
		if err != nil {
			return false, err
		}
		stale = !restored
	}
	if !stale {
		return false, nil
	}
	if _, err := r.Refresh(ctx); err != nil {
		return false, err
	}
	return true, nil
}
