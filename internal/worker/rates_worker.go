package worker

import (
	"context"
	"time"

	"nosam/internal/amqp"
	"nosam/internal/log"
)

// StaleRefresher refreshes exchange rates once they are older than a day.
type StaleRefresher interface {
	RefreshIfStale(ctx context.Context) (bool, error)
}

// RatesWorker keeps the exchange rate table fresh in the background.
type RatesWorker struct {
	refresher StaleRefresher
	interval  time.Duration
	logger    *log.Logger
}

func NewRatesWorker(refresher StaleRefresher, interval time.Duration, logger *log.Logger) *RatesWorker {
	if logger == nil {
		logger = log.Discard()
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &RatesWorker{
		refresher: refresher,
		interval:  interval,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// StartupCheck refreshes stale rates once. A failure is logged and the
// built-in or last good rates stay in use.
func (w *RatesWorker) StartupCheck(ctx context.Context) bool {
	refreshed, err := w.refresher.RefreshIfStale(ctx)
	if err != nil {
		w.logger.WarnContext(ctx, "Startup rates check failed",
			log.FieldOperation, log.OpStartup,
			log.FieldError, err)
		return false
	}
	if refreshed {
		w.logger.InfoContext(ctx, "Rates refreshed on startup")
	} else {
		w.logger.DebugContext(ctx, "Rates are fresh")
	}
	return refreshed
}

// Run checks the rates on startup and then every interval until ctx ends.
func (w *RatesWorker) Run(ctx context.Context) error {
	w.StartupCheck(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := w.refresher.RefreshIfStale(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Periodic rates refresh failed",
					log.FieldOperation, log.OpRefresh,
					log.FieldError, err)
			}
		}
	}
}

// EventLogger returns a consumer handler that logs each object event.
func EventLogger(logger *log.Logger) func(amqp.ObjectEvent) error {
	if logger == nil {
		logger = log.Discard()
	}
	sl := log.NewStructuredLogger(logger.WithComponent(log.ComponentWorker))
	return func(e amqp.ObjectEvent) error {
		sl.LogObjectChanged(context.Background(), e.Action, e.ObjectType, e.ObjectID)
		return nil
	}
}
