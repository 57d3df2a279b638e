// Package services composes the facade, the currency table and the stored
// preferences into the views the API and the CLI serve.
package services

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"nosam/internal/core"
	"nosam/internal/currency"
	"nosam/internal/facade"
	"nosam/internal/log"
	"nosam/internal/settings"
	"nosam/internal/stats"
)

// Dashboard is the statistics view of every stored subscription.
type Dashboard struct {
	Stats         stats.Stats                `json:"stats"`
	Subscriptions []stats.PricedSubscription `json:"subscriptions"`
	// Skipped counts stored subscriptions that could not be decoded.
	Skipped int `json:"skipped,omitempty"`
}

// Renewal is a subscription whose period is ending or has ended.
type Renewal struct {
	core.Subscription
	Status        core.SubscriptionStatus `json:"status"`
	DaysRemaining int                     `json:"daysRemaining"`
}

type StatsService struct {
	client   *facade.Client
	table    *currency.Table
	settings *settings.Settings
	logger   *log.Logger
	now      func() time.Time
}

func NewStatsService(client *facade.Client, table *currency.Table, st *settings.Settings, logger *log.Logger) *StatsService {
	if logger == nil {
		logger = log.Discard()
	}
	return &StatsService{
		client:   client,
		table:    table,
		settings: st,
		logger:   logger.WithComponent(log.ComponentStats),
		now:      time.Now,
	}
}

// WithClock replaces the time source used by Renewals.
func (s *StatsService) WithClock(now func() time.Time) *StatsService {
	s.now = now
	return s
}

// Dashboard aggregates all subscriptions in display. An empty display uses
// the stored preference.
func (s *StatsService) Dashboard(ctx context.Context, display string) (Dashboard, error) {
	if display == "" {
		pref, err := s.settings.DisplayCurrency(ctx)
		if err != nil {
			return Dashboard{}, err
		}
		display = pref
	}

	subs, skipped, err := s.subscriptions(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	agg, err := stats.Aggregate(s.table, subs, display)
	if err != nil {
		return Dashboard{}, err
	}
	priced, err := stats.ConvertPrices(s.table, subs, display)
	if err != nil {
		return Dashboard{}, err
	}

	s.logger.DebugContext(ctx, "Dashboard computed",
		log.FieldCurrency, display,
		log.FieldCount, agg.Total)
	return Dashboard{Stats: agg, Subscriptions: priced, Skipped: skipped}, nil
}

// Renewals returns the subscriptions that are expiring or expired, soonest
// first. A subscription without an end date gets one from its start date
// and billing cycle; one with neither is left out.
func (s *StatsService) Renewals(ctx context.Context) ([]Renewal, error) {
	subs, _, err := s.subscriptions(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()

	var out []Renewal
	for _, sub := range subs {
		if sub.EndDate.IsZero() {
			if sub.StartDate.IsZero() {
				continue
			}
			end, err := core.EndDate(sub.StartDate, sub.BillingCycle)
			if err != nil {
				continue
			}
			sub.EndDate = end
		}
		status := sub.Status(now)
		if status == core.StatusActive {
			continue
		}
		out = append(out, Renewal{
			Subscription:  sub,
			Status:        status,
			DaysRemaining: core.DaysRemaining(sub.EndDate, now),
		})
	}
	slices.SortStableFunc(out, func(a, b Renewal) int {
		return cmp.Compare(a.EndDate.UnixMilli(), b.EndDate.UnixMilli())
	})
	return out, nil
}

func (s *StatsService) subscriptions(ctx context.Context) ([]core.Subscription, int, error) {
	res, err := s.client.ListObjects(ctx, core.TypeSubscription, math.MaxInt32, true).Await(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("list subscriptions: %w", err)
	}

	subs := make([]core.Subscription, 0, len(res.Items))
	skipped := 0
	for _, item := range res.Items {
		sub, err := core.SubscriptionFromObject(item)
		if err != nil {
			skipped++
			s.logger.WarnContext(ctx, "Skipping undecodable subscription",
				log.FieldObjectID, item.ObjectID,
				log.FieldError, err)
			continue
		}
		subs = append(subs, sub)
	}
	return subs, skipped, nil
}
