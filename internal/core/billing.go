// Package core provides the domain types shared by the store, the currency
// engine and the statistics aggregator.
//
// This file implements the Strategy Pattern for billing cycles. Each cycle
// (monthly, quarterly, yearly) has its own strategy that knows how to
// normalise a period amount and when the period ends.
package core

import (
	"fmt"
	"math"
	"time"
)

// CycleStrategy normalises amounts billed on one billing cycle.
type CycleStrategy interface {
	// Monthly returns the monthly equivalent of an amount billed once per cycle.
	Monthly(amount float64) float64
	// Yearly returns the yearly equivalent of an amount billed once per cycle.
	Yearly(amount float64) float64
	// Next returns the date the period starting at start ends.
	Next(start time.Time) time.Time
}

// MonthlyCycle implements CycleStrategy for monthly billing.
type MonthlyCycle struct{}

func (MonthlyCycle) Monthly(amount float64) float64 { return amount }
func (MonthlyCycle) Yearly(amount float64) float64  { return amount * 12 }
func (MonthlyCycle) Next(start time.Time) time.Time { return start.AddDate(0, 1, 0) }

// QuarterlyCycle implements CycleStrategy for quarterly billing.
// Yearly uses a flat four periods per year; monthly divides by three.
type QuarterlyCycle struct{}

func (QuarterlyCycle) Monthly(amount float64) float64 { return amount / 3 }
func (QuarterlyCycle) Yearly(amount float64) float64  { return amount * 4 }
func (QuarterlyCycle) Next(start time.Time) time.Time { return start.AddDate(0, 3, 0) }

// YearlyCycle implements CycleStrategy for yearly billing.
type YearlyCycle struct{}

func (YearlyCycle) Monthly(amount float64) float64 { return amount / 12 }
func (YearlyCycle) Yearly(amount float64) float64  { return amount }
func (YearlyCycle) Next(start time.Time) time.Time { return start.AddDate(1, 0, 0) }

var cycleStrategies = map[BillingCycle]CycleStrategy{
	Monthly:   MonthlyCycle{},
	Quarterly: QuarterlyCycle{},
	Yearly:    YearlyCycle{},
}

// GetCycleStrategy returns the strategy for a billing cycle.
func GetCycleStrategy(c BillingCycle) (CycleStrategy, error) {
	s, ok := cycleStrategies[c]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBillingCycle, string(c))
	}
	return s, nil
}

// EndDate returns the end of the billing period that starts at start.
func EndDate(start time.Time, c BillingCycle) (time.Time, error) {
	s, err := GetCycleStrategy(c)
	if err != nil {
		return time.Time{}, err
	}
	return s.Next(start), nil
}

// DaysRemaining returns the whole days left until end, rounded up, never
// negative.
func DaysRemaining(end, now time.Time) int {
	diff := end.Sub(now).Hours() / 24
	if diff <= 0 {
		return 0
	}
	return int(math.Ceil(diff))
}

type SubscriptionStatus string

const (
	StatusActive   SubscriptionStatus = "active"
	StatusExpiring SubscriptionStatus = "expiring"
	StatusExpired  SubscriptionStatus = "expired"
)

// ExpiringWindow is the number of days before the end date during which a
// subscription is reported as expiring.
const ExpiringWindow = 30

// Status classifies a subscription by the days left until its end date.
func (s Subscription) Status(now time.Time) SubscriptionStatus {
	days := DaysRemaining(s.EndDate, now)
	switch {
	case days == 0:
		return StatusExpired
	case days <= ExpiringWindow:
		return StatusExpiring
	default:
		return StatusActive
	}
}
