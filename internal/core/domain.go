package core

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"strings"
	"time"
)

const (
	Monthly   BillingCycle = "月付"
	Quarterly BillingCycle = "季付"
	Yearly    BillingCycle = "年付"
)

// Well-known collection types.
const (
	TypeUser         = "user"
	TypeSubscription = "subscription"
	TypeProduct      = "ai_product"
)

const DefaultCurrency = "CNY"

type (
	BillingCycle string

	// Data is the schema-free payload of a stored object. Values are scalars:
	// string, bool, float64 or nil.
	Data map[string]any

	StoredObject struct {
		ObjectID   string    `json:"objectId"`
		ObjectType string    `json:"objectType,omitempty"`
		ObjectData Data      `json:"objectData,omitempty"`
		CreatedAt  time.Time `json:"createdAt,omitzero"`
		UpdatedAt  time.Time `json:"updatedAt,omitzero"`
	}

	Subscription struct {
		ID           string       `json:"id"`
		Name         string       `json:"name"`
		Plan         string       `json:"plan,omitempty"`
		Price        float64      `json:"price"`
		Currency     string       `json:"currency"`
		BillingCycle BillingCycle `json:"billingCycle"`
		// Users multiplies the price. Fractional shares are kept as given.
		Users     float64   `json:"users"`
		StartDate time.Time `json:"startDate,omitzero"`
		EndDate   time.Time `json:"endDate,omitzero"`
	}

	Product struct {
		Name         string  `json:"name"`
		MonthlyPrice float64 `json:"monthlyPrice"`
		YearlyPrice  float64 `json:"yearlyPrice"`
		Currency     string  `json:"currency"`
		Description  string  `json:"description,omitempty"`
		Status       string  `json:"status"`
	}

	User struct {
		Username string
		Password string
		Email    string
		Company  string
		Role     string
	}
)

var (
	ErrInvalidData         = errors.New("invalid object data")
	ErrUnknownBillingCycle = errors.New("unknown billing cycle")
	ErrEmptyName           = errors.New("empty name")
	ErrInvalidAmount       = errors.New("invalid amount")
)

// Normalize validates d and returns a copy in which every numeric value is a
// float64, which is the shape the payload has after a trip through JSON.
func (d Data) Normalize() (Data, error) {
	out := make(Data, len(d))
	for k, v := range d {
		if strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("%w: empty field name", ErrInvalidData)
		}
		switch val := v.(type) {
		case nil, string, bool, float64:
			out[k] = val
		case float32:
			out[k] = float64(val)
		case int:
			out[k] = float64(val)
		case int8:
			out[k] = float64(val)
		case int16:
			out[k] = float64(val)
		case int32:
			out[k] = float64(val)
		case int64:
			out[k] = float64(val)
		case uint:
			out[k] = float64(val)
		case uint8:
			out[k] = float64(val)
		case uint16:
			out[k] = float64(val)
		case uint32:
			out[k] = float64(val)
		case uint64:
			out[k] = float64(val)
		default:
			return nil, fmt.Errorf("%w: field %q has unsupported type %T", ErrInvalidData, k, v)
		}
	}
	return out, nil
}

// Clone returns a shallow copy. Values are scalars so this is a full copy.
func (d Data) Clone() Data {
	if d == nil {
		return nil
	}
	return maps.Clone(d)
}

// Merge returns d with updates applied on top: new keys overwrite, the
// others survive.
func (d Data) Merge(updates Data) Data {
	out := make(Data, len(d)+len(updates))
	maps.Copy(out, d)
	maps.Copy(out, updates)
	return out
}

// String returns the field as a string, or "" when absent or not a string.
func (d Data) String(key string) string {
	s, _ := d[key].(string)
	return s
}

// Float returns the numeric field, accepting numeric strings as well.
func (d Data) Float(key string) (float64, bool) {
	switch v := d[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		f, err := ParseAmount(v)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// Clone returns a copy of the object that shares nothing with o.
func (o StoredObject) Clone() StoredObject {
	o.ObjectData = o.ObjectData.Clone()
	return o
}

func (c BillingCycle) Validate() error {
	if _, err := GetCycleStrategy(c); err != nil {
		return err
	}
	return nil
}

func (s Subscription) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptyName
	}
	if s.Price < 0 {
		return ErrInvalidAmount
	}
	return s.BillingCycle.Validate()
}

// SubscriptionFromObject decodes a stored subscription. Missing currency
// defaults to CNY and a missing user count to 1.
func SubscriptionFromObject(o StoredObject) (Subscription, error) {
	d := o.ObjectData
	sub := Subscription{
		ID:           o.ObjectID,
		Name:         d.String("productName"),
		Plan:         d.String("plan"),
		Currency:     d.String("currency"),
		BillingCycle: BillingCycle(d.String("billingCycle")),
	}
	if sub.Name == "" {
		sub.Name = d.String("name")
	}
	price, ok := d.Float("price")
	if !ok {
		return Subscription{}, fmt.Errorf("subscription %s: %w: price", o.ObjectID, ErrInvalidData)
	}
	sub.Price = price
	if sub.Currency == "" {
		sub.Currency = DefaultCurrency
	}
	sub.Users = 1
	if users, ok := d.Float("users"); ok && users > 0 && !math.IsInf(users, 1) {
		sub.Users = users
	}
	if err := sub.BillingCycle.Validate(); err != nil {
		return Subscription{}, fmt.Errorf("subscription %s: %w", o.ObjectID, err)
	}
	if v := d.String("startDate"); v != "" {
		if t, err := time.Parse(time.DateOnly, v); err == nil {
			sub.StartDate = t
		}
	}
	if v := d.String("endDate"); v != "" {
		if t, err := time.Parse(time.DateOnly, v); err == nil {
			sub.EndDate = t
		}
	}
	return sub, nil
}

func (p Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if p.MonthlyPrice < 0 || p.YearlyPrice < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (p Product) ToData() Data {
	return Data{
		"name":         p.Name,
		"monthlyPrice": p.MonthlyPrice,
		"yearlyPrice":  p.YearlyPrice,
		"currency":     p.Currency,
		"description":  p.Description,
		"status":       p.Status,
	}
}

func ProductFromData(d Data) Product {
	p := Product{
		Name:        d.String("name"),
		Currency:    d.String("currency"),
		Description: d.String("description"),
		Status:      d.String("status"),
	}
	p.MonthlyPrice, _ = d.Float("monthlyPrice")
	p.YearlyPrice, _ = d.Float("yearlyPrice")
	return p
}

func (u User) ToData() Data {
	return Data{
		"username": u.Username,
		"password": u.Password,
		"email":    u.Email,
		"company":  u.Company,
		"role":     u.Role,
	}
}
