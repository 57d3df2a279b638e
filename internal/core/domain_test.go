package core

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestDataNormalize(t *testing.T) {
	in := Data{"name": "X", "price": 20, "users": int64(2), "ratio": float32(0.5), "active": true, "note": nil}
	got, err := in.Normalize()
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	want := Data{"name": "X", "price": 20.0, "users": 2.0, "ratio": 0.5, "active": true, "note": nil}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("field %s = %#v, want %#v", k, got[k], v)
		}
	}
	if _, ok := in["price"].(int); !ok {
		t.Fatalf("Normalize must not mutate its receiver")
	}
}

func TestDataNormalizeRejectsNested(t *testing.T) {
	bads := []Data{
		{"tags": []string{"a"}},
		{"meta": map[string]any{"a": 1}},
		{"": "blank key"},
		{"ch": make(chan int)},
	}
	for i, d := range bads {
		if _, err := d.Normalize(); !errors.Is(err, ErrInvalidData) {
			t.Fatalf("case %d: expected ErrInvalidData, got %v", i, err)
		}
	}
}

func TestDataMerge(t *testing.T) {
	base := Data{"a": 1.0, "b": 2.0}
	got := base.Merge(Data{"b": 3.0, "c": 4.0})
	if got["a"] != 1.0 || got["b"] != 3.0 || got["c"] != 4.0 || len(got) != 3 {
		t.Fatalf("unexpected merge result: %v", got)
	}
	if base["b"] != 2.0 {
		t.Fatalf("Merge must not mutate its receiver")
	}
}

func TestSubscriptionFromObject(t *testing.T) {
	obj := StoredObject{
		ObjectID: "id_1",
		ObjectData: Data{
			"productName":  "ChatGPT Plus",
			"price":        20.0,
			"billingCycle": "月付",
			"startDate":    "2025-01-15",
			"endDate":      "2025-02-15",
		},
	}
	sub, err := SubscriptionFromObject(obj)
	if err != nil {
		t.Fatalf("SubscriptionFromObject: %v", err)
	}
	if sub.Currency != "CNY" {
		t.Errorf("Currency = %q, want CNY default", sub.Currency)
	}
	if sub.Users != 1 {
		t.Errorf("Users = %v, want 1 default", sub.Users)
	}
	if sub.Name != "ChatGPT Plus" || sub.Price != 20 {
		t.Errorf("unexpected subscription: %+v", sub)
	}
	if !sub.EndDate.Equal(time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("EndDate = %v", sub.EndDate)
	}

	obj.ObjectData["price"] = "20,5"
	sub, err = SubscriptionFromObject(obj)
	if err != nil || sub.Price != 20.5 {
		t.Fatalf("string price: sub=%+v err=%v", sub, err)
	}

	obj.ObjectData["price"] = "1,234"
	sub, err = SubscriptionFromObject(obj)
	if err != nil || sub.Price != 1234 {
		t.Fatalf("grouped string price: sub=%+v err=%v", sub, err)
	}

	tests := []struct {
		users any
		want  float64
	}{
		{2, 2},
		{2.5, 2.5},
		{"1,5", 1.5},
		{0.0, 1},
		{-3, 1},
		{math.Inf(1), 1},
		{math.NaN(), 1},
		{"many", 1},
	}
	for _, tt := range tests {
		obj.ObjectData["users"] = tt.users
		sub, err := SubscriptionFromObject(obj)
		if err != nil || sub.Users != tt.want {
			t.Errorf("users %v: Users = %v, err = %v; want %v", tt.users, sub.Users, err, tt.want)
		}
	}
	delete(obj.ObjectData, "users")

	obj.ObjectData["billingCycle"] = "weekly"
	if _, err := SubscriptionFromObject(obj); !errors.Is(err, ErrUnknownBillingCycle) {
		t.Fatalf("expected ErrUnknownBillingCycle, got %v", err)
	}

	delete(obj.ObjectData, "price")
	obj.ObjectData["billingCycle"] = "年付"
	if _, err := SubscriptionFromObject(obj); !errors.Is(err, ErrInvalidData) {
		t.Fatalf("expected ErrInvalidData for missing price, got %v", err)
	}
}

func TestProductDataRoundTrip(t *testing.T) {
	p := Product{Name: "Kimi", MonthlyPrice: 79, YearlyPrice: 790, Currency: "CNY", Description: "d", Status: "active"}
	if got := ProductFromData(p.ToData()); got != p {
		t.Fatalf("got %+v, want %+v", got, p)
	}
	if err := (Product{}).Validate(); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
}
