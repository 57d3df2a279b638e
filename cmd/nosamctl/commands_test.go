package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DATA_BACKEND", "sqlite")
	t.Setenv("SQLITE_DB_PATH", filepath.Join(dir, "nosam.db"))
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("AMQP_URL", "")
	t.Setenv("RATES_SOURCE_URL", "")
	noColor = true
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--no-color"}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestConvertCommand(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "convert", "100", "usd", "CNY")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if want := "$100 USD = ¥725 CNY"; strings.TrimSpace(out) != want {
		t.Errorf("output = %q, want %q", out, want)
	}

	if _, err := run(t, "convert", "-5", "USD", "CNY"); err == nil {
		t.Error("negative amount accepted")
	}
	if _, err := run(t, "convert", "1", "USD", "XXX"); err == nil {
		t.Error("unknown currency accepted")
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	dir := setupEnv(t)
	backup := filepath.Join(dir, "backup.json")

	doc := `{"subscriptions":[{"objectId":"a1","objectData":{"productName":"Kimi","price":79,"currency":"CNY","billingCycle":"月付"}}]}`
	in := filepath.Join(dir, "in.json")
	if err := os.WriteFile(in, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, "import", in); err != nil {
		t.Fatalf("import: %v", err)
	}
	if _, err := run(t, "export", "--out", backup); err != nil {
		t.Fatalf("export: %v", err)
	}

	raw, err := os.ReadFile(backup)
	if err != nil {
		t.Fatal(err)
	}
	var snap map[string][]map[string]any
	if err := json.Unmarshal(raw, &snap); err != nil {
		t.Fatalf("export is not JSON: %v", err)
	}
	if got := len(snap["subscriptions"]); got != 1 {
		t.Fatalf("exported %d subscriptions, want 1", got)
	}
	if id := snap["subscriptions"][0]["objectId"]; id != "a1" {
		t.Errorf("objectId = %v, want a1", id)
	}
	if got := len(snap["users"]); got != 2 {
		t.Errorf("exported %d users, want the 2 seeded users", got)
	}
}

func TestExportImportOneType(t *testing.T) {
	dir := setupEnv(t)

	in := filepath.Join(dir, "subs.json")
	doc := `[{"objectId":"s1","objectData":{"productName":"Kimi","price":79,"currency":"CNY","billingCycle":"月付"}}]`
	if err := os.WriteFile(in, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, "import", "--type", "subscription", in); err != nil {
		t.Fatalf("import --type: %v", err)
	}

	out, err := run(t, "export", "--type", "subscription")
	if err != nil {
		t.Fatalf("export --type: %v", err)
	}
	var subs []map[string]any
	if err := json.Unmarshal([]byte(out), &subs); err != nil {
		t.Fatalf("export --type is not a JSON array: %v\n%s", err, out)
	}
	if len(subs) != 1 || subs[0]["objectId"] != "s1" {
		t.Errorf("exported %v", subs)
	}

	// A whole-store document is not a collection.
	whole := filepath.Join(dir, "whole.json")
	if err := os.WriteFile(whole, []byte(`{"subscriptions":[]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, "import", "-t", "subscription", whole); err == nil {
		t.Error("object document accepted as a collection")
	}
}

func TestStatsCommand(t *testing.T) {
	dir := setupEnv(t)
	doc := `{"subscriptions":[
		{"objectId":"a","objectData":{"productName":"ChatGPT Plus","price":20,"currency":"USD","billingCycle":"月付"}},
		{"objectId":"b","objectData":{"productName":"Claude Pro","price":200,"currency":"USD","billingCycle":"年付"}}
	]}`
	in := filepath.Join(dir, "in.json")
	if err := os.WriteFile(in, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, "import", in); err != nil {
		t.Fatalf("import: %v", err)
	}

	out, err := run(t, "stats", "--currency", "usd", "--json")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	var dash struct {
		Stats struct {
			Total        int     `json:"total"`
			MonthlyTotal float64 `json:"monthlyTotal"`
			Currency     string  `json:"currency"`
		} `json:"stats"`
	}
	if err := json.Unmarshal([]byte(out), &dash); err != nil {
		t.Fatalf("stats output is not JSON: %v\n%s", err, out)
	}
	if dash.Stats.Total != 2 || dash.Stats.MonthlyTotal != 37 || dash.Stats.Currency != "USD" {
		t.Errorf("stats = %+v", dash.Stats)
	}

	out, err = run(t, "stats", "--currency", "USD")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !strings.Contains(out, "Subscriptions: 2") {
		t.Errorf("summary output missing count:\n%s", out)
	}
}

func TestClearRequiresConfirmation(t *testing.T) {
	setupEnv(t)

	if _, err := run(t, "clear", "user"); err == nil {
		t.Fatal("clear without --yes succeeded")
	}
	if _, err := run(t, "clear", "user", "--yes"); err != nil {
		t.Fatalf("clear --yes: %v", err)
	}
}

func TestSeedProductsIsIdempotent(t *testing.T) {
	setupEnv(t)

	for range 2 {
		if _, err := run(t, "seed-products"); err != nil {
			t.Fatalf("seed-products: %v", err)
		}
	}
}

func TestRenewalsEmpty(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "renewals")
	if err != nil {
		t.Fatalf("renewals: %v", err)
	}
	if strings.TrimSpace(out) != "No renewals due" {
		t.Errorf("output = %q", out)
	}
}

func TestWatchWithoutBroker(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "watch")
	if err == nil || !strings.Contains(err.Error(), "AMQP_URL") {
		t.Errorf("watch error = %v, want AMQP_URL hint", err)
	}
}
