package backend

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"expensetool/internal/config"
	"expensetool/internal/tools"
)

func testConfig(t BackendType) Config {
	return Config{
		Type:          t,
		RateAPIURL:    "http://127.0.0.1:1/latest",
		RateTimeout:   100 * time.Millisecond,
		RateCacheTTL:  time.Hour,
		RateCacheSize: 16,
		BaseCurrency:  "USD",
		UserID:        "default_user",
		UserCurrency:  "USD",
	}
}

func TestCreateBackend(t *testing.T) {
	tests := []struct {
		name      string
		cfg       func(t *testing.T) Config
		wantStore string
	}{
		{"memory", func(*testing.T) Config { return testConfig(MemoryBackend) }, "*storage.MemoryRepository"},
		{"sqlite", func(t *testing.T) Config {
			c := testConfig(SQLiteBackend)
			c.SQLiteDBPath = filepath.Join(t.TempDir(), "expenses.db")
			return c
		}, "*storage.SQLiteRepository"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NewFactory(nil).CreateBackend(context.Background(), tt.cfg(t))
			if err != nil {
				t.Fatalf("CreateBackend: %v", err)
			}
			t.Cleanup(func() { _ = res.Cleanup() })

			if got := fmt.Sprintf("%T", res.Store); got != tt.wantStore {
				t.Errorf("store = %s, want %s", got, tt.wantStore)
			}

			// unreachable rate API: the converter falls back and the add still succeeds
			reply := res.Tools.AddExpense(context.Background(), tools.AddInput{Amount: 12, Currency: "EUR", Description: "Lunch"})
			if !strings.HasPrefix(reply, "Expense added successfully!") {
				t.Errorf("reply = %q", reply)
			}
		})
	}
}

func TestCreateBackendRejectsInvalidConfig(t *testing.T) {
	f := NewFactory(nil)
	cases := map[string]Config{
		"unknown type":    testConfig("sheets"),
		"sqlite no path":  testConfig(SQLiteBackend),
		"postgres no dsn": testConfig(PostgresBackend),
		"missing user id": func() Config { c := testConfig(MemoryBackend); c.UserID = ""; return c }(),
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := f.CreateBackend(context.Background(), cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}

	app := &config.Config{DataBackend: "postgres", PostgresDSN: "postgres://x", UserID: "u", UserCurrency: "INR", RateCacheSize: 8}
	cfg, err := FromAppConfig(app)
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if cfg.Type != PostgresBackend || cfg.PostgresDSN != "postgres://x" || cfg.UserCurrency != "INR" || cfg.RateCacheSize != 8 {
		t.Errorf("cfg = %+v", cfg)
	}

	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}
