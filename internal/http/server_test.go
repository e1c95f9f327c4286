package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"expensetool/internal/currency"
	"expensetool/internal/middleware/trace"
	"expensetool/internal/pipeline"
	"expensetool/internal/services"
	"expensetool/internal/storage"
	"expensetool/internal/tools"
)

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	conv := currency.New(currency.RateSourceFunc(func(_ context.Context, base string) (map[string]float64, error) {
		if base == "INR" {
			return map[string]float64{"USD": 0.012}, nil
		}
		return nil, errors.New("unsupported base")
	}))
	p := pipeline.New(conv, pipeline.WithClock(func() time.Time {
		return time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	}))
	svc := services.NewExpenseService(storage.NewMemoryRepository(), p, nil, "default_user")
	srv, err := NewServer(":0", tools.New(svc, conv, tools.Options{}), cfg)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(srv *Server, method, path, body string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, Config{})
	for path, want := range map[string]string{"/healthz": "ok", "/readyz": "ready"} {
		rr := do(srv, http.MethodGet, path, "")
		if rr.Code != http.StatusOK || rr.Body.String() != want {
			t.Errorf("%s: status=%d body=%q", path, rr.Code, rr.Body.String())
		}
	}
}

func TestCallTool(t *testing.T) {
	srv := newTestServer(t, Config{})

	rr := do(srv, http.MethodPost, "/tools/add_expense",
		`{"amount": 800, "currency": "INR", "category": "groceries", "description": "Bought groceries", "payment_method": "gpay"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(rr.Body.String(), "Category: food > groceries") {
		t.Errorf("body:\n%s", rr.Body.String())
	}

	rr = do(srv, http.MethodPost, "/tools/get_expenses", "")
	if rr.Code != http.StatusOK || !strings.HasPrefix(rr.Body.String(), "Your Recent Expenses (1):") {
		t.Errorf("get: status=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestCallToolErrors(t *testing.T) {
	srv := newTestServer(t, Config{})

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"unknown tool", http.MethodPost, "/tools/transfer_money", `{}`, http.StatusNotFound},
		{"malformed json", http.MethodPost, "/tools/add_expense", `{"amount":`, http.StatusBadRequest},
		{"wrong type", http.MethodPost, "/tools/add_expense", `{"amount": "lots"}`, http.StatusBadRequest},
		{"wrong method", http.MethodGet, "/tools/add_expense", "", http.StatusMethodNotAllowed},
		{"oversized body", http.MethodPost, "/tools/add_expense", `{"description": "` + strings.Repeat("x", maxBodyBytes) + `"}`, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(srv, tt.method, tt.path, tt.body)
			if rr.Code != tt.status {
				t.Errorf("status=%d want %d body=%s", rr.Code, tt.status, rr.Body.String())
			}
		})
	}
}

func TestToolFailureIsStillOK(t *testing.T) {
	srv := newTestServer(t, Config{})
	rr := do(srv, http.MethodPost, "/tools/add_expense", `{"amount": -5, "description": "coffee"}`)
	if rr.Code != http.StatusOK || rr.Body.String() != "Failed to add expense: invalid amount" {
		t.Errorf("status=%d body=%q", rr.Code, rr.Body.String())
	}
}

func TestListTools(t *testing.T) {
	srv := newTestServer(t, Config{})
	rr := do(srv, http.MethodGet, "/tools", "")
	want := "add_expense\ndelete_expense\nget_expenses\nupdate_expense"
	if rr.Code != http.StatusOK || rr.Body.String() != want {
		t.Errorf("status=%d body=%q", rr.Code, rr.Body.String())
	}
}

func TestRequestIDAndHeaders(t *testing.T) {
	srv := newTestServer(t, Config{})

	rr := do(srv, http.MethodGet, "/healthz", "")
	if id := rr.Header().Get(trace.HeaderRequestID); !strings.HasPrefix(id, "req_") {
		t.Errorf("generated request id = %q", id)
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" || rr.Header().Get("Cache-Control") != "no-store" {
		t.Errorf("security headers missing: %v", rr.Header())
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(trace.HeaderRequestID, "client-abc-123")
	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if got := rr.Header().Get(trace.HeaderRequestID); got != "client-abc-123" {
		t.Errorf("inbound request id not echoed: %q", got)
	}
}

func TestRateLimit(t *testing.T) {
	srv := newTestServer(t, Config{RequestsPerMinute: 2})

	for i := 0; i < 2; i++ {
		if rr := do(srv, http.MethodPost, "/tools/get_expenses", ""); rr.Code != http.StatusOK {
			t.Fatalf("request %d: status=%d", i, rr.Code)
		}
	}
	rr := do(srv, http.MethodPost, "/tools/get_expenses", "")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status=%d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}

	if rr := do(srv, http.MethodGet, "/healthz", ""); rr.Code != http.StatusOK {
		t.Errorf("health should bypass the limiter, got %d", rr.Code)
	}
}

func TestNewServerRejectsBadProxyCIDR(t *testing.T) {
	if _, err := NewServer(":0", nil, Config{TrustedProxies: []string{"not-a-cidr"}}); err == nil {
		t.Fatal("expected error")
	}
}
