package currency

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPSourceRates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/latest/INR" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"base":"INR","rates":{"USD":0.012,"EUR":0.011}}`))
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL+"/latest/", time.Second)
	rates, err := src.Rates(context.Background(), "INR")
	if err != nil {
		t.Fatalf("Rates: %v", err)
	}
	if rates["USD"] != 0.012 {
		t.Fatalf("USD rate = %v", rates["USD"])
	}
}

func TestHTTPSourceErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"rates":`))
		}},
		{"empty table", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"base":"INR","rates":{}}`))
		}},
		{"timeout", func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			src := NewHTTPSource(srv.URL, 50*time.Millisecond)
			if _, err := src.Rates(context.Background(), "INR"); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestConverterFallsBackWhenHTTPSourceFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(NewHTTPSource(srv.URL, time.Second))
	amount, rate := c.ConvertToBase(context.Background(), 800, "INR")
	if rate != 0.012 || amount != 9.6 {
		t.Fatalf("ConvertToBase = (%v, %v), want (9.6, 0.012)", amount, rate)
	}
}
