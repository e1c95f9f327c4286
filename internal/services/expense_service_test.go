package services

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"expensetool/internal/amqp"
	"expensetool/internal/core"
	"expensetool/internal/pipeline"
	"expensetool/internal/storage"
)

type stubConverter struct{}

func (stubConverter) Base() string { return "USD" }

func (stubConverter) ConvertToBase(_ context.Context, amount float64, from string) (float64, float64) {
	if from == "INR" {
		return core.MulRound2(amount, 0.012), 0.012
	}
	return amount, 1.0
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.ExpenseEvent
	err    error
}

func (p *recordingPublisher) PublishEvent(_ context.Context, e *amqp.ExpenseEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) types() []amqp.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]amqp.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

var testNow = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

func newTestService(pub EventPublisher) (*ExpenseService, *storage.MemoryRepository) {
	store := storage.NewMemoryRepository()
	p := pipeline.New(stubConverter{}, pipeline.WithClock(func() time.Time { return testNow }))
	return NewExpenseService(store, p, pub, "default_user"), store
}

func mustAdd(t *testing.T, s *ExpenseService, desc string, amount float64) core.Expense {
	t.Helper()
	e, _, err := s.Add(context.Background(), core.Draft{Amount: amount, Currency: "INR", Description: desc, PaymentMethod: "gpay"})
	if err != nil {
		t.Fatalf("Add(%q): %v", desc, err)
	}
	return e
}

func TestAddNormalizesAndPublishes(t *testing.T) {
	pub := &recordingPublisher{}
	s, _ := newTestService(pub)

	e, notes, err := s.Add(context.Background(), core.Draft{
		Amount:        800,
		Currency:      "INR",
		Category:      "groceries",
		Description:   "Bought groceries",
		PaymentMethod: "gpay",
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if e.ID == "" || e.UserID != "default_user" {
		t.Errorf("unexpected identity %q / %q", e.ID, e.UserID)
	}
	if e.Category != "food" || e.Subcategory != "groceries" || e.PaymentMethod != "upi" || e.PaymentSubcategory != "gpay" {
		t.Errorf("unexpected normalization %+v", e)
	}
	if e.Amount != 9.6 {
		t.Errorf("amount = %v, want 9.6", e.Amount)
	}
	if len(notes) != 1 {
		t.Errorf("notes = %v", notes)
	}
	if got := pub.types(); len(got) != 1 || got[0] != amqp.ExpenseCreated {
		t.Errorf("events = %v", got)
	}
}

func TestAddRejectsInvalidDraft(t *testing.T) {
	s, store := newTestService(nil)
	if _, _, err := s.Add(context.Background(), core.Draft{Amount: 0, Description: "x"}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("Add error = %v", err)
	}
	if got, _ := store.Find(context.Background(), storage.Query{UserID: "default_user"}); len(got) != 0 {
		t.Errorf("rejected draft was stored: %+v", got)
	}
}

func TestListClampsLimit(t *testing.T) {
	s, _ := newTestService(nil)
	for i := 0; i < 55; i++ {
		mustAdd(t, s, "coffee", 10)
	}

	tests := []struct {
		limit int
		want  int
	}{
		{-3, 1},
		{0, 1},
		{5, 5},
		{50, 50},
		{100, 50},
	}
	for _, tt := range tests {
		got, err := s.List(context.Background(), "", tt.limit)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(got) != tt.want {
			t.Errorf("List(limit=%d) returned %d, want %d", tt.limit, len(got), tt.want)
		}
	}
}

func TestListFiltersCategory(t *testing.T) {
	s, _ := newTestService(nil)
	mustAdd(t, s, "coffee", 10)
	mustAdd(t, s, "uber ride", 10)

	got, err := s.List(context.Background(), " Transport ", 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].Description != "uber ride" {
		t.Errorf("List returned %+v", got)
	}
}

func TestDeleteRequiresUniqueMatch(t *testing.T) {
	pub := &recordingPublisher{}
	s, store := newTestService(pub)
	ctx := context.Background()

	mustAdd(t, s, "Morning coffee", 120)
	second := mustAdd(t, s, "Coffee beans", 450)

	res, err := s.Delete(ctx, "COFFEE")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if res.Kind() != MatchMany || len(res.Candidates) != 2 || res.Deleted.ID != "" {
		t.Fatalf("ambiguous delete result %+v", res)
	}
	if got, _ := store.Find(ctx, storage.Query{UserID: "default_user"}); len(got) != 2 {
		t.Fatalf("ambiguous delete removed records: %d left", len(got))
	}

	if err := store.Delete(ctx, "default_user", second.ID); err != nil {
		t.Fatalf("remove second: %v", err)
	}

	res, err = s.Delete(ctx, "coffee")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if res.Kind() != MatchOne || res.Deleted.Description != "Morning coffee" {
		t.Fatalf("unique delete result %+v", res)
	}
	if got, _ := store.Find(ctx, storage.Query{UserID: "default_user"}); len(got) != 0 {
		t.Errorf("expected no records left, got %d", len(got))
	}

	res, err = s.Delete(ctx, "coffee")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if res.Kind() != MatchNone {
		t.Errorf("expected no match, got %+v", res)
	}

	want := []amqp.EventType{amqp.ExpenseCreated, amqp.ExpenseCreated, amqp.ExpenseDeleted}
	if got := pub.types(); len(got) != len(want) || got[2] != amqp.ExpenseDeleted {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestMatchCapsCandidates(t *testing.T) {
	s, _ := newTestService(nil)
	for i := 0; i < MaxMatches+3; i++ {
		mustAdd(t, s, "coffee", 10)
	}
	m, err := s.Match(context.Background(), "coffee")
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(m.Candidates) != MaxMatches {
		t.Errorf("candidates = %d, want %d", len(m.Candidates), MaxMatches)
	}
	if _, err := s.Match(context.Background(), "  "); !errors.Is(err, core.ErrEmptyDescription) {
		t.Errorf("blank needle error = %v", err)
	}
}

func TestUpdate(t *testing.T) {
	ptr := func(s string) *string { return &s }

	t.Run("no fields", func(t *testing.T) {
		s, _ := newTestService(nil)
		if _, err := s.Update(context.Background(), "coffee", core.Changes{}); !errors.Is(err, ErrNoChanges) {
			t.Fatalf("Update error = %v, want ErrNoChanges", err)
		}
	})

	t.Run("unique match is updated", func(t *testing.T) {
		pub := &recordingPublisher{}
		s, _ := newTestService(pub)
		mustAdd(t, s, "uber ride home", 300)

		res, err := s.Update(context.Background(), "uber", core.Changes{Category: ptr("transport"), PaymentMethod: ptr("amex")})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if res.Kind() != MatchOne || res.After.Category != "transport" || res.After.Subcategory != "taxi" {
			t.Fatalf("unexpected result %+v", res.After)
		}
		if res.After.PaymentMethod != "credit_card" || res.After.PaymentSubcategory != "amex" {
			t.Errorf("payment = %s (%s)", res.After.PaymentMethod, res.After.PaymentSubcategory)
		}
		if len(res.Changes) == 0 {
			t.Error("expected visible changes")
		}
		if got := pub.types(); got[len(got)-1] != amqp.ExpenseUpdated {
			t.Errorf("events = %v", got)
		}
	})

	t.Run("no diff publishes nothing", func(t *testing.T) {
		pub := &recordingPublisher{}
		s, _ := newTestService(pub)
		mustAdd(t, s, "coffee", 120)

		res, err := s.Update(context.Background(), "coffee", core.Changes{Description: ptr("coffee")})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if len(res.Changes) != 0 || res.After.ID != res.Before.ID {
			t.Errorf("unexpected result %+v", res)
		}
		if got := pub.types(); len(got) != 1 {
			t.Errorf("events = %v", got)
		}
	})

	t.Run("ambiguous match is not updated", func(t *testing.T) {
		s, _ := newTestService(nil)
		mustAdd(t, s, "coffee", 120)
		mustAdd(t, s, "coffee beans", 450)

		res, err := s.Update(context.Background(), "coffee", core.Changes{Category: ptr("shopping")})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if res.Kind() != MatchMany || res.After.ID != "" {
			t.Errorf("unexpected result %+v", res)
		}
	})
}

func TestPublishFailureDoesNotFailAdd(t *testing.T) {
	s, _ := newTestService(&recordingPublisher{err: errors.New("broker down")})
	if _, _, err := s.Add(context.Background(), core.Draft{Amount: 5, Description: "coffee"}); err != nil {
		t.Fatalf("Add must succeed when publishing fails: %v", err)
	}
}

func TestSuggest(t *testing.T) {
	s, _ := newTestService(nil)
	mustAdd(t, s, "Coffee", 120)
	mustAdd(t, s, "Electricity bill", 2000)

	tests := []struct {
		needle string
		want   string
		ok     bool
	}{
		{"cofee", "Coffee", true},
		{"electricty bill", "Electricity bill", true},
		{"rent", "", false},
		{"ab", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.needle, func(t *testing.T) {
			got, ok := s.Suggest(context.Background(), tt.needle)
			if got != tt.want || ok != tt.ok {
				t.Errorf("Suggest(%q) = %q, %v; want %q, %v", tt.needle, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestClose(t *testing.T) {
	s, _ := newTestService(nil)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

// vanishingStore reports every delete as a missing row.
type vanishingStore struct {
	*storage.MemoryRepository
}

func (vanishingStore) Delete(context.Context, string, string) error {
	return storage.ErrNotFound
}

func TestDeleteStoreErrorLoggedAsNotFound(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	store := vanishingStore{storage.NewMemoryRepository()}
	p := pipeline.New(stubConverter{}, pipeline.WithClock(func() time.Time { return testNow }))
	s := NewExpenseService(store, p, nil, "default_user")
	mustAdd(t, s, "ghost lunch", 100)

	_, err := s.Delete(context.Background(), "ghost")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Delete error = %v, want ErrNotFound", err)
	}
	out := buf.String()
	for _, want := range []string{"error_type=not_found_error", "operation=delete", "component=storage"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}
