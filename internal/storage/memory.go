package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"expensetool/internal/core"
)

// MemoryRepository keeps expenses in process memory. It is the default
// backend and the one tests run against.
type MemoryRepository struct {
	mu    sync.Mutex
	items []core.Expense
	now   func() time.Time
}

var _ Store = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{now: time.Now}
}

func (r *MemoryRepository) Insert(_ context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	e.ID = uuid.NewString()
	e.CreatedAt, e.UpdatedAt = now, now
	e.Tags = append([]string(nil), e.Tags...)
	r.items = append(r.items, e)
	return e, nil
}

func (r *MemoryRepository) Find(_ context.Context, q Query) ([]core.Expense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	needle := strings.ToLower(q.DescriptionContains)
	var out []core.Expense
	for _, e := range r.items {
		if e.UserID != q.UserID {
			continue
		}
		if q.Category != "" && e.Category != q.Category {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(e.Description), needle) {
			continue
		}
		out = append(out, e)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (r *MemoryRepository) Delete(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, e := range r.items {
		if e.ID == id && e.UserID == userID {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (r *MemoryRepository) Update(_ context.Context, userID, id string, p core.Patch) (core.Expense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, e := range r.items {
		if e.ID != id || e.UserID != userID {
			continue
		}
		updated := p.ApplyTo(e)
		if err := updated.Validate(); err != nil {
			return core.Expense{}, err
		}
		updated.UpdatedAt = r.now().UTC()
		r.items[i] = updated
		return updated, nil
	}
	return core.Expense{}, ErrNotFound
}

func (r *MemoryRepository) Close() error { return nil }
