package memory

import (
	"context"
	"errors"
	"sync"

	"expensetool/internal/core"
	ports "expensetool/internal/sheets"
)

var _ ports.Mirror = (*Store)(nil)

// Store is an in-process mirror that keeps rows in insertion order.
type Store struct {
	mu   sync.Mutex
	ids  []string
	rows map[string][]any
}

func New() *Store {
	return &Store{rows: make(map[string][]any)}
}

func (s *Store) Upsert(_ context.Context, e core.Expense) error {
	if e.ID == "" {
		return errors.New("expense has no id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[e.ID]; !ok {
		s.ids = append(s.ids, e.ID)
	}
	s.rows[e.ID] = ports.Row(e)
	return nil
}

func (s *Store) Remove(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return nil
	}
	delete(s.rows, id)
	for i, v := range s.ids {
		if v == id {
			s.ids = append(s.ids[:i], s.ids[i+1:]...)
			break
		}
	}
	return nil
}

// Rows returns a copy of the mirrored rows in sheet order.
func (s *Store) Rows() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]any, 0, len(s.ids))
	for _, id := range s.ids {
		out = append(out, append([]any(nil), s.rows[id]...))
	}
	return out
}
