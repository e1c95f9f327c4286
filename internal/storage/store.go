package storage

import (
	"context"
	"errors"

	"expensetool/internal/core"
)

var ErrNotFound = errors.New("expense not found")

// Query selects a user's expenses. Empty fields do not filter. Results are
// ordered newest date first, then newest insert first.
type Query struct {
	UserID              string
	Category            string // exact match
	DescriptionContains string // case-insensitive substring
	Limit               int    // <= 0 means no limit
}

// Store persists normalized expenses. Every call is scoped to the owning
// user; a record of another user behaves as absent.
type Store interface {
	// Insert assigns ID, CreatedAt and UpdatedAt and returns the stored record.
	Insert(ctx context.Context, e core.Expense) (core.Expense, error)
	Find(ctx context.Context, q Query) ([]core.Expense, error)
	// Delete returns ErrNotFound when no record matched.
	Delete(ctx context.Context, userID, id string) error
	// Update writes the non-nil fields of p and returns the updated record.
	Update(ctx context.Context, userID, id string, p core.Patch) (core.Expense, error)
	Close() error
}
