package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"expensetool/internal/amqp"
	"expensetool/internal/core"
	applog "expensetool/internal/log"
	"expensetool/internal/pipeline"
	"expensetool/internal/storage"
)

const (
	DefaultListLimit = 10
	MaxListLimit     = 50
	// MaxMatches bounds the candidates returned by a description search.
	MaxMatches = 10
)

var ErrNoChanges = errors.New("no update fields provided")

// EventPublisher is implemented by *amqp.Client.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event *amqp.ExpenseEvent) error
}

type MatchKind int

const (
	MatchNone MatchKind = iota
	MatchOne
	MatchMany
)

// MatchResult holds the expenses whose description contains Needle.
type MatchResult struct {
	Needle     string
	Candidates []core.Expense
}

func (m MatchResult) Kind() MatchKind {
	switch len(m.Candidates) {
	case 0:
		return MatchNone
	case 1:
		return MatchOne
	}
	return MatchMany
}

// DeleteResult reports the match and, on a unique match, the removed record.
type DeleteResult struct {
	MatchResult
	Deleted core.Expense
}

// UpdateResult reports the match and, on a unique match, the record before
// and after. Changes is empty when nothing differed.
type UpdateResult struct {
	MatchResult
	Before  core.Expense
	After   core.Expense
	Changes []pipeline.Change
}

// ExpenseService runs the normalization pipeline in front of a store and
// announces persisted changes.
type ExpenseService struct {
	store     storage.Store
	pipeline  *pipeline.Pipeline
	publisher EventPublisher
	userID    string
	logger    *applog.Logger
	events    *applog.StructuredLogger
}

// NewExpenseService scopes every operation to userID. publisher may be nil.
func NewExpenseService(store storage.Store, p *pipeline.Pipeline, publisher EventPublisher, userID string) *ExpenseService {
	logger := applog.Default(applog.ComponentExpense)
	return &ExpenseService{
		store:     store,
		pipeline:  p,
		publisher: publisher,
		userID:    userID,
		logger:    logger,
		events:    applog.NewStructuredLogger(logger),
	}
}

// Add normalizes d and stores it. Notes list the corrections applied.
func (s *ExpenseService) Add(ctx context.Context, d core.Draft) (core.Expense, pipeline.Notes, error) {
	if strings.TrimSpace(d.UserID) == "" {
		d.UserID = s.userID
	}
	e, notes, err := s.pipeline.Build(ctx, d)
	if err != nil {
		return core.Expense{}, nil, err
	}

	saved, err := s.store.Insert(ctx, e)
	if err != nil {
		s.events.LogError(ctx, "Failed to save expense", err, applog.ComponentStorage, applog.OpCreate, applog.ErrorTypeDatabase, nil)
		return core.Expense{}, nil, fmt.Errorf("save expense: %w", err)
	}
	s.logExpense(ctx, applog.OpCreate, saved)

	s.publish(ctx, amqp.NewExpenseEvent(amqp.ExpenseCreated, saved.ID, saved.UserID, &saved))
	return saved, notes, nil
}

// List returns the newest expenses, optionally in one category. limit is
// clamped to [1, MaxListLimit].
func (s *ExpenseService) List(ctx context.Context, category string, limit int) ([]core.Expense, error) {
	if limit < 1 {
		limit = 1
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	category = strings.ToLower(strings.TrimSpace(category))

	expenses, err := s.store.Find(ctx, storage.Query{UserID: s.userID, Category: category, Limit: limit})
	if err != nil {
		s.events.LogError(ctx, "Failed to list expenses", err, applog.ComponentStorage, applog.OpList, applog.ErrorTypeDatabase, nil)
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	s.logger.DebugContext(ctx, "Expenses listed",
		applog.FieldOperation, applog.OpList,
		applog.FieldCategory, category,
		"count", len(expenses))
	return expenses, nil
}

// Match finds up to MaxMatches expenses whose description contains needle,
// ignoring case.
func (s *ExpenseService) Match(ctx context.Context, needle string) (MatchResult, error) {
	needle = strings.TrimSpace(needle)
	if needle == "" {
		return MatchResult{}, core.ErrEmptyDescription
	}
	found, err := s.store.Find(ctx, storage.Query{
		UserID:              s.userID,
		DescriptionContains: needle,
		Limit:               MaxMatches,
	})
	if err != nil {
		return MatchResult{}, fmt.Errorf("search expenses: %w", err)
	}
	s.logger.DebugContext(ctx, "Expense search", applog.FieldOperation, applog.OpMatch, "needle", needle, "matches", len(found))
	return MatchResult{Needle: needle, Candidates: found}, nil
}

// Delete removes the expense matching needle when exactly one does.
func (s *ExpenseService) Delete(ctx context.Context, needle string) (DeleteResult, error) {
	m, err := s.Match(ctx, needle)
	if err != nil {
		return DeleteResult{}, err
	}
	res := DeleteResult{MatchResult: m}
	if m.Kind() != MatchOne {
		return res, nil
	}

	target := m.Candidates[0]
	if err := s.store.Delete(ctx, target.UserID, target.ID); err != nil {
		s.logStoreError(ctx, "Failed to delete expense", err, applog.OpDelete, target.ID)
		return DeleteResult{}, fmt.Errorf("delete expense: %w", err)
	}
	res.Deleted = target
	s.logExpense(ctx, applog.OpDelete, target)

	s.publish(ctx, amqp.NewExpenseEvent(amqp.ExpenseDeleted, target.ID, target.UserID, nil))
	return res, nil
}

// Update applies ch to the expense matching needle when exactly one does.
func (s *ExpenseService) Update(ctx context.Context, needle string, ch core.Changes) (UpdateResult, error) {
	if ch.Empty() {
		return UpdateResult{}, ErrNoChanges
	}
	m, err := s.Match(ctx, needle)
	if err != nil {
		return UpdateResult{}, err
	}
	res := UpdateResult{MatchResult: m}
	if m.Kind() != MatchOne {
		return res, nil
	}

	existing := m.Candidates[0]
	res.Before, res.After = existing, existing

	patch, changes, err := s.pipeline.Apply(ctx, existing, ch)
	if err != nil {
		return UpdateResult{}, err
	}
	if patch.Empty() {
		return res, nil
	}

	updated, err := s.store.Update(ctx, existing.UserID, existing.ID, patch)
	if err != nil {
		s.logStoreError(ctx, "Failed to update expense", err, applog.OpUpdate, existing.ID)
		return UpdateResult{}, fmt.Errorf("update expense: %w", err)
	}
	res.After, res.Changes = updated, changes
	s.logExpense(ctx, applog.OpUpdate, updated)

	s.publish(ctx, amqp.NewExpenseEvent(amqp.ExpenseUpdated, updated.ID, updated.UserID, &updated))
	return res, nil
}

// Suggest returns the stored description closest to needle when it is
// within a third of the needle's length in edit distance.
func (s *ExpenseService) Suggest(ctx context.Context, needle string) (string, bool) {
	needle = strings.ToLower(strings.TrimSpace(needle))
	maxDist := utf8.RuneCountInString(needle) / 3
	if maxDist == 0 {
		return "", false
	}

	all, err := s.store.Find(ctx, storage.Query{UserID: s.userID})
	if err != nil {
		s.logger.WarnContext(ctx, "Suggestion lookup failed", applog.FieldError, err)
		return "", false
	}

	best, bestDist := "", maxDist+1
	for _, e := range all {
		d := levenshtein.ComputeDistance(needle, strings.ToLower(e.Description))
		if d < bestDist {
			best, bestDist = e.Description, d
		}
	}
	return best, best != ""
}

func (s *ExpenseService) publish(ctx context.Context, event *amqp.ExpenseEvent) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "Event publisher not configured, skipping event", applog.FieldEventType, event.Type)
		return
	}
	if err := s.publisher.PublishEvent(ctx, event); err != nil {
		fields := applog.NewFields()
		fields[applog.FieldExpenseID] = event.ExpenseID
		fields[applog.FieldEventType] = string(event.Type)
		s.events.LogError(ctx, "Failed to publish expense event", err, applog.ComponentAMQP, applog.OpPublish, applog.ErrorTypeNetwork, fields)
	}
}

// logStoreError classifies a store failure; a record that vanished between
// match and write is not found rather than a database error.
func (s *ExpenseService) logStoreError(ctx context.Context, msg string, err error, op, id string) {
	errType := applog.ErrorTypeDatabase
	if errors.Is(err, storage.ErrNotFound) {
		errType = applog.ErrorTypeNotFound
	}
	fields := applog.NewFields()
	fields[applog.FieldExpenseID] = id
	s.events.LogError(ctx, msg, err, applog.ComponentStorage, op, errType, fields)
}

func (s *ExpenseService) logExpense(ctx context.Context, op string, e core.Expense) {
	s.events.LogExpense(ctx, op, e.ID, e.UserID, e.Description, e.OriginalAmount, e.OriginalCurrency, e.Category, e.Subcategory, e.PaymentMethod)
}

// Close releases the store and, when it holds resources, the publisher.
func (s *ExpenseService) Close() error {
	var errs []error
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if c, ok := s.publisher.(io.Closer); ok && c != nil {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}
	return errors.Join(errs...)
}
