package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/avast/retry-go"
	"google.golang.org/api/googleapi"

	"expensetool/internal/amqp"
	"expensetool/internal/core"
	applog "expensetool/internal/log"
	"expensetool/internal/sheets"
	"expensetool/internal/storage"
)

const (
	DefaultAttempts   = 3
	DefaultRetryDelay = 10 * time.Second
)

// ExpenseFinder is the read side of storage.Store used by Backfill.
type ExpenseFinder interface {
	Find(ctx context.Context, q storage.Query) ([]core.Expense, error)
}

// MirrorWorker applies expense events to a spreadsheet mirror.
type MirrorWorker struct {
	mirror   sheets.Mirror
	attempts uint
	delay    time.Duration
	logger   *applog.Logger
}

type Option func(*MirrorWorker)

// WithRetry sets how often a rate-limited mirror call is tried and the
// base delay between tries.
func WithRetry(attempts uint, delay time.Duration) Option {
	return func(w *MirrorWorker) {
		w.attempts = attempts
		w.delay = delay
	}
}

func NewMirrorWorker(m sheets.Mirror, opts ...Option) *MirrorWorker {
	w := &MirrorWorker{
		mirror:   m,
		attempts: DefaultAttempts,
		delay:    DefaultRetryDelay,
		logger:   applog.Default(applog.ComponentWorker),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.attempts == 0 {
		w.attempts = 1
	}
	return w
}

// Handle mirrors one event. A returned error makes the consumer requeue it.
func (w *MirrorWorker) Handle(ctx context.Context, ev *amqp.ExpenseEvent) error {
	w.logger.InfoContext(ctx, "Processing expense event",
		applog.FieldEventType, ev.Type,
		applog.FieldExpenseID, ev.ExpenseID,
		applog.FieldUserID, ev.UserID)

	var err error
	switch ev.Type {
	case amqp.ExpenseCreated, amqp.ExpenseUpdated:
		if ev.Expense == nil {
			return fmt.Errorf("%s event without expense", ev.Type)
		}
		e := *ev.Expense
		err = w.withRetry(ctx, func() error { return w.mirror.Upsert(ctx, e) })
	case amqp.ExpenseDeleted:
		err = w.withRetry(ctx, func() error { return w.mirror.Remove(ctx, ev.ExpenseID) })
	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to mirror expense event",
			applog.FieldEventType, ev.Type,
			applog.FieldExpenseID, ev.ExpenseID,
			applog.FieldError, err,
			applog.FieldOperation, applog.OpMirror)
		return fmt.Errorf("mirror %s %s: %w", ev.Type, ev.ExpenseID, err)
	}
	return nil
}

// Backfill upserts every stored expense of userID so a fresh or stale
// mirror catches up with events it missed. It returns how many rows were
// written before the first error.
func (w *MirrorWorker) Backfill(ctx context.Context, finder ExpenseFinder, userID string) (int, error) {
	expenses, err := finder.Find(ctx, storage.Query{UserID: userID})
	if err != nil {
		return 0, fmt.Errorf("list expenses for backfill: %w", err)
	}
	// oldest first, so appended rows follow chronological order
	for i := len(expenses) - 1; i >= 0; i-- {
		e := expenses[i]
		if err := w.withRetry(ctx, func() error { return w.mirror.Upsert(ctx, e) }); err != nil {
			return len(expenses) - 1 - i, fmt.Errorf("backfill %s: %w", e.ID, err)
		}
	}
	w.logger.InfoContext(ctx, "Mirror backfill completed", "count", len(expenses), applog.FieldUserID, userID)
	return len(expenses), nil
}

func (w *MirrorWorker) withRetry(ctx context.Context, fn func() error) error {
	return retry.Do(
		fn,
		retry.Context(ctx),
		retry.RetryIf(func(err error) bool {
			if isRateLimited(err) {
				w.logger.WarnContext(ctx, "Sheets rate limited, will retry", applog.FieldError, err)
				return true
			}
			return false
		}),
		retry.Attempts(w.attempts),
		retry.Delay(w.delay),
		retry.LastErrorOnly(true),
	)
}

func isRateLimited(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests
}
