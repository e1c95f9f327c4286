package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"expensetool/internal/core"

	_ "modernc.org/sqlite"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const expenseColumns = `id, user_id, amount, original_amount, original_currency, user_currency,
	exchange_rate, category, subcategory, description, payment_method, payment_subcategory,
	date, tags, is_recurring, recurring_frequency, created_at, updated_at`

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.Info("SQLite store ready", "path", dbPath, "schema_version", version)
	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	now := r.now().UTC()
	e.ID = uuid.NewString()
	e.CreatedAt, e.UpdatedAt = now, now
	e.Date = e.Date.UTC()

	tags, err := json.Marshal(nonNilTags(e.Tags))
	if err != nil {
		return core.Expense{}, fmt.Errorf("encode tags: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO expenses (`+expenseColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.Amount, e.OriginalAmount, e.OriginalCurrency, e.UserCurrency,
		e.ExchangeRate, e.Category, e.Subcategory, e.Description, e.PaymentMethod, e.PaymentSubcategory,
		e.Date.Format(timeLayout), string(tags), e.IsRecurring, string(e.RecurringFrequency),
		e.CreatedAt.Format(timeLayout), e.UpdatedAt.Format(timeLayout),
	)
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}

	slog.DebugContext(ctx, "Expense saved to SQLite", "id", e.ID, "user_id", e.UserID)
	return e, nil
}

func (r *SQLiteRepository) Find(ctx context.Context, q Query) ([]core.Expense, error) {
	var (
		where = []string{"user_id = ?"}
		args  = []any{q.UserID}
	)
	if q.Category != "" {
		where = append(where, "category = ?")
		args = append(args, q.Category)
	}
	if q.DescriptionContains != "" {
		where = append(where, "instr(lower(description), lower(?)) > 0")
		args = append(args, q.DescriptionContains)
	}

	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY date DESC, created_at DESC`
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanSQLiteExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, userID, id string, p core.Patch) (core.Expense, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Expense{}, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE id = ? AND user_id = ?`, id, userID)
	existing, err := scanSQLiteExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, ErrNotFound
	}
	if err != nil {
		return core.Expense{}, err
	}

	updated := p.ApplyTo(existing)
	if err := updated.Validate(); err != nil {
		return core.Expense{}, err
	}
	updated.UpdatedAt = r.now().UTC()
	updated.Date = updated.Date.UTC()

	_, err = tx.ExecContext(ctx,
		`UPDATE expenses SET amount = ?, original_amount = ?, original_currency = ?, user_currency = ?, exchange_rate = ?,
			category = ?, subcategory = ?, description = ?, payment_method = ?, payment_subcategory = ?,
			date = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		updated.Amount, updated.OriginalAmount, updated.OriginalCurrency, updated.UserCurrency, updated.ExchangeRate,
		updated.Category, updated.Subcategory, updated.Description, updated.PaymentMethod, updated.PaymentSubcategory,
		updated.Date.Format(timeLayout), updated.UpdatedAt.Format(timeLayout),
		id, userID,
	)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return core.Expense{}, fmt.Errorf("commit update: %w", err)
	}
	return updated, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteExpense(s rowScanner) (core.Expense, error) {
	var (
		e                            core.Expense
		date, created, updated, tags string
		freq                         string
	)
	err := s.Scan(&e.ID, &e.UserID, &e.Amount, &e.OriginalAmount, &e.OriginalCurrency, &e.UserCurrency,
		&e.ExchangeRate, &e.Category, &e.Subcategory, &e.Description, &e.PaymentMethod, &e.PaymentSubcategory,
		&date, &tags, &e.IsRecurring, &freq, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, err
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("scan expense: %w", err)
	}
	e.RecurringFrequency = core.RepetitionTypes(freq)

	if e.Date, err = time.Parse(timeLayout, date); err != nil {
		return core.Expense{}, fmt.Errorf("parse date of %s: %w", e.ID, err)
	}
	if e.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return core.Expense{}, fmt.Errorf("parse created_at of %s: %w", e.ID, err)
	}
	if e.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
		return core.Expense{}, fmt.Errorf("parse updated_at of %s: %w", e.ID, err)
	}
	if err := json.Unmarshal([]byte(tags), &e.Tags); err != nil {
		return core.Expense{}, fmt.Errorf("decode tags of %s: %w", e.ID, err)
	}
	return e, nil
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
