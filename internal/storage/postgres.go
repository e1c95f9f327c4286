package storage

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"expensetool/internal/core"
)

//go:embed postgres/schema.sql
var postgresSchema string

// PostgresRepository stores expenses in PostgreSQL through a pgx pool.
type PostgresRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

var _ Store = (*PostgresRepository)(nil)

// NewPostgresRepository connects to dsn and applies the schema.
func NewPostgresRepository(ctx context.Context, dsn string) (*PostgresRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	poolConfig.MaxConns = 10
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	slog.InfoContext(ctx, "PostgreSQL store ready",
		"host", poolConfig.ConnConfig.Host,
		"database", poolConfig.ConnConfig.Database)
	return &PostgresRepository{pool: pool, now: time.Now}, nil
}

func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

func (r *PostgresRepository) Insert(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	// Postgres keeps microseconds.
	now := r.now().UTC().Truncate(time.Microsecond)
	e.ID = uuid.NewString()
	e.CreatedAt, e.UpdatedAt = now, now
	e.Date = e.Date.UTC().Truncate(time.Microsecond)
	e.Tags = nonNilTags(e.Tags)

	_, err := r.pool.Exec(ctx,
		`INSERT INTO expenses (`+expenseColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		e.ID, e.UserID, e.Amount, e.OriginalAmount, e.OriginalCurrency, e.UserCurrency,
		e.ExchangeRate, e.Category, e.Subcategory, e.Description, e.PaymentMethod, e.PaymentSubcategory,
		e.Date, e.Tags, e.IsRecurring, string(e.RecurringFrequency), e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}

	slog.DebugContext(ctx, "Expense saved to PostgreSQL", "id", e.ID, "user_id", e.UserID)
	return e, nil
}

func (r *PostgresRepository) Find(ctx context.Context, q Query) ([]core.Expense, error) {
	var (
		where = []string{"user_id = $1"}
		args  = []any{q.UserID}
	)
	next := func() string { return "$" + strconv.Itoa(len(args)) }

	if q.Category != "" {
		args = append(args, q.Category)
		where = append(where, "category = "+next())
	}
	if q.DescriptionContains != "" {
		args = append(args, q.DescriptionContains)
		where = append(where, "strpos(lower(description), lower("+next()+")) > 0")
	}

	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY date DESC, created_at DESC`
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += ` LIMIT ` + next()
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanPostgresExpense(rows)
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

func (r *PostgresRepository) Delete(ctx context.Context, userID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM expenses WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, userID, id string, p core.Patch) (core.Expense, error) {
	if _, err := uuid.Parse(id); err != nil {
		return core.Expense{}, ErrNotFound
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return core.Expense{}, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE id = $1 AND user_id = $2 FOR UPDATE`, id, userID)
	existing, err := scanPostgresExpense(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Expense{}, ErrNotFound
	}
	if err != nil {
		return core.Expense{}, err
	}

	updated := p.ApplyTo(existing)
	if err := updated.Validate(); err != nil {
		return core.Expense{}, err
	}
	updated.UpdatedAt = r.now().UTC().Truncate(time.Microsecond)
	updated.Date = updated.Date.UTC().Truncate(time.Microsecond)

	_, err = tx.Exec(ctx,
		`UPDATE expenses SET amount = $1, original_amount = $2, original_currency = $3, user_currency = $4,
			exchange_rate = $5, category = $6, subcategory = $7, description = $8, payment_method = $9,
			payment_subcategory = $10, date = $11, updated_at = $12
		 WHERE id = $13 AND user_id = $14`,
		updated.Amount, updated.OriginalAmount, updated.OriginalCurrency, updated.UserCurrency, updated.ExchangeRate,
		updated.Category, updated.Subcategory, updated.Description, updated.PaymentMethod, updated.PaymentSubcategory,
		updated.Date, updated.UpdatedAt, id, userID,
	)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return core.Expense{}, fmt.Errorf("commit update: %w", err)
	}
	return updated, nil
}

func scanPostgresExpense(row pgx.Row) (core.Expense, error) {
	var (
		e    core.Expense
		freq string
	)
	err := row.Scan(&e.ID, &e.UserID, &e.Amount, &e.OriginalAmount, &e.OriginalCurrency, &e.UserCurrency,
		&e.ExchangeRate, &e.Category, &e.Subcategory, &e.Description, &e.PaymentMethod, &e.PaymentSubcategory,
		&e.Date, &e.Tags, &e.IsRecurring, &freq, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Expense{}, err
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("scan expense: %w", err)
	}
	e.RecurringFrequency = core.RepetitionTypes(freq)
	e.Date = e.Date.UTC()
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return e, nil
}
