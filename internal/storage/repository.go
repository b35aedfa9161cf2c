// Package storage mirrors user data into SQLite so the service can answer
// from local state when the webhook endpoints are unreachable and the worker
// can process recurring payments durably.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"vytraty/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// applies migrations.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveTransaction upserts a transaction for the user.
func (r *SQLiteRepository) SaveTransaction(ctx context.Context, userID string, t core.Transaction) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (user_id, id, type, amount_cents, description, category, date, is_regular)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, id) DO UPDATE SET
			type = excluded.type,
			amount_cents = excluded.amount_cents,
			description = excluded.description,
			category = excluded.category,
			date = excluded.date,
			is_regular = excluded.is_regular,
			deleted_at = NULL`,
		userID, t.ID, string(t.Type), t.Amount.Cents, t.Description, t.Category, t.Date.UTC(), boolToInt(t.IsRegular))
	if err != nil {
		return fmt.Errorf("save transaction %s: %w", t.ID, err)
	}
	return nil
}

// DeleteTransaction soft-deletes a transaction and reports whether a live row
// was affected.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions SET deleted_at = ?
		WHERE user_id = ? AND id = ? AND deleted_at IS NULL`,
		time.Now().UTC(), userID, id)
	if err != nil {
		return false, fmt.Errorf("delete transaction %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete transaction %s: %w", id, err)
	}
	return n > 0, nil
}

// ListTransactions returns all live transactions for the user, newest first.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, type, amount_cents, description, category, date, is_regular
		FROM transactions
		WHERE user_id = ? AND deleted_at IS NULL
		ORDER BY date DESC, id`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var t core.Transaction
		var typ string
		var isRegular int
		if err := rows.Scan(&t.ID, &typ, &t.Amount.Cents, &t.Description, &t.Category, &t.Date, &isRegular); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Type = core.TransactionType(typ)
		t.IsRegular = isRegular != 0
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return out, nil
}

// ReplaceTransactions swaps the user's whole mirror for the synced list in
// one transaction.
func (r *SQLiteRepository) ReplaceTransactions(ctx context.Context, userID string, transactions []core.Transaction) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clear transactions: %w", err)
	}
	for _, t := range transactions {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO transactions (user_id, id, type, amount_cents, description, category, date, is_regular)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			userID, t.ID, string(t.Type), t.Amount.Cents, t.Description, t.Category, t.Date.UTC(), boolToInt(t.IsRegular)); err != nil {
			return fmt.Errorf("insert transaction %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}
	return nil
}

// SaveRegularPayment upserts a regular payment for the user.
func (r *SQLiteRepository) SaveRegularPayment(ctx context.Context, userID string, p core.RegularPayment) error {
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO regular_payments (user_id, id, type, amount_cents, description, day_of_month, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, id) DO UPDATE SET
			type = excluded.type,
			amount_cents = excluded.amount_cents,
			description = excluded.description,
			day_of_month = excluded.day_of_month,
			deleted_at = NULL`,
		userID, p.ID, string(p.Type), p.Amount.Cents, p.Description, p.DayOfMonth, createdAt.UTC())
	if err != nil {
		return fmt.Errorf("save regular payment %s: %w", p.ID, err)
	}
	return nil
}

// ReplaceRegularPayments swaps the user's mirrored regular payments for the
// synced list in one transaction.
func (r *SQLiteRepository) ReplaceRegularPayments(ctx context.Context, userID string, payments []core.RegularPayment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace regular payments: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM regular_payments WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clear regular payments: %w", err)
	}
	for _, p := range payments {
		createdAt := p.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO regular_payments (user_id, id, type, amount_cents, description, day_of_month, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			userID, p.ID, string(p.Type), p.Amount.Cents, p.Description, p.DayOfMonth, createdAt.UTC()); err != nil {
			return fmt.Errorf("insert regular payment %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace regular payments: %w", err)
	}
	return nil
}

// DeleteRegularPayment soft-deletes a regular payment.
func (r *SQLiteRepository) DeleteRegularPayment(ctx context.Context, userID, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE regular_payments SET deleted_at = ?
		WHERE user_id = ? AND id = ? AND deleted_at IS NULL`,
		time.Now().UTC(), userID, id)
	if err != nil {
		return false, fmt.Errorf("delete regular payment %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete regular payment %s: %w", id, err)
	}
	return n > 0, nil
}

// ListRegularPayments returns all live regular payments for the user.
func (r *SQLiteRepository) ListRegularPayments(ctx context.Context, userID string) ([]core.RegularPayment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, type, amount_cents, description, day_of_month, created_at
		FROM regular_payments
		WHERE user_id = ? AND deleted_at IS NULL
		ORDER BY created_at, id`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list regular payments: %w", err)
	}
	defer rows.Close()

	var out []core.RegularPayment
	for rows.Next() {
		var p core.RegularPayment
		var typ string
		if err := rows.Scan(&p.ID, &typ, &p.Amount.Cents, &p.Description, &p.DayOfMonth, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan regular payment: %w", err)
		}
		p.Type = core.TransactionType(typ)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list regular payments: %w", err)
	}
	return out, nil
}

// RecurringRunExists reports whether a payment was already materialized for
// the given period.
func (r *SQLiteRepository) RecurringRunExists(ctx context.Context, userID, paymentID string, p core.Period) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM recurring_runs
		WHERE user_id = ? AND payment_id = ? AND month = ? AND year = ?`,
		userID, paymentID, p.Month, p.Year).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check recurring run: %w", err)
	}
	return n > 0, nil
}

// MarkRecurringRun records that a payment was materialized for the period.
// Inserting twice for the same period is a no-op.
func (r *SQLiteRepository) MarkRecurringRun(ctx context.Context, userID, paymentID string, p core.Period) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO recurring_runs (user_id, payment_id, month, year)
		VALUES (?, ?, ?, ?)
		ON CONFLICT DO NOTHING`,
		userID, paymentID, p.Month, p.Year)
	if err != nil {
		return fmt.Errorf("mark recurring run: %w", err)
	}
	return nil
}

// GetTransaction returns one live transaction by id.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	var t core.Transaction
	var typ string
	var isRegular int
	err := r.db.QueryRowContext(ctx, `
		SELECT id, type, amount_cents, description, category, date, is_regular
		FROM transactions
		WHERE user_id = ? AND id = ? AND deleted_at IS NULL`,
		userID, id).Scan(&t.ID, &typ, &t.Amount.Cents, &t.Description, &t.Category, &t.Date, &isRegular)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	t.Type = core.TransactionType(typ)
	t.IsRegular = isRegular != 0
	return t, nil
}

// ExportCandidate identifies a transaction awaiting export.
type ExportCandidate struct {
	UserID string
	ID     string
}

// ListUnexported returns up to limit live transactions that have not been
// exported yet, oldest first so a backlog drains in order.
func (r *SQLiteRepository) ListUnexported(ctx context.Context, limit int) ([]ExportCandidate, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, id FROM transactions
		WHERE exported_at IS NULL AND deleted_at IS NULL
		ORDER BY date, id
		LIMIT ?`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("list unexported: %w", err)
	}
	defer rows.Close()

	var out []ExportCandidate
	for rows.Next() {
		var c ExportCandidate
		if err := rows.Scan(&c.UserID, &c.ID); err != nil {
			return nil, fmt.Errorf("scan export candidate: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list unexported: %w", err)
	}
	return out, nil
}

// MarkExported stamps a transaction as exported.
func (r *SQLiteRepository) MarkExported(ctx context.Context, userID, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE transactions SET exported_at = ?
		WHERE user_id = ? AND id = ?`,
		time.Now().UTC(), userID, id)
	if err != nil {
		return fmt.Errorf("mark exported %s: %w", id, err)
	}
	return nil
}

// MarkExportError bumps the attempt counter for a failed export.
func (r *SQLiteRepository) MarkExportError(ctx context.Context, userID, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE transactions SET export_attempts = export_attempts + 1
		WHERE user_id = ? AND id = ?`,
		userID, id)
	if err != nil {
		return fmt.Errorf("mark export error %s: %w", id, err)
	}
	return nil
}

// Users returns the ids of all users with live data in the mirror.
func (r *SQLiteRepository) Users(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT user_id FROM transactions WHERE deleted_at IS NULL
		UNION
		SELECT DISTINCT user_id FROM regular_payments WHERE deleted_at IS NULL`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
