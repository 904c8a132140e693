package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/goldenserzh/sportshop/internal/dedup"
)

// Tx is the subset of pgx.Tx the ledger uses. Narrowing it here lets tests
// run against a hand-rolled transaction instead of a live pool.
type Tx interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// DBPool matches the methods from *pgxpool.Pool that the ledger uses.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (Tx, error)
}

// PostgresLedger keeps availability in inventory_stock and applied idempotency
// tokens in inventory_ops. Token claim and stock mutation commit in the same
// transaction, so a failed mutation never burns its token.
type PostgresLedger struct {
	pool DBPool
	ops  *dedup.PostgresRegistry
}

func NewPostgresLedger(pool *pgxpool.Pool) *PostgresLedger {
	return newPostgresLedger(poolAdapter{pool})
}

func newPostgresLedger(pool DBPool) *PostgresLedger {
	return &PostgresLedger{pool: pool, ops: dedup.NewPostgresRegistry()}
}

// poolAdapter narrows *pgxpool.Pool's Begin return type to the Tx interface.
type poolAdapter struct {
	inner *pgxpool.Pool
}

func (p poolAdapter) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return p.inner.QueryRow(ctx, sql, args...)
}

func (p poolAdapter) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return p.inner.Exec(ctx, sql, args...)
}

func (p poolAdapter) Begin(ctx context.Context) (Tx, error) {
	return p.inner.Begin(ctx)
}

func (l *PostgresLedger) Reserve(ctx context.Context, token, productID string, quantity int) error {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	first, err := l.ops.Claim(ctx, tx, token)
	if err != nil {
		return err
	}
	if !first {
		return nil
	}

	// Conditional single-statement decrement: the WHERE clause is the
	// availability check, so check and decrement are one indivisible step.
	tag, err := tx.Exec(ctx, `
		UPDATE inventory_stock
		SET available = available - $2, updated_at = NOW()
		WHERE product_id = $1 AND available >= $2
	`, productID, quantity)
	if err != nil {
		return fmt.Errorf("reserve %s: %w", productID, err)
	}

	if tag.RowsAffected() == 0 {
		var available int
		err := tx.QueryRow(ctx, `
			SELECT available FROM inventory_stock WHERE product_id = $1
		`, productID).Scan(&available)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("check stock %s: %w", productID, err)
		}
		return ErrInsufficientStock
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit reserve: %w", err)
	}
	return nil
}

func (l *PostgresLedger) Release(ctx context.Context, token, productID string, quantity int) error {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	first, err := l.ops.Claim(ctx, tx, token)
	if err != nil {
		return err
	}
	if !first {
		return nil
	}

	tag, err := tx.Exec(ctx, `
		UPDATE inventory_stock
		SET available = available + $2, updated_at = NOW()
		WHERE product_id = $1
	`, productID, quantity)
	if err != nil {
		return fmt.Errorf("release %s: %w", productID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit release: %w", err)
	}
	return nil
}

func (l *PostgresLedger) Peek(ctx context.Context, productID string) (int, error) {
	var available int
	err := l.pool.QueryRow(ctx, `
		SELECT available FROM inventory_stock WHERE product_id = $1
	`, productID).Scan(&available)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("peek %s: %w", productID, err)
	}
	return available, nil
}

func (l *PostgresLedger) SetAvailable(ctx context.Context, productID string, available int) error {
	_, err := l.pool.Exec(ctx, `
		INSERT INTO inventory_stock (product_id, available)
		VALUES ($1, $2)
		ON CONFLICT (product_id) DO UPDATE SET available = EXCLUDED.available, updated_at = NOW()
	`, productID, available)
	if err != nil {
		return fmt.Errorf("set available %s: %w", productID, err)
	}
	return nil
}
