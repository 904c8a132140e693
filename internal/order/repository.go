package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goldenserzh/sportshop/internal/sequence"
)

type repo struct {
	db  *sql.DB
	seq sequence.Repository
}

// NewRepository creates a SQL-backed Store. Order IDs come from the shared
// sequence repository so they stay monotonic across service restarts.
func NewRepository(db *sql.DB, seq sequence.Repository) Store {
	return &repo{db: db, seq: seq}
}

const orderIDSequence = "orders"

func (r *repo) Create(ctx context.Context, o *Order) error {
	id, err := r.seq.Next(ctx, orderIDSequence)
	if err != nil {
		return fmt.Errorf("assign order id: %w", err)
	}
	o.ID = id

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO orders (id, customer_name, customer_email, status, created_at)
         VALUES ($1, $2, $3, $4, $5)`,
		o.ID, o.CustomerName, o.CustomerEmail, o.Status, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, it := range o.Items {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_items (order_id, product_id, quantity)
             VALUES ($1, $2, $3)`,
			o.ID, it.ProductID, it.Quantity,
		)
		if err != nil {
			return fmt.Errorf("insert order_item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *repo) Get(ctx context.Context, id int64) (*Order, error) {
	var o Order
	err := r.db.QueryRowContext(ctx,
		`SELECT id, customer_name, customer_email, status, COALESCE(failure_reason, ''), created_at
         FROM orders WHERE id = $1`,
		id,
	).Scan(&o.ID, &o.CustomerName, &o.CustomerEmail, &o.Status, &o.FailureReason, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select order: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT product_id, quantity
         FROM order_items WHERE order_id = $1`,
		o.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("select order_items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ProductID, &it.Quantity); err != nil {
			return nil, fmt.Errorf("scan order_item: %w", err)
		}
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return &o, nil
}

func (r *repo) List(ctx context.Context) ([]Order, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, customer_name, customer_email, status, COALESCE(failure_reason, ''), created_at
         FROM orders ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.CustomerName, &o.CustomerEmail, &o.Status, &o.FailureReason, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	for i := range orders {
		itemRows, err := r.db.QueryContext(ctx,
			`SELECT product_id, quantity FROM order_items WHERE order_id = $1`,
			orders[i].ID,
		)
		if err != nil {
			return nil, fmt.Errorf("select items: %w", err)
		}
		for itemRows.Next() {
			var it Item
			if err := itemRows.Scan(&it.ProductID, &it.Quantity); err != nil {
				itemRows.Close()
				return nil, fmt.Errorf("scan item: %w", err)
			}
			orders[i].Items = append(orders[i].Items, it)
		}
		itemRows.Close()
	}

	return orders, nil
}

func (r *repo) UpdateStatus(ctx context.Context, id int64, from, to Status) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = $3 WHERE id = $1 AND status = $2`,
		id, from, to,
	)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	return r.checkAffected(ctx, id, res)
}

func (r *repo) MarkFailed(ctx context.Context, id int64, reason string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = $2, failure_reason = $3 WHERE id = $1 AND status = $4`,
		id, StatusFailed, reason, StatusPending,
	)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return r.checkAffected(ctx, id, res)
}

func (r *repo) checkAffected(ctx context.Context, id int64, res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id,
	).Scan(&exists); err != nil {
		return fmt.Errorf("check order exists: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrStatusConflict
}
