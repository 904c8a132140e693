package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrNotFound = errors.New("product not found")

// Repository owns the product catalog records. Availability is not here; the
// inventory ledger owns that separately.
type Repository interface {
	Get(ctx context.Context, productID string) (Product, error)
	List(ctx context.Context) ([]Product, error)
	Create(ctx context.Context, p Product) error
	Update(ctx context.Context, p Product) error
	Delete(ctx context.Context, productID string) error
}

// DB matches the methods from *pgxpool.Pool that the repository uses.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PostgresRepository struct {
	db DB
}

func NewPostgresRepository(db DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, productID string) (Product, error) {
	var p Product
	err := r.db.QueryRow(ctx, `
		SELECT product_id, name, price, category FROM products WHERE product_id = $1
	`, productID).Scan(&p.ID, &p.Name, &p.Price, &p.Category)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, fmt.Errorf("select product: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]Product, error) {
	rows, err := r.db.Query(ctx, `
		SELECT product_id, name, price, category FROM products ORDER BY product_id
	`)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Category); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return products, nil
}

func (r *PostgresRepository) Create(ctx context.Context, p Product) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO products (product_id, name, price, category)
		VALUES ($1, $2, $3, $4)
	`, p.ID, p.Name, p.Price, p.Category)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, p Product) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE products SET name = $2, price = $3, category = $4 WHERE product_id = $1
	`, p.ID, p.Name, p.Price, p.Category)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, productID string) error {
	if _, err := r.db.Exec(ctx, `
		DELETE FROM products WHERE product_id = $1
	`, productID); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}
