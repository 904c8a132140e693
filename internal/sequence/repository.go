package sequence

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

// Repository hands out monotonically increasing values per named sequence.
// Order IDs and producer-side event sequences both come from here.
type Repository interface {
	Next(ctx context.Context, name string) (int64, error)
}

type repo struct {
	db *sql.DB
}

// NewRepository creates a SQL-backed sequence repository.
func NewRepository(db *sql.DB) Repository {
	return &repo{db: db}
}

func (r *repo) Next(ctx context.Context, name string) (int64, error) {
	var next int64
	if err := r.db.QueryRowContext(ctx, `
		INSERT INTO sequences (name, last_value, updated_at)
		VALUES ($1, 1, NOW())
		ON CONFLICT (name)
		DO UPDATE SET last_value = sequences.last_value + 1, updated_at = NOW()
		RETURNING last_value
	`, name).Scan(&next); err != nil {
		return 0, fmt.Errorf("next sequence %s: %w", name, err)
	}
	return next, nil
}

// MemoryRepository is the in-process equivalent, used with the in-memory
// stores and in tests.
type MemoryRepository struct {
	mu   sync.Mutex
	last map[string]int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{last: make(map[string]int64)}
}

func (r *MemoryRepository) Next(ctx context.Context, name string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last[name]++
	return r.last[name], nil
}
