package dedup

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
)

// MemoryRegistry tracks idempotency tokens whose side effect has already been
// applied. Callers are expected to hold their own lock around the
// check-then-mark sequence; the registry itself is also safe for concurrent
// use.
type MemoryRegistry struct {
	mu      sync.Mutex
	applied map[string]struct{}
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{applied: make(map[string]struct{})}
}

// Seen reports whether the token's mutation has been applied.
func (r *MemoryRegistry) Seen(token string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.applied[token]
	return ok
}

// Mark records the token as applied.
func (r *MemoryRegistry) Mark(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applied[token] = struct{}{}
}

// Execer is the subset of pgx.Tx used to claim tokens. Claims ride inside the
// caller's transaction so a rolled-back mutation does not burn its token.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresRegistry claims tokens in an inventory_ops table with a unique
// constraint on the token column.
type PostgresRegistry struct{}

func NewPostgresRegistry() *PostgresRegistry {
	return &PostgresRegistry{}
}

// Claim returns true if this is the first time the token is applied. A false
// return means the mutation already happened and must not be re-applied.
func (r *PostgresRegistry) Claim(ctx context.Context, ex Execer, token string) (bool, error) {
	tag, err := ex.Exec(ctx, `
		INSERT INTO inventory_ops (token, applied_at)
		VALUES ($1, NOW())
		ON CONFLICT (token) DO NOTHING
	`, token)
	if err != nil {
		return false, fmt.Errorf("claim token: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
