// Package db provides PostgreSQL access for the lead-ranking engine:
// companies, leads, ranking results, instruction-document versions and run
// records. Every write is an idempotent upsert keyed by stable identity, so
// re-imports and retried runs converge instead of duplicating.
package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// NormalizeName produces the lookup key for a company name: lowercase with
// whitespace and punctuation stripped, so "Affirm, Inc." and "affirm inc"
// collide the way a human expects.
func NormalizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// errorMessageLimit bounds stored failure messages so an unbounded provider
// response body never lands in a varchar column.
const errorMessageLimit = 500

// TruncateError clips an error message for storage.
func TruncateError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) > errorMessageLimit {
		return msg[:errorMessageLimit]
	}
	return msg
}
