package balance

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository aggregates contribution streams from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) queryEntries(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEntries(rows)
}

func collectEntries(rows pgx.Rows) ([]Entry, error) {
	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Amount.Amount, &e.Amount.Currency, &e.Amount.Precision, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// TransferEntries returns signed transfer contributions for a user.
func (r *Repository) TransferEntries(ctx context.Context, userID int64, asOf time.Time) ([]Entry, error) {
	return r.queryEntries(ctx, `
		SELECT CASE WHEN to_id = $1 THEN amount ELSE -amount END,
		       currency, precision, created_at
		FROM transfers
		WHERE (to_id = $1 OR from_id = $1) AND created_at <= $2
		ORDER BY created_at`, userID, asOf)
}

// TransactionEntries returns signed transaction contributions for a user.
func (r *Repository) TransactionEntries(ctx context.Context, userID int64, asOf time.Time) ([]Entry, error) {
	return r.queryEntries(ctx, `
		SELECT CASE WHEN to_id = $1 THEN total_amount ELSE -total_amount END,
		       currency, precision, created_at
		FROM transactions
		WHERE (to_id = $1 OR from_id = $1) AND created_at <= $2
		ORDER BY created_at`, userID, asOf)
}

// FineEntries returns active fines against a user as negative entries.
func (r *Repository) FineEntries(ctx context.Context, userID int64, asOf time.Time) ([]Entry, error) {
	return r.queryEntries(ctx, `
		SELECT -amount, currency, precision, created_at
		FROM fines
		WHERE user_id = $1 AND active = TRUE AND created_at <= $2
		ORDER BY created_at`, userID, asOf)
}

var _ RepositoryPort = (*Repository)(nil)
