package transfers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/barpos/barpos/internal/money"
	"github.com/barpos/barpos/internal/shared"
)

// Repository persists transfers in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const transferColumns = `id, from_id, to_id, amount, currency, precision, description, created_by, created_at, updated_at`

// External sides are NULL columns; party maps the zero id both ways.
func party(id int64) pgtype.Int8 {
	return pgtype.Int8{Int64: id, Valid: id != 0}
}

func scanTransfer(row pgx.Row) (Transfer, error) {
	var t Transfer
	var from, to pgtype.Int8
	err := row.Scan(&t.ID, &from, &to, &t.Amount.Amount, &t.Amount.Currency,
		&t.Amount.Precision, &t.Description, &t.CreatedByID, &t.CreatedAt, &t.UpdatedAt)
	t.FromID = from.Int64
	t.ToID = to.Int64
	return t, err
}

// CreateTransfer inserts a transfer.
func (r *Repository) CreateTransfer(ctx context.Context, input CreateTransferInput) (Transfer, error) {
	now := time.Now().UTC()
	row := r.pool.QueryRow(ctx, `
		INSERT INTO transfers (from_id, to_id, amount, currency, precision, description, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING `+transferColumns,
		party(input.FromID), party(input.ToID), input.Amount.Amount, input.Amount.Currency,
		input.Amount.Precision, input.Description, input.CreatedByID, now)
	return scanTransfer(row)
}

func filterClauses(filter Filter, args *[]any) []string {
	var clauses []string
	arg := func(v any) string {
		*args = append(*args, v)
		return fmt.Sprintf("$%d", len(*args))
	}
	if filter.UserID != 0 {
		p := arg(filter.UserID)
		clauses = append(clauses, `(from_id = `+p+` OR to_id = `+p+`)`)
	}
	if filter.FromID != 0 {
		clauses = append(clauses, `from_id = `+arg(filter.FromID))
	}
	if filter.ToID != 0 {
		clauses = append(clauses, `to_id = `+arg(filter.ToID))
	}
	if !filter.FromDate.IsZero() {
		clauses = append(clauses, `created_at >= `+arg(filter.FromDate))
	}
	if !filter.TillDate.IsZero() {
		clauses = append(clauses, `created_at <= `+arg(filter.TillDate))
	}
	return clauses
}

// ListTransfers returns transfers matching the filter, newest first.
func (r *Repository) ListTransfers(ctx context.Context, filter Filter, page shared.Pagination) ([]Transfer, int, error) {
	var args []any
	clauses := filterClauses(filter, &args)
	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM transfers`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, page.Take, page.Skip)
	query := fmt.Sprintf(`SELECT %s FROM transfers%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		transferColumns, where, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	return out, total, rows.Err()
}

// AggregateTransfers sums transfers matching the filter.
func (r *Repository) AggregateTransfers(ctx context.Context, filter Filter) (Aggregate, error) {
	var args []any
	clauses := filterClauses(filter, &args)
	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}
	var agg Aggregate
	agg.Sum = money.Zero()
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0), COUNT(*) FROM transfers`+where, args...).
		Scan(&agg.Sum.Amount, &agg.Count)
	return agg, err
}
