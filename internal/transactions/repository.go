package transactions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/barpos/barpos/internal/money"
	"github.com/barpos/barpos/internal/platform/db"
	"github.com/barpos/barpos/internal/shared"
)

// Repository persists transactions and their legs in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateTransaction inserts the transaction and all of its legs inside
// one transaction, so a partial purchase can never be observed.
func (r *Repository) CreateTransaction(ctx context.Context, input CreateTransactionInput, total money.Money, createdAt time.Time) (Transaction, error) {
	var txn Transaction
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO transactions
				(from_id, to_id, created_by, point_of_sale_id, total_amount, currency, precision, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
			RETURNING id, from_id, to_id, created_by, point_of_sale_id,
				total_amount, currency, precision, created_at, updated_at`,
			input.FromID, input.ToID, input.CreatedByID, input.PointOfSaleID,
			total.Amount, total.Currency, total.Precision, createdAt).
			Scan(&txn.ID, &txn.FromID, &txn.ToID, &txn.CreatedByID, &txn.PointOfSaleID,
				&txn.Total.Amount, &txn.Total.Currency, &txn.Total.Precision,
				&txn.CreatedAt, &txn.UpdatedAt)
		if err != nil {
			return fmt.Errorf("transactions: insert transaction: %w", err)
		}
		for _, sub := range input.Subs {
			var leg SubTransaction
			err := tx.QueryRow(ctx, `
				INSERT INTO sub_transactions
					(transaction_id, product_id, quantity, amount, currency, precision)
				VALUES ($1, $2, $3, $4, $5, $6)
				RETURNING id, transaction_id, product_id, quantity, amount, currency, precision`,
				txn.ID, sub.ProductID, sub.Quantity,
				sub.Amount.Amount, sub.Amount.Currency, sub.Amount.Precision).
				Scan(&leg.ID, &leg.TransactionID, &leg.ProductID, &leg.Quantity,
					&leg.Amount.Amount, &leg.Amount.Currency, &leg.Amount.Precision)
			if err != nil {
				return fmt.Errorf("transactions: insert sub transaction: %w", err)
			}
			txn.Subs = append(txn.Subs, leg)
		}
		return nil
	})
	if err != nil {
		return Transaction{}, err
	}
	return txn, nil
}

// GetTransaction fetches one transaction with its legs.
func (r *Repository) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, from_id, to_id, created_by, point_of_sale_id,
			total_amount, currency, precision, created_at, updated_at
		FROM transactions WHERE id = $1`, id)
	txn, err := scanTransaction(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return Transaction{}, shared.ErrNotFound
		}
		return Transaction{}, fmt.Errorf("transactions: get: %w", err)
	}
	subs, err := r.subsForTransactions(ctx, []int64{txn.ID})
	if err != nil {
		return Transaction{}, err
	}
	txn.Subs = subs[txn.ID]
	return txn, nil
}

// ListTransactions returns transactions matching the filter, newest
// first, with their legs attached.
func (r *Repository) ListTransactions(ctx context.Context, filter Filter, page shared.Pagination) ([]Transaction, int, error) {
	where, args := filterClauses(filter)

	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM transactions`+where, args...).Scan(&count); err != nil {
		return nil, 0, fmt.Errorf("transactions: count: %w", err)
	}

	query := `
		SELECT id, from_id, to_id, created_by, point_of_sale_id,
			total_amount, currency, precision, created_at, updated_at
		FROM transactions` + where +
		fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	rows, err := r.pool.Query(ctx, query, append(args, page.Take, page.Skip)...)
	if err != nil {
		return nil, 0, fmt.Errorf("transactions: list: %w", err)
	}
	defer rows.Close()

	var out []Transaction
	var ids []int64
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("transactions: scan: %w", err)
		}
		out = append(out, txn)
		ids = append(ids, txn.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("transactions: rows: %w", err)
	}

	if len(ids) > 0 {
		subs, err := r.subsForTransactions(ctx, ids)
		if err != nil {
			return nil, 0, err
		}
		for i := range out {
			out[i].Subs = subs[out[i].ID]
		}
	}
	return out, count, nil
}

func (r *Repository) subsForTransactions(ctx context.Context, ids []int64) (map[int64][]SubTransaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, transaction_id, product_id, quantity, amount, currency, precision
		FROM sub_transactions WHERE transaction_id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, fmt.Errorf("transactions: list subs: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]SubTransaction)
	for rows.Next() {
		var s SubTransaction
		if err := rows.Scan(&s.ID, &s.TransactionID, &s.ProductID, &s.Quantity,
			&s.Amount.Amount, &s.Amount.Currency, &s.Amount.Precision); err != nil {
			return nil, fmt.Errorf("transactions: scan sub: %w", err)
		}
		out[s.TransactionID] = append(out[s.TransactionID], s)
	}
	return out, rows.Err()
}

func scanTransaction(row pgx.Row) (Transaction, error) {
	var t Transaction
	err := row.Scan(&t.ID, &t.FromID, &t.ToID, &t.CreatedByID, &t.PointOfSaleID,
		&t.Total.Amount, &t.Total.Currency, &t.Total.Precision, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func filterClauses(filter Filter) (string, []any) {
	var clauses []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.FromID != 0 {
		clauses = append(clauses, "from_id = "+arg(filter.FromID))
	}
	if filter.ToID != 0 {
		clauses = append(clauses, "to_id = "+arg(filter.ToID))
	}
	if filter.PointOfSaleID != 0 {
		clauses = append(clauses, "point_of_sale_id = "+arg(filter.PointOfSaleID))
	}
	if !filter.FromDate.IsZero() {
		clauses = append(clauses, "created_at >= "+arg(filter.FromDate))
	}
	if !filter.TillDate.IsZero() {
		clauses = append(clauses, "created_at <= "+arg(filter.TillDate))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
