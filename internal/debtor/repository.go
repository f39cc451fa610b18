package debtor

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/barpos/barpos/internal/money"
	"github.com/barpos/barpos/internal/platform/db"
	"github.com/barpos/barpos/internal/shared"
)

// Repository persists fines and handout events in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const fineColumns = `id, event_id, user_id, amount, currency, precision, active, created_at, updated_at`

func scanFine(row pgx.Row) (Fine, error) {
	var f Fine
	err := row.Scan(&f.ID, &f.EventID, &f.UserID, &f.Amount.Amount, &f.Amount.Currency,
		&f.Amount.Precision, &f.Active, &f.CreatedAt, &f.UpdatedAt)
	return f, err
}

// InTx runs fn inside a RepeatableRead transaction. The tx-scoped
// repository it passes reads balances through the same transaction.
func (r *Repository) InTx(ctx context.Context, fn func(TxRepositoryPort) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

// UserBalance aggregates the user's signed position within the
// transaction snapshot. It mirrors the balance service's three streams.
func (r *txRepository) UserBalance(ctx context.Context, userID int64, asOf time.Time) (money.Money, error) {
	row := r.tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM (
			SELECT CASE WHEN to_id = $1 THEN amount ELSE -amount END AS amount
			FROM transfers WHERE (to_id = $1 OR from_id = $1) AND created_at <= $2
			UNION ALL
			SELECT CASE WHEN to_id = $1 THEN total_amount ELSE -total_amount END
			FROM transactions WHERE (to_id = $1 OR from_id = $1) AND created_at <= $2
			UNION ALL
			SELECT -amount
			FROM fines WHERE user_id = $1 AND active = TRUE AND created_at <= $2
		) contributions`, userID, asOf)
	m := money.Zero()
	if err := row.Scan(&m.Amount); err != nil {
		return money.Money{}, err
	}
	return m, nil
}

func (r *txRepository) InsertHandoutEvent(ctx context.Context, input HandoutEventInput) (FineHandoutEvent, error) {
	var evt FineHandoutEvent
	err := r.tx.QueryRow(ctx, `
		INSERT INTO fine_handout_events (reference_date, created_by, created_at)
		VALUES ($1, $2, $3)
		RETURNING id, reference_date, created_by, created_at`,
		input.ReferenceDate, input.CreatedByID, input.CreatedAt).
		Scan(&evt.ID, &evt.ReferenceDate, &evt.CreatedByID, &evt.CreatedAt)
	return evt, err
}

func (r *txRepository) InsertFine(ctx context.Context, eventID, userID int64, amount money.Money) (Fine, error) {
	row := r.tx.QueryRow(ctx, `
		INSERT INTO fines (event_id, user_id, amount, currency, precision, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, NOW(), NOW())
		RETURNING `+fineColumns,
		eventID, userID, amount.Amount, amount.Currency, amount.Precision)
	return scanFine(row)
}

// ListDebtors aggregates every user whose signed balance is at or past
// the threshold as of the given instant. The grouped query walks the
// same three streams as UserBalance.
func (r *Repository) ListDebtors(ctx context.Context, asOf time.Time, threshold int64) (map[int64]money.Money, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT user_id, SUM(amount) FROM (
			SELECT to_id AS user_id, amount FROM transfers
			WHERE to_id IS NOT NULL AND created_at <= $1
			UNION ALL
			SELECT from_id, -amount FROM transfers
			WHERE from_id IS NOT NULL AND created_at <= $1
			UNION ALL
			SELECT to_id, total_amount FROM transactions WHERE created_at <= $1
			UNION ALL
			SELECT from_id, -total_amount FROM transactions WHERE created_at <= $1
			UNION ALL
			SELECT user_id, -amount FROM fines WHERE active = TRUE AND created_at <= $1
		) contributions
		GROUP BY user_id
		HAVING SUM(amount) <= -$2`, asOf, threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64]money.Money)
	for rows.Next() {
		var userID int64
		bal := money.Zero()
		if err := rows.Scan(&userID, &bal.Amount); err != nil {
			return nil, err
		}
		out[userID] = bal
	}
	return out, rows.Err()
}

// ListHandoutEvents returns events newest first with their fines.
func (r *Repository) ListHandoutEvents(ctx context.Context, page shared.Pagination) ([]FineHandoutEvent, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM fine_handout_events`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, reference_date, created_by, created_at
		FROM fine_handout_events
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`, page.Take, page.Skip)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var events []FineHandoutEvent
	ids := make([]int64, 0)
	for rows.Next() {
		var evt FineHandoutEvent
		if err := rows.Scan(&evt.ID, &evt.ReferenceDate, &evt.CreatedByID, &evt.CreatedAt); err != nil {
			return nil, 0, err
		}
		events = append(events, evt)
		ids = append(ids, evt.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if len(ids) > 0 {
		fines, err := r.finesForEvents(ctx, ids)
		if err != nil {
			return nil, 0, err
		}
		for i := range events {
			events[i].Fines = fines[events[i].ID]
		}
	}
	return events, total, nil
}

func (r *Repository) finesForEvents(ctx context.Context, eventIDs []int64) (map[int64][]Fine, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+fineColumns+` FROM fines WHERE event_id = ANY($1) ORDER BY id`, eventIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64][]Fine)
	for rows.Next() {
		f, err := scanFine(rows)
		if err != nil {
			return nil, err
		}
		out[f.EventID] = append(out[f.EventID], f)
	}
	return out, rows.Err()
}

// GetHandoutEvent fetches one event with its fines.
func (r *Repository) GetHandoutEvent(ctx context.Context, id int64) (FineHandoutEvent, error) {
	var evt FineHandoutEvent
	err := r.pool.QueryRow(ctx, `
		SELECT id, reference_date, created_by, created_at
		FROM fine_handout_events WHERE id = $1`, id).
		Scan(&evt.ID, &evt.ReferenceDate, &evt.CreatedByID, &evt.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return FineHandoutEvent{}, shared.ErrNotFound
		}
		return FineHandoutEvent{}, err
	}
	fines, err := r.finesForEvents(ctx, []int64{id})
	if err != nil {
		return FineHandoutEvent{}, err
	}
	evt.Fines = fines[id]
	return evt, nil
}

// GetFine fetches a single fine.
func (r *Repository) GetFine(ctx context.Context, id int64) (Fine, error) {
	f, err := scanFine(r.pool.QueryRow(ctx, `SELECT `+fineColumns+` FROM fines WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Fine{}, shared.ErrNotFound
		}
		return Fine{}, err
	}
	return f, nil
}

// ListActiveFines returns the user's active fines.
func (r *Repository) ListActiveFines(ctx context.Context, userID int64) ([]Fine, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+fineColumns+` FROM fines WHERE user_id = $1 AND active = TRUE ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Fine
	for rows.Next() {
		f, err := scanFine(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// DeactivateFine marks one fine waived.
func (r *Repository) DeactivateFine(ctx context.Context, fineID int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE fines SET active = FALSE, updated_at = NOW() WHERE id = $1 AND active = TRUE`, fineID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeactivateFinesForUser waives every active fine of a user and reports
// how many were touched.
func (r *Repository) DeactivateFinesForUser(ctx context.Context, userID int64) (int, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE fines SET active = FALSE, updated_at = NOW() WHERE user_id = $1 AND active = TRUE`, userID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

var _ RepositoryPort = (*Repository)(nil)

// DebtBook binds the debtor listing to a fixed threshold for the daily
// debt notice sweep.
type DebtBook struct {
	repo      *Repository
	threshold int64
}

// NewDebtBook constructs a DebtBook.
func NewDebtBook(repo *Repository, threshold int64) *DebtBook {
	return &DebtBook{repo: repo, threshold: threshold}
}

// ListDebtors returns everyone at or past the threshold as of the given
// instant.
func (b *DebtBook) ListDebtors(ctx context.Context, asOf time.Time) (map[int64]money.Money, error) {
	return b.repo.ListDebtors(ctx, asOf, b.threshold)
}
