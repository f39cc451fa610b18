package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/barpos/barpos/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, first_name, last_name, email, type, active, deleted, organ_id, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Type,
		&u.Active, &u.Deleted, &u.OrganID, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// GetUser fetches a single user by id.
func (r *Repository) GetUser(ctx context.Context, id int64) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 AND deleted = FALSE`, id)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

// FindUsers returns the subset of the given ids that exist, keyed by id.
func (r *Repository) FindUsers(ctx context.Context, ids []int64) (map[int64]User, error) {
	if len(ids) == 0 {
		return map[int64]User{}, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ANY($1) AND deleted = FALSE`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	found := make(map[int64]User, len(ids))
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		found[u.ID] = u
	}
	return found, rows.Err()
}

// ListUsers returns users matching the filter, with the total count.
func (r *Repository) ListUsers(ctx context.Context, filter Filter, page shared.Pagination) ([]User, int, error) {
	var (
		clauses []string
		args    []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.FirstName != "" {
		clauses = append(clauses, `first_name ILIKE `+arg(filter.FirstName+"%"))
	}
	if filter.LastName != "" {
		clauses = append(clauses, `last_name ILIKE `+arg(filter.LastName+"%"))
	}
	if filter.Active != nil {
		clauses = append(clauses, `active = `+arg(*filter.Active))
	}
	if filter.Deleted != nil {
		clauses = append(clauses, `deleted = `+arg(*filter.Deleted))
	} else {
		clauses = append(clauses, `deleted = FALSE`)
	}
	if filter.Type != "" {
		clauses = append(clauses, `type = `+arg(string(filter.Type)))
	}
	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + userColumns + ` FROM users` + where +
		` ORDER BY id LIMIT ` + arg(page.Take) + ` OFFSET ` + arg(page.Skip)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}

// ListUserIDsByTypes returns ids of active users having one of the types.
// An empty type set matches every active user.
func (r *Repository) ListUserIDsByTypes(ctx context.Context, types []UserType) ([]int64, error) {
	query := `SELECT id FROM users WHERE deleted = FALSE AND active = TRUE`
	var args []any
	if len(types) > 0 {
		names := make([]string, len(types))
		for i, t := range types {
			names[i] = string(t)
		}
		args = append(args, names)
		query += ` AND type = ANY($1)`
	}
	query += ` ORDER BY id`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CreateUser inserts a new account.
func (r *Repository) CreateUser(ctx context.Context, input CreateUserInput) (User, error) {
	now := time.Now().UTC()
	row := r.pool.QueryRow(ctx,
		`INSERT INTO users (first_name, last_name, email, type, active, deleted, organ_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, TRUE, FALSE, $5, $6, $6)
		 RETURNING `+userColumns,
		input.FirstName, input.LastName, input.Email, string(input.Type), input.OrganID, now)
	return scanUser(row)
}

// UpdateUser applies the non-nil fields of input.
func (r *Repository) UpdateUser(ctx context.Context, id int64, input UpdateUserInput) (User, error) {
	sets := []string{`updated_at = NOW()`}
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if input.FirstName != nil {
		sets = append(sets, `first_name = `+arg(*input.FirstName))
	}
	if input.LastName != nil {
		sets = append(sets, `last_name = `+arg(*input.LastName))
	}
	if input.Email != nil {
		sets = append(sets, `email = `+arg(*input.Email))
	}
	if input.Active != nil {
		sets = append(sets, `active = `+arg(*input.Active))
	}
	query := `UPDATE users SET ` + strings.Join(sets, ", ") +
		` WHERE id = ` + arg(id) + ` AND deleted = FALSE RETURNING ` + userColumns
	u, err := scanUser(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

// DeleteUser soft deletes an account.
func (r *Repository) DeleteUser(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET deleted = TRUE, active = FALSE, updated_at = NOW() WHERE id = $1 AND deleted = FALSE`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
