package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avrebrov/store-api/internal/domain"
)

var userColumns = []string{"id", "username", "email", "description", "created_at", "updated_at"}

type UserRepo struct {
	pool *pgxpool.Pool
	sq   squirrel.StatementBuilderType
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{
		pool: pool,
		sq:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *UserRepo) Create(ctx context.Context, user *domain.User) error {
	const op = "database.user.Create"

	now := time.Now().UTC()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now

	sql, args, err := r.sq.Insert("users").
		Columns(userColumns...).
		Values(user.ID, user.Username, user.Email, user.Description, user.CreatedAt, user.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: build query: %w", op, err)
	}
	if _, err := r.pool.Exec(ctx, sql, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", op, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("%s: insert: %w", op, err)
	}
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	const op = "database.user.GetByID"

	sql, args, err := r.sq.Select(userColumns...).
		From("users").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: build query: %w", op, err)
	}

	var u domain.User
	err = r.pool.QueryRow(ctx, sql, args...).
		Scan(&u.ID, &u.Username, &u.Email, &u.Description, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: query: %w", op, err)
	}
	return &u, nil
}

// List applies the filter's substring matches case-insensitively and orders
// by (created_at, id) so pages never overlap.
func (r *UserRepo) List(ctx context.Context, filter domain.UserFilter) ([]domain.User, error) {
	const op = "database.user.List"

	q := r.sq.Select(userColumns...).
		From("users").
		OrderBy("created_at", "id").
		Limit(filter.Page.Limit()).
		Offset(filter.Page.Offset())
	if filter.Username != "" {
		q = q.Where(squirrel.ILike{"username": "%" + filter.Username + "%"})
	}
	if filter.Email != "" {
		q = q.Where(squirrel.ILike{"email": "%" + filter.Email + "%"})
	}
	if filter.Description != "" {
		q = q.Where(squirrel.ILike{"description": "%" + filter.Description + "%"})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: build query: %w", op, err)
	}
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: query: %w", op, err)
	}
	defer rows.Close()

	users := make([]domain.User, 0, filter.Page.Count)
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.Description, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepo) Update(ctx context.Context, id string, upd domain.UserUpdate) (*domain.User, error) {
	const op = "database.user.Update"

	sql, args, err := r.sq.Update("users").
		Set("username", upd.Username).
		Set("email", upd.Email).
		Set("description", upd.Description).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING id, username, email, description, created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: build query: %w", op, err)
	}

	var u domain.User
	err = r.pool.QueryRow(ctx, sql, args...).
		Scan(&u.ID, &u.Username, &u.Email, &u.Description, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%s: %w", op, domain.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("%s: update: %w", op, err)
	}
	return &u, nil
}

// Delete is idempotent: removing an absent id is not an error.
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	const op = "database.user.Delete"

	sql, args, err := r.sq.Delete("users").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: build query: %w", op, err)
	}
	if _, err := r.pool.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("%s: delete: %w", op, err)
	}
	return nil
}

func (r *UserRepo) RecentIDs(ctx context.Context, limit int) ([]string, error) {
	const op = "database.user.RecentIDs"

	sql, args, err := r.sq.Select("id").
		From("users").
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: build query: %w", op, err)
	}
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: query: %w", op, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
