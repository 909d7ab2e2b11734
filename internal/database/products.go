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

var productColumns = []string{"id", "name", "description", "price", "stock_quantity", "created_at", "updated_at"}

type ProductRepo struct {
	pool *pgxpool.Pool
	sq   squirrel.StatementBuilderType
}

func NewProductRepo(pool *pgxpool.Pool) *ProductRepo {
	return &ProductRepo{
		pool: pool,
		sq:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *ProductRepo) Create(ctx context.Context, product *domain.Product) error {
	const op = "database.product.Create"

	now := time.Now().UTC()
	product.ID = uuid.NewString()
	product.CreatedAt = now
	product.UpdatedAt = now

	sql, args, err := r.sq.Insert("products").
		Columns(productColumns...).
		Values(product.ID, product.Name, product.Description, product.Price,
			product.StockQuantity, product.CreatedAt, product.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: build query: %w", op, err)
	}
	if _, err := r.pool.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("%s: insert: %w", op, err)
	}
	return nil
}

func (r *ProductRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	const op = "database.product.GetByID"

	sql, args, err := r.sq.Select(productColumns...).
		From("products").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: build query: %w", op, err)
	}

	var p domain.Product
	err = r.pool.QueryRow(ctx, sql, args...).
		Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.StockQuantity, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: query: %w", op, err)
	}
	return &p, nil
}

func (r *ProductRepo) List(ctx context.Context, page domain.Page) ([]domain.Product, error) {
	const op = "database.product.List"

	sql, args, err := r.sq.Select(productColumns...).
		From("products").
		OrderBy("created_at", "id").
		Limit(page.Limit()).
		Offset(page.Offset()).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: build query: %w", op, err)
	}
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: query: %w", op, err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0, page.Count)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.StockQuantity, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *ProductRepo) Update(ctx context.Context, id string, upd domain.ProductUpdate) (*domain.Product, error) {
	const op = "database.product.Update"

	q := r.sq.Update("products").
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING id, name, description, price, stock_quantity, created_at, updated_at")
	if upd.Name != nil {
		q = q.Set("name", *upd.Name)
	}
	if upd.Description != nil {
		q = q.Set("description", *upd.Description)
	}
	if upd.Price != nil {
		q = q.Set("price", *upd.Price)
	}
	if upd.StockQuantity != nil {
		q = q.Set("stock_quantity", *upd.StockQuantity)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: build query: %w", op, err)
	}

	var p domain.Product
	err = r.pool.QueryRow(ctx, sql, args...).
		Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.StockQuantity, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: update: %w", op, err)
	}
	return &p, nil
}

func (r *ProductRepo) RecentIDs(ctx context.Context, limit int) ([]string, error) {
	const op = "database.product.RecentIDs"

	sql, args, err := r.sq.Select("id").
		From("products").
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
