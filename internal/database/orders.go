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

var (
	orderColumns = []string{"id", "user_id", "delivery_address_id", "created_at", "updated_at"}
	itemColumns  = []string{"id", "order_id", "product_id", "quantity", "created_at"}
)

type OrderRepo struct {
	pool *pgxpool.Pool
	sq   squirrel.StatementBuilderType
}

func NewOrderRepo(pool *pgxpool.Pool) *OrderRepo {
	return &OrderRepo{
		pool: pool,
		sq:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts the order with its items and decrements each product's
// stock in one transaction. A missing user or product maps to ErrNotFound;
// insufficient stock maps to ErrValidation.
func (r *OrderRepo) Create(ctx context.Context, order *domain.Order) error {
	const op = "database.order.Create"

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op, err)
	}
	defer tx.Rollback(ctx)

	var one int
	err = tx.QueryRow(ctx, `SELECT 1 FROM users WHERE id = $1`, order.UserID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: user %s: %w", op, order.UserID, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("%s: check user: %w", op, err)
	}

	now := time.Now().UTC()
	order.ID = uuid.NewString()
	order.CreatedAt = now
	order.UpdatedAt = now

	sql, args, err := r.sq.Insert("orders").
		Columns(orderColumns...).
		Values(order.ID, order.UserID, order.DeliveryAddressID, order.CreatedAt, order.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: build order insert: %w", op, err)
	}
	if _, err := tx.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("%s: insert order: %w", op, err)
	}

	for i := range order.Items {
		it := &order.Items[i]
		it.ID = uuid.NewString()
		it.OrderID = order.ID
		it.CreatedAt = now

		if err := r.decrementStock(ctx, tx, it.ProductID, it.Quantity, now); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	batch := &pgx.Batch{}
	for _, it := range order.Items {
		sql, args, err := r.sq.Insert("order_items").
			Columns(itemColumns...).
			Values(it.ID, it.OrderID, it.ProductID, it.Quantity, it.CreatedAt).
			ToSql()
		if err != nil {
			return fmt.Errorf("%s: build item insert: %w", op, err)
		}
		batch.Queue(sql, args...)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("%s: insert items: %w", op, err)
		}
	}

	return tx.Commit(ctx)
}

// decrementStock only succeeds when the product holds enough stock; the
// guard in WHERE keeps concurrent orders from overselling.
func (r *OrderRepo) decrementStock(ctx context.Context, tx pgx.Tx, productID string, qty int, now time.Time) error {
	sql, args, err := r.sq.Update("products").
		Set("stock_quantity", squirrel.Expr("stock_quantity - ?", qty)).
		Set("updated_at", now).
		Where(squirrel.And{
			squirrel.Eq{"id": productID},
			squirrel.GtOrEq{"stock_quantity": qty},
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build stock update: %w", err)
	}

	tag, err := tx.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var stock int
	err = tx.QueryRow(ctx, `SELECT stock_quantity FROM products WHERE id = $1`, productID).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("product %s: %w", productID, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("check product: %w", err)
	}
	return fmt.Errorf("%w: insufficient stock for product %s (%d left, %d requested)",
		domain.ErrValidation, productID, stock, qty)
}

func (r *OrderRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	const op = "database.order.GetByID"

	sql, args, err := r.sq.Select(orderColumns...).
		From("orders").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: build query: %w", op, err)
	}

	var o domain.Order
	err = r.pool.QueryRow(ctx, sql, args...).
		Scan(&o.ID, &o.UserID, &o.DeliveryAddressID, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: query: %w", op, err)
	}

	items, err := r.itemsFor(ctx, []string{o.ID})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	o.Items = items[o.ID]
	return &o, nil
}

// List pages orders by (created_at, id) and hydrates items for the whole
// page with a single ANY($1) query.
func (r *OrderRepo) List(ctx context.Context, page domain.Page) ([]domain.Order, error) {
	const op = "database.order.List"

	sql, args, err := r.sq.Select(orderColumns...).
		From("orders").
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

	orders := make([]domain.Order, 0, page.Count)
	ids := make([]string, 0, page.Count)
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.DeliveryAddressID, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		orders = append(orders, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	items, err := r.itemsFor(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return orders, nil
}

func (r *OrderRepo) Update(ctx context.Context, id string, upd domain.OrderUpdate) (*domain.Order, error) {
	const op = "database.order.Update"

	q := r.sq.Update("orders").
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING id, user_id, delivery_address_id, created_at, updated_at")
	if upd.DeliveryAddressID != nil {
		q = q.Set("delivery_address_id", *upd.DeliveryAddressID)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: build query: %w", op, err)
	}

	var o domain.Order
	err = r.pool.QueryRow(ctx, sql, args...).
		Scan(&o.ID, &o.UserID, &o.DeliveryAddressID, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: update: %w", op, err)
	}

	items, err := r.itemsFor(ctx, []string{o.ID})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	o.Items = items[o.ID]
	return &o, nil
}

func (r *OrderRepo) itemsFor(ctx context.Context, orderIDs []string) (map[string][]domain.OrderItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, product_id, quantity, created_at
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY created_at, id
	`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	items := make(map[string][]domain.OrderItem, len(orderIDs))
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items[it.OrderID] = append(items[it.OrderID], it)
	}
	return items, rows.Err()
}
