package domain

import (
	"context"
)

type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	List(ctx context.Context, filter UserFilter) ([]User, error)
	Update(ctx context.Context, id string, upd UserUpdate) (*User, error)
	Delete(ctx context.Context, id string) error
	RecentIDs(ctx context.Context, limit int) ([]string, error)
}

type ProductRepository interface {
	Create(ctx context.Context, product *Product) error
	GetByID(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context, page Page) ([]Product, error)
	Update(ctx context.Context, id string, upd ProductUpdate) (*Product, error)
	RecentIDs(ctx context.Context, limit int) ([]string, error)
}

// OrderRepository.Create inserts the order with its items and decrements
// the stock of every referenced product in a single transaction.
type OrderRepository interface {
	Create(ctx context.Context, order *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context, page Page) ([]Order, error)
	Update(ctx context.Context, id string, upd OrderUpdate) (*Order, error)
}
