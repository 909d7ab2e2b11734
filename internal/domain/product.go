package domain

import "time"

// Product is read-only over HTTP; all mutations arrive on the product queue.
// StockQuantity == 0 means out of stock.
type Product struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   *string   `json:"description"`
	Price         float64   `json:"price"`
	StockQuantity int       `json:"stock_quantity"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (p Product) InStock() bool { return p.StockQuantity > 0 }

type ProductCreate struct {
	Name          string   `json:"name" validate:"required"`
	Description   *string  `json:"description"`
	Price         *float64 `json:"price" validate:"required,gte=0"`
	StockQuantity int      `json:"stock_quantity" validate:"gte=0"`
}

// ProductUpdate applies only the fields that are set.
type ProductUpdate struct {
	Name          *string  `json:"name" validate:"omitempty,min=1"`
	Description   *string  `json:"description"`
	Price         *float64 `json:"price" validate:"omitempty,gte=0"`
	StockQuantity *int     `json:"stock_quantity" validate:"omitempty,gte=0"`
}
