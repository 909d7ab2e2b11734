package domain

import "time"

// Order is read-only over HTTP; all mutations arrive on the order queue.
type Order struct {
	ID                string      `json:"id"`
	UserID            string      `json:"user_id"`
	DeliveryAddressID string      `json:"delivery_address_id"`
	Items             []OrderItem `json:"items"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

type OrderItem struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"order_id"`
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
}

type OrderCreate struct {
	UserID            string            `json:"user_id" validate:"required"`
	DeliveryAddressID string            `json:"delivery_address_id" validate:"required"`
	Items             []OrderItemCreate `json:"items" validate:"dive"`
}

type OrderItemCreate struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gte=0"`
}

type OrderUpdate struct {
	DeliveryAddressID *string `json:"delivery_address_id" validate:"omitempty,min=1"`
}
