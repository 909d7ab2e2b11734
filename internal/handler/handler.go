// Package handler turns queue messages into service calls. Each topic has
// its own handler; both share the failure policy: malformed, invalid or
// unresolvable messages are logged and dropped (the offset commits), while
// dependency failures are retried and, if still failing, handed back to the
// consumer uncommitted.
package handler

import (
	"context"
	"errors"
	"time"

	"github.com/avrebrov/store-api/internal/domain"
)

//go:generate mockgen -source=handler.go -destination=handler_mock_test.go -package=handler

var ErrCircuitOpen = errors.New("circuit breaker open")

// OrderService applies order mutations from the order topic.
type OrderService interface {
	Create(ctx context.Context, in domain.OrderCreate) (*domain.Order, error)
	Update(ctx context.Context, id string, upd domain.OrderUpdate) (*domain.Order, error)
}

// ProductService applies product mutations from the product topic.
type ProductService interface {
	Create(ctx context.Context, in domain.ProductCreate) (*domain.Product, error)
	Update(ctx context.Context, id string, upd domain.ProductUpdate) (*domain.Product, error)
	MarkOutOfStock(ctx context.Context, id string) (*domain.Product, error)
}

type brk interface {
	Allow() error
	Success()
	Failure()
}

// envelope carries the operation discriminator; the rest of the payload is
// decoded per operation.
type envelope struct {
	Operation string `json:"operation"`
}

// terminal reports whether redelivering the message could ever change the
// outcome. Terminal failures are dropped, everything else is worth a retry.
func terminal(err error) bool {
	return errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrAlreadyExists) ||
		errors.Is(err, domain.ErrUnknownOperation)
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
