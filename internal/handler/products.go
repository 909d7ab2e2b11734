package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/avrebrov/store-api/internal/config"
	"github.com/avrebrov/store-api/internal/domain"
	"github.com/avrebrov/store-api/internal/observability"
	"github.com/avrebrov/store-api/internal/pkg/retry"
)

type productCreatePayload struct {
	Operation string `json:"operation"`
	domain.ProductCreate
}

type productUpdatePayload struct {
	Operation string `json:"operation"`
	ProductID string `json:"product_id"`
	domain.ProductUpdate
}

type productMarkPayload struct {
	Operation string `json:"operation"`
	ProductID string `json:"product_id"`
}

// ProductHandler consumes the product topic: create, update and
// mark_out_of_stock operations.
type ProductHandler struct {
	service     ProductService
	breaker     brk
	retryPolicy config.Retry
	logger      *zap.Logger
	metrics     observability.Metrics
}

func NewProductHandler(service ProductService, breaker brk, retryPolicy config.Retry, logger *zap.Logger, metrics observability.Metrics) *ProductHandler {
	return &ProductHandler{
		service:     service,
		breaker:     breaker,
		retryPolicy: retryPolicy,
		logger:      logger,
		metrics:     metrics,
	}
}

// Handle is called by the consumer; returning nil commits the offset.
func (h *ProductHandler) Handle(ctx context.Context, msg kafkago.Message) error {
	if err := h.breaker.Allow(); err != nil {
		h.logger.Warn("product message refused",
			zap.Error(err),
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
		)
		return fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	}

	var env envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		h.logger.Error("product message dropped, bad json",
			zap.Error(err),
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
		)
		h.metrics.ObserveConsume("product", "", 0, false)
		return nil
	}

	start := time.Now()
	var applyErr error
	err := retry.Do(ctx, h.retryPolicy, func() error {
		applyErr = h.apply(ctx, env.Operation, msg.Value)
		if applyErr != nil && terminal(applyErr) {
			// Retrying cannot change the outcome; classified below.
			return nil
		}
		return applyErr
	})

	if err != nil {
		h.breaker.Failure()
		h.metrics.ObserveConsume("product", env.Operation, elapsedMs(start), false)
		h.logger.Error("product message failed after retries",
			zap.String("operation", env.Operation),
			zap.Error(err),
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
		)
		return fmt.Errorf("apply product %s: %w", env.Operation, err)
	}

	h.breaker.Success()
	if applyErr != nil {
		h.metrics.ObserveConsume("product", env.Operation, elapsedMs(start), false)
		h.logger.Error("product message dropped",
			zap.String("operation", env.Operation),
			zap.Error(applyErr),
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
		)
		return nil
	}

	h.metrics.ObserveConsume("product", env.Operation, elapsedMs(start), true)
	h.logger.Info("product message processed",
		zap.String("operation", env.Operation),
		zap.Int("partition", msg.Partition),
		zap.Int64("offset", msg.Offset),
	)
	return nil
}

func (h *ProductHandler) apply(ctx context.Context, op string, value []byte) error {
	switch op {
	case "create":
		var p productCreatePayload
		if err := json.Unmarshal(value, &p); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
		_, err := h.service.Create(ctx, p.ProductCreate)
		return err
	case "update":
		var p productUpdatePayload
		if err := json.Unmarshal(value, &p); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
		if p.ProductID == "" {
			return fmt.Errorf("%w: missing product_id", domain.ErrValidation)
		}
		_, err := h.service.Update(ctx, p.ProductID, p.ProductUpdate)
		return err
	case "mark_out_of_stock":
		var p productMarkPayload
		if err := json.Unmarshal(value, &p); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
		if p.ProductID == "" {
			return fmt.Errorf("%w: missing product_id", domain.ErrValidation)
		}
		_, err := h.service.MarkOutOfStock(ctx, p.ProductID)
		return err
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnknownOperation, op)
	}
}
