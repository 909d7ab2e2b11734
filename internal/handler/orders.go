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

type orderCreatePayload struct {
	Operation string `json:"operation"`
	domain.OrderCreate
}

type orderUpdatePayload struct {
	Operation string `json:"operation"`
	OrderID   string `json:"order_id"`
	domain.OrderUpdate
}

// OrderHandler consumes the order topic: create and update operations.
type OrderHandler struct {
	service     OrderService
	breaker     brk
	retryPolicy config.Retry
	logger      *zap.Logger
	metrics     observability.Metrics
}

func NewOrderHandler(service OrderService, breaker brk, retryPolicy config.Retry, logger *zap.Logger, metrics observability.Metrics) *OrderHandler {
	return &OrderHandler{
		service:     service,
		breaker:     breaker,
		retryPolicy: retryPolicy,
		logger:      logger,
		metrics:     metrics,
	}
}

// Handle is called by the consumer; returning nil commits the offset.
func (h *OrderHandler) Handle(ctx context.Context, msg kafkago.Message) error {
	if err := h.breaker.Allow(); err != nil {
		h.logger.Warn("order message refused",
			zap.Error(err),
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
		)
		return fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	}

	var env envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		h.logger.Error("order message dropped, bad json",
			zap.Error(err),
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
		)
		h.metrics.ObserveConsume("order", "", 0, false)
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
		h.metrics.ObserveConsume("order", env.Operation, elapsedMs(start), false)
		h.logger.Error("order message failed after retries",
			zap.String("operation", env.Operation),
			zap.Error(err),
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
		)
		return fmt.Errorf("apply order %s: %w", env.Operation, err)
	}

	h.breaker.Success()
	if applyErr != nil {
		h.metrics.ObserveConsume("order", env.Operation, elapsedMs(start), false)
		h.logger.Error("order message dropped",
			zap.String("operation", env.Operation),
			zap.Error(applyErr),
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
		)
		return nil
	}

	h.metrics.ObserveConsume("order", env.Operation, elapsedMs(start), true)
	h.logger.Info("order message processed",
		zap.String("operation", env.Operation),
		zap.Int("partition", msg.Partition),
		zap.Int64("offset", msg.Offset),
	)
	return nil
}

func (h *OrderHandler) apply(ctx context.Context, op string, value []byte) error {
	switch op {
	case "create":
		var p orderCreatePayload
		if err := json.Unmarshal(value, &p); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
		_, err := h.service.Create(ctx, p.OrderCreate)
		return err
	case "update":
		var p orderUpdatePayload
		if err := json.Unmarshal(value, &p); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
		if p.OrderID == "" {
			return fmt.Errorf("%w: missing order_id", domain.ErrValidation)
		}
		_, err := h.service.Update(ctx, p.OrderID, p.OrderUpdate)
		return err
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnknownOperation, op)
	}
}
