package kafka

import (
	"context"
	"errors"
	"strings"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/avrebrov/store-api/internal/config"
)

// MessageHandler decides the fate of a fetched message. A nil return
// commits the offset. An error keeps the offset uncommitted and the
// consumer redelivers the message until the handler accepts it.
type MessageHandler interface {
	Handle(ctx context.Context, msg kafkago.Message) error
}

// Reader is the part of kafka-go's Reader the consumer uses.
type Reader interface {
	Config() kafkago.ReaderConfig
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
}

// NewReader builds a group reader for one topic.
func NewReader(cfg config.Kafka, topic string) *kafkago.Reader {
	return kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.Group,
		Topic:       topic,
		StartOffset: kafkago.LastOffset,
		MaxWait:     500 * time.Millisecond,
	})
}

type Consumer struct {
	handler MessageHandler
	reader  Reader
	logger  *zap.Logger

	workers int
	jobs    chan job

	idleBackoff  time.Duration
	fetchBackoff time.Duration
	retryBackoff time.Duration
}

type job struct {
	msg    kafkago.Message
	result chan error
}

func NewConsumer(handler MessageHandler, reader Reader, workers int, logger *zap.Logger) *Consumer {
	if workers < 1 {
		workers = 1
	}
	return &Consumer{
		handler:      handler,
		reader:       reader,
		logger:       logger,
		workers:      workers,
		jobs:         make(chan job, workers*2),
		idleBackoff:  10 * time.Second,
		fetchBackoff: 500 * time.Millisecond,
		retryBackoff: 200 * time.Millisecond,
	}
}

// Start blocks until ctx is done. Offsets are committed in fetch order:
// the loop hands each message to a worker and waits for the verdict
// before fetching the next one, so a commit never jumps past an
// unprocessed message.
func (c *Consumer) Start(ctx context.Context) {
	rc := c.reader.Config()
	c.logger.Info("starting consumer",
		zap.Strings("brokers", rc.Brokers),
		zap.String("group", rc.GroupID),
		zap.String("topic", rc.Topic),
		zap.Int("workers", c.workers),
	)

	for i := 0; i < c.workers; i++ {
		go c.worker(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			if isBenignFetchTimeout(err) {
				c.logger.Debug("fetch timed out on an idle topic", zap.Error(err))
				sleepWithContext(ctx, c.idleBackoff)
				continue
			}
			// Rebalances and coordinator moves show up here; wait them out.
			c.logger.Warn("fetch failed, backing off", zap.Error(err))
			sleepWithContext(ctx, c.fetchBackoff)
			continue
		}

		// The handler classifies failures itself: malformed or unknown
		// messages come back as nil (dropped), so an error here means a
		// dependency is down. The message is redelivered until it clears
		// rather than being buried by a later commit.
		for {
			procErr := c.dispatch(ctx, msg)
			if procErr == nil {
				break
			}
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("handling failed, offset stays uncommitted",
				zap.Error(procErr),
				zap.String("topic", msg.Topic),
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
			)
			sleepWithContext(ctx, c.retryBackoff)
		}
		if ctx.Err() != nil {
			return
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Warn("commit failed",
				zap.Error(err),
				zap.String("topic", msg.Topic),
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
			)
			sleepWithContext(ctx, c.retryBackoff)
			continue
		}
		c.logger.Debug("message committed",
			zap.String("topic", msg.Topic),
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
		)
	}
}

// dispatch hands the message to a worker and waits for its result.
func (c *Consumer) dispatch(ctx context.Context, msg kafkago.Message) error {
	done := make(chan error, 1)
	select {
	case c.jobs <- job{msg: msg, result: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Consumer) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case it := <-c.jobs:
			if it.result == nil {
				continue
			}

			start := time.Now()
			err := c.handler.Handle(ctx, it.msg)
			if err != nil {
				it.result <- err
				continue
			}

			c.logger.Debug("message handled",
				zap.String("topic", it.msg.Topic),
				zap.Int("partition", it.msg.Partition),
				zap.Int64("offset", it.msg.Offset),
				zap.Int("value_bytes", len(it.msg.Value)),
				zap.Duration("elapsed", time.Since(start)),
			)
			it.result <- nil
		}
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func isBenignFetchTimeout(err error) bool {
	s := err.Error()
	return strings.Contains(s, "Request Timed Out") ||
		strings.Contains(s, "no messages received from kafka within the allocated time")
}
