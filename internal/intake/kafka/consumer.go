package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/smallbiznis/nbaflow/internal/config"
	intakedomain "github.com/smallbiznis/nbaflow/internal/intake/domain"
	"github.com/smallbiznis/nbaflow/internal/queue"
	"github.com/smallbiznis/nbaflow/pkg/telemetry/correlation"
	"go.uber.org/zap"
)

const retryBackoff = 500 * time.Millisecond

// Reader is the subset of *kafkago.Reader the consumer needs.
type Reader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Consumer feeds calculation events from a topic into intake. Invalid
// messages are logged and committed; backpressure errors are retried until
// the context ends.
type Consumer struct {
	reader Reader
	intake intakedomain.Service
	log    *zap.Logger
	topic  string
}

func NewReader(cfg config.KafkaConfig) *kafkago.Reader {
	return kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10 * 1024 * 1024,
	})
}

func NewConsumer(reader Reader, intake intakedomain.Service, topic string, log *zap.Logger) *Consumer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Consumer{
		reader: reader,
		intake: intake,
		log:    log.Named("intake.kafka"),
		topic:  topic,
	}
}

// Start blocks until ctx is cancelled or the reader fails.
func (c *Consumer) Start(ctx context.Context) error {
	c.log.Info("kafka consumer starting", zap.String("topic", c.topic))

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				c.log.Info("kafka consumer stopping")
				return nil
			}
			return fmt.Errorf("fetching message: %w", err)
		}

		if err := c.handleWithRetry(ctx, msg); err != nil {
			return nil
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.log.Error("kafka commit failed",
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
		}
	}
}

func (c *Consumer) Close() error {
	if err := c.reader.Close(); err != nil {
		return fmt.Errorf("closing kafka reader: %w", err)
	}
	return nil
}

// handleWithRetry returns an error when the message must stay uncommitted:
// ctx ended or the queue closed before it was settled.
func (c *Consumer) handleWithRetry(ctx context.Context, msg kafkago.Message) error {
	for {
		err := c.handle(ctx, msg)
		if errors.Is(err, queue.ErrQueueClosed) {
			return err
		}
		if err == nil || !retryable(err) {
			return nil
		}

		c.log.Warn("kafka message deferred",
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryBackoff):
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafkago.Message) error {
	ctx = correlation.ContextWithCorrelationID(ctx, headerValue(msg.Headers, correlation.HeaderName))

	var req intakedomain.CalculationEventRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		c.log.Warn("kafka message rejected",
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
			zap.String("reason", "invalid_json"),
		)
		return nil
	}
	req.Transport = intakedomain.TransportKafka

	if _, err := c.intake.Submit(ctx, req); err != nil {
		if retryable(err) || errors.Is(err, queue.ErrQueueClosed) {
			return err
		}
		c.log.Warn("kafka message rejected",
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
			zap.String("event_id", req.EventID),
			zap.String("reason", err.Error()),
		)
	}
	return nil
}

func retryable(err error) bool {
	return errors.Is(err, queue.ErrQueueFull) ||
		errors.Is(err, intakedomain.ErrRateLimited) ||
		errors.Is(err, intakedomain.ErrRateLimitUnavailable)
}

func headerValue(headers []kafkago.Header, key string) string {
	for _, h := range headers {
		if strings.EqualFold(h.Key, key) {
			return strings.TrimSpace(string(h.Value))
		}
	}
	return ""
}
