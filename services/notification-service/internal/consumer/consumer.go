package consumer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/salonbook/salonbook/libs/kafkax"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Handler func(ctx context.Context, msg kafka.Message) error

// Reader is the subset of *kafka.Reader the consumer uses.
type Reader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Inbox dedupes deliveries by event id.
type Inbox interface {
	Record(ctx context.Context, meta kafkax.EventMeta) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

type Consumer struct {
	reader  Reader
	logger  *slog.Logger
	inbox   Inbox
	handler Handler
	backoff time.Duration
}

func New(logger *slog.Logger, reader Reader, inbox Inbox, handler Handler) *Consumer {
	return &Consumer{
		reader:  reader,
		logger:  logger,
		inbox:   inbox,
		handler: handler,
		backoff: time.Second,
	}
}

// Run reads until ctx is cancelled or the reader is closed.
func (c *Consumer) Run(ctx context.Context) {
	defer c.reader.Close()

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return
			}
			c.logger.Error("kafka read error", "err", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.backoff):
			}
			continue
		}
		c.process(ctx, msg)
	}
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) {
	meta := kafkax.ExtractEventMeta(msg)

	ctxMsg := kafkax.ExtractTraceContext(ctx, msg)
	ctxSpan, span := otel.Tracer("kafka").Start(ctxMsg, "kafka.consume",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
			attribute.String("messaging.message_id", meta.EventID),
		),
	)
	defer span.End()

	ok, err := c.inbox.Record(ctxSpan, meta)
	if err != nil {
		c.logger.Error("inbox record failed", "err", err, "event_id", meta.EventID)
		span.RecordError(err)
		return
	}
	if !ok {
		c.logger.Info("duplicate event ignored", "event_id", meta.EventID, "event_type", meta.EventType)
		return
	}

	if err := c.handler(ctxSpan, msg); err != nil {
		c.logger.Error("handler error", "err", err, "event_id", meta.EventID, "event_type", meta.EventType)
		span.RecordError(err)
		if err := c.inbox.Forget(ctxSpan, meta.EventID); err != nil {
			c.logger.Error("inbox release failed", "err", err, "event_id", meta.EventID)
		}
	}
}
