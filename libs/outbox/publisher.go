package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/salonbook/salonbook/libs/db"
	"github.com/salonbook/salonbook/libs/kafkax"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Publisher struct {
	conn      db.Conn
	repo      *Repository
	writer    MessageWriter
	logger    *slog.Logger
	pollEvery time.Duration
	batchSize int
	published prometheus.Counter
	failures  prometheus.Counter
}

type PublisherConfig struct {
	PollEvery time.Duration
	BatchSize int
	// Registerer is optional.
	Registerer prometheus.Registerer
}

func NewPublisher(conn db.Conn, repo *Repository, writer MessageWriter, logger *slog.Logger, cfg PublisherConfig) *Publisher {
	if cfg.PollEvery <= 0 {
		cfg.PollEvery = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	p := &Publisher{
		conn:      conn,
		repo:      repo,
		writer:    writer,
		logger:    logger,
		pollEvery: cfg.PollEvery,
		batchSize: cfg.BatchSize,
		published: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "salonbook",
			Name:      "outbox_published_total",
			Help:      "Outbox events written to Kafka.",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "salonbook",
			Name:      "outbox_publish_failures_total",
			Help:      "Outbox batches that failed to publish.",
		}),
	}
	if cfg.Registerer != nil {
		cfg.Registerer.MustRegister(p.published, p.failures)
	}
	return p
}

func (p *Publisher) Run(ctx context.Context) {
	if p.writer == nil {
		p.logger.Warn("outbox publisher disabled (no kafka brokers configured)")
		return
	}

	ticker := time.NewTicker(p.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.PublishBatch(ctx); err != nil {
				p.failures.Inc()
				p.logger.Error("outbox publish failed", "err", err)
			}
		}
	}
}

// PublishBatch sends one batch and returns how many events went out.
// Rows stay locked until commit so concurrent publishers skip them.
func (p *Publisher) PublishBatch(ctx context.Context) (int, error) {
	var n int
	err := db.InTx(ctx, p.conn, func(tx pgx.Tx) error {
		records, err := p.repo.FetchUnpublished(ctx, tx, p.batchSize)
		if err != nil || len(records) == 0 {
			return err
		}

		msgs := make([]kafka.Message, 0, len(records))
		ids := make([]int64, 0, len(records))
		for _, r := range records {
			msgCtx := r.Trace.Context(ctx)
			meta := kafkax.EventMeta{EventID: r.EventID, EventType: r.EventType, TenantID: r.TenantID}
			msgs = append(msgs, kafka.Message{
				Topic:   r.EventType,
				Key:     []byte(r.AggregateID),
				Value:   r.Payload,
				Headers: kafkax.InjectTraceHeaders(msgCtx, meta.Headers()),
			})
			ids = append(ids, r.ID)
		}
		if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
			return err
		}
		if err := p.repo.MarkPublished(ctx, tx, ids); err != nil {
			return err
		}
		n = len(records)
		return nil
	})
	if err != nil {
		return 0, err
	}
	p.published.Add(float64(n))
	return n, nil
}
