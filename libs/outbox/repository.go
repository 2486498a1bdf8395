package outbox

import (
	"context"
	"time"

	"github.com/salonbook/salonbook/libs/db"
	otelx "github.com/salonbook/salonbook/libs/otel"
)

type Repository struct{}

func NewRepository() *Repository {
	return &Repository{}
}

// Insert must run on the same transaction as the state change it describes.
func (r *Repository) Insert(ctx context.Context, q db.Querier, evt Event) error {
	trace := otelx.CaptureTrace(ctx)
	_, err := q.Exec(ctx, `
		INSERT INTO outbox_events (aggregate_type, aggregate_id, tenant_id, event_type, payload, traceparent, tracestate)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, evt.AggregateType, evt.AggregateID, evt.TenantID, evt.EventType, evt.Payload, trace.Traceparent, trace.Tracestate)
	return err
}

type Record struct {
	ID            int64
	EventID       string
	AggregateType string
	AggregateID   string
	TenantID      string
	EventType     string
	Payload       []byte
	Trace         otelx.TraceHeaders
	CreatedAt     time.Time
}

func (r *Repository) FetchUnpublished(ctx context.Context, q db.Querier, limit int) ([]Record, error) {
	rows, err := q.Query(ctx, `
		SELECT id, event_id::text, aggregate_type, aggregate_id, tenant_id, event_type, payload, traceparent, tracestate, created_at
		FROM outbox_events
		WHERE published_at IS NULL
		ORDER BY id
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rcd Record
		if err := rows.Scan(&rcd.ID, &rcd.EventID, &rcd.AggregateType, &rcd.AggregateID, &rcd.TenantID,
			&rcd.EventType, &rcd.Payload, &rcd.Trace.Traceparent, &rcd.Trace.Tracestate, &rcd.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rcd)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

func (r *Repository) MarkPublished(ctx context.Context, q db.Querier, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := q.Exec(ctx, `
		UPDATE outbox_events
		SET published_at = now()
		WHERE id = ANY($1)
	`, ids)
	return err
}
