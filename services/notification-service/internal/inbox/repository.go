// Package inbox records which events a consumer has already handled, so a
// redelivered Kafka message is processed at most once.
package inbox

import (
	"context"

	"github.com/salonbook/salonbook/libs/db"
	"github.com/salonbook/salonbook/libs/kafkax"
)

type Repository struct {
	q        db.Querier
	consumer string
}

func NewRepository(q db.Querier, consumer string) *Repository {
	return &Repository{q: q, consumer: consumer}
}

// Record claims meta.EventID for this consumer. It reports false when the
// event was already recorded.
func (r *Repository) Record(ctx context.Context, meta kafkax.EventMeta) (bool, error) {
	_, err := r.q.Exec(ctx, `
		INSERT INTO inbox_events (consumer, event_id, event_type)
		VALUES ($1, $2, $3)
	`, r.consumer, meta.EventID, meta.EventType)
	if err == nil {
		return true, nil
	}
	if db.IsUniqueViolation(err) {
		return false, nil
	}
	return false, err
}

// Forget releases a claim so a later redelivery is handled again.
func (r *Repository) Forget(ctx context.Context, eventID string) error {
	_, err := r.q.Exec(ctx, `DELETE FROM inbox_events WHERE consumer = $1 AND event_id = $2`, r.consumer, eventID)
	return err
}
