package outbox

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/salonbook/salonbook/libs/kafkax"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func outboxRows() *pgxmock.Rows {
	now := time.Now()
	return pgxmock.NewRows([]string{"id", "event_id", "aggregate_type", "aggregate_id", "tenant_id", "event_type", "payload", "traceparent", "tracestate", "created_at"}).
		AddRow(int64(1), "evt-1", "appointment", "appt-1", "tenant-1", "booking.appointment.created.v1", []byte(`{"id":"appt-1"}`), "", "", now).
		AddRow(int64(2), "evt-2", "appointment", "appt-1", "tenant-1", "booking.appointment.status_changed.v1", []byte(`{"id":"appt-1"}`), "", "", now)
}

func newTestPublisher(t *testing.T, w MessageWriter) (*Publisher, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewPublisher(mock, NewRepository(), w, logger, PublisherConfig{Registerer: prometheus.NewRegistry()}), mock
}

func TestPublishBatchWritesAndMarks(t *testing.T) {
	w := &fakeWriter{}
	p, mock := newTestPublisher(t, w)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM outbox_events").WithArgs(50).WillReturnRows(outboxRows())
	mock.ExpectExec("UPDATE outbox_events").WithArgs([]int64{1, 2}).WillReturnResult(pgxmock.NewResult("UPDATE", 2))
	mock.ExpectCommit()

	n, err := p.PublishBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, w.msgs, 2)

	first := w.msgs[0]
	assert.Equal(t, "booking.appointment.created.v1", first.Topic)
	assert.Equal(t, "appt-1", string(first.Key))
	meta := kafkax.ExtractEventMeta(first)
	assert.Equal(t, "evt-1", meta.EventID)
	assert.Equal(t, "tenant-1", meta.TenantID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPublishBatchLeavesRowsOnWriteFailure(t *testing.T) {
	p, mock := newTestPublisher(t, &fakeWriter{err: errors.New("broker down")})

	mock.ExpectBegin()
	mock.ExpectQuery("FROM outbox_events").WithArgs(50).WillReturnRows(outboxRows())
	mock.ExpectRollback()

	_, err := p.PublishBatch(context.Background())
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPublishBatchEmpty(t *testing.T) {
	p, mock := newTestPublisher(t, &fakeWriter{})

	mock.ExpectBegin()
	mock.ExpectQuery("FROM outbox_events").WithArgs(50).WillReturnRows(pgxmock.NewRows([]string{"id"}))
	mock.ExpectCommit()

	n, err := p.PublishBatch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewEvent(t *testing.T) {
	evt, err := NewEvent("appointment", "appt-9", "tenant-1", "booking.appointment.deleted.v1", map[string]string{"id": "appt-9"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"appt-9"}`, string(evt.Payload))
}
