package inbox

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/salonbook/salonbook/libs/kafkax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRepository(mock, "notification-service")
	meta := kafkax.EventMeta{EventID: "evt-1", EventType: "booking.appointment.created.v1"}

	mock.ExpectExec("INSERT INTO inbox_events").
		WithArgs("notification-service", "evt-1", "booking.appointment.created.v1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO inbox_events").
		WithArgs("notification-service", "evt-1", "booking.appointment.created.v1").
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectExec("INSERT INTO inbox_events").
		WithArgs("notification-service", "evt-1", "booking.appointment.created.v1").
		WillReturnError(errors.New("connection reset"))

	ok, err := repo.Record(context.Background(), meta)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Record(context.Background(), meta)
	require.NoError(t, err)
	assert.False(t, ok, "duplicate delivery")

	_, err = repo.Record(context.Background(), meta)
	assert.Error(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestForget(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM inbox_events").
		WithArgs("notification-service", "evt-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, NewRepository(mock, "notification-service").Forget(context.Background(), "evt-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
