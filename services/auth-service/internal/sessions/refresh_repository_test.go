package sessions

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/salonbook/salonbook/libs/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var refreshCols = []string{"id", "subject", "tenant_id", "role", "customer_id", "expires_at", "revoked_at"}

func TestRotateIssuesReplacement(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewRefreshRepository(mock)
	now := time.Now()
	customerID := "c-1"

	mock.ExpectBegin()
	mock.ExpectQuery("FROM refresh_tokens").WithArgs(HashToken("old")).WillReturnRows(
		pgxmock.NewRows(refreshCols).AddRow("r-1", "c-1", "t-1", "customer", &customerID, now.Add(time.Hour), (*time.Time)(nil)),
	)
	mock.ExpectExec("UPDATE refresh_tokens SET revoked_at").WithArgs("r-1", now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO refresh_tokens").
		WithArgs(pgxmock.AnyArg(), "c-1", "t-1", "customer", pgxmock.AnyArg(), now.Add(24*time.Hour)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	tok, next, err := repo.Rotate(context.Background(), "old", now, now.Add(24*time.Hour))
	require.NoError(t, err)
	assert.NotEmpty(t, next)
	assert.NotEqual(t, "old", next)
	assert.Equal(t, "c-1", tok.CustomerID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRotateExpired(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewRefreshRepository(mock)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM refresh_tokens").WithArgs(HashToken("old")).WillReturnRows(
		pgxmock.NewRows(refreshCols).AddRow("r-1", "u-1", "t-1", "owner", (*string)(nil), now.Add(-time.Second), (*time.Time)(nil)),
	)
	mock.ExpectRollback()

	_, _, err = repo.Rotate(context.Background(), "old", now, now.Add(time.Hour))
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHashTokenIsStable(t *testing.T) {
	assert.Equal(t, HashToken("abc"), HashToken("abc"))
	assert.Len(t, HashToken("abc"), 64)
}
