package storage

import (
	"context"
	"fmt"

	"github.com/salonbook/salonbook/libs/apperr"
	"github.com/salonbook/salonbook/libs/db"
)

// IdempotencyRecord is a stored response for a replayed Idempotency-Key.
type IdempotencyRecord struct {
	RequestHash    string
	AppointmentID  string
	ResponseStatus int
	ResponseBody   []byte
}

// Complete reports whether a response has already been stored.
func (r IdempotencyRecord) Complete() bool {
	return r.ResponseStatus > 0
}

// LockIdempotencyKey claims key for the transaction. The first caller inserts
// the row; later callers block on the row lock and then see what the first
// one stored. A key reused with a different request body is a conflict.
func (r *BookingRepository) LockIdempotencyKey(ctx context.Context, q db.Querier, tenantID, key, requestHash string) (IdempotencyRecord, bool, error) {
	tag, err := q.Exec(ctx, `
		INSERT INTO booking_idempotency_keys (tenant_id, idempotency_key, request_hash)
		VALUES ($1, $2, $3)
		ON CONFLICT (tenant_id, idempotency_key) DO NOTHING
	`, tenantID, key, requestHash)
	if err != nil {
		return IdempotencyRecord{}, false, apperr.Unexpected(fmt.Errorf("claim idempotency key: %w", err))
	}
	if tag.RowsAffected() == 1 {
		return IdempotencyRecord{RequestHash: requestHash}, false, nil
	}

	var (
		rec    IdempotencyRecord
		apptID *string
		status *int
	)
	err = q.QueryRow(ctx, `
		SELECT request_hash, appointment_id::text, response_status, response_body
		FROM booking_idempotency_keys
		WHERE tenant_id = $1 AND idempotency_key = $2
		FOR UPDATE
	`, tenantID, key).Scan(&rec.RequestHash, &apptID, &status, &rec.ResponseBody)
	if err != nil {
		return IdempotencyRecord{}, false, apperr.Unexpected(fmt.Errorf("load idempotency key: %w", err))
	}
	if apptID != nil {
		rec.AppointmentID = *apptID
	}
	if status != nil {
		rec.ResponseStatus = *status
	}
	if rec.RequestHash != requestHash {
		return IdempotencyRecord{}, true, apperr.Conflict("idempotency_key_reused", "idempotency key was used with a different request")
	}
	return rec, true, nil
}

// FinalizeIdempotency stores the response replayed for later requests with key.
// appointmentID is empty when the stored response is an error.
func (r *BookingRepository) FinalizeIdempotency(ctx context.Context, q db.Querier, tenantID, key, appointmentID string, status int, body []byte) error {
	var apptID *string
	if appointmentID != "" {
		apptID = &appointmentID
	}
	_, err := q.Exec(ctx, `
		UPDATE booking_idempotency_keys
		SET appointment_id = $3, response_status = $4, response_body = $5
		WHERE tenant_id = $1 AND idempotency_key = $2
	`, tenantID, key, apptID, status, body)
	if err != nil {
		return apperr.Unexpected(fmt.Errorf("finalize idempotency key: %w", err))
	}
	return nil
}
