package storage

import (
	"context"
	"fmt"

	"github.com/salonbook/salonbook/libs/apperr"
	"github.com/salonbook/salonbook/libs/db"
	"github.com/salonbook/salonbook/libs/tenantrpc"
	"github.com/salonbook/salonbook/services/tenant-service/internal/model"
)

const tenantColumns = `id::text, business_name, phone, address, working_hours, slot_interval_minutes, utc_offset_minutes, created_at, updated_at`

func (r *Repository) GetTenant(ctx context.Context, tenantID string) (model.Tenant, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, tenantID)
	return r.scanTenant(row)
}

// UpdateTenant writes settings. A nil week or offset keeps the stored value.
func (r *Repository) UpdateTenant(ctx context.Context, tenantID string, in model.TenantSettings) (model.Tenant, error) {
	var weekRaw []byte
	if in.WorkingHours != nil {
		var err error
		if weekRaw, err = tenantrpc.EncodeWeek(in.WorkingHours.Normalize()); err != nil {
			return model.Tenant{}, apperr.Unexpected(err)
		}
	}
	row := r.conn.QueryRow(ctx, `
		UPDATE tenants
		SET business_name = $2,
			phone = $3,
			address = $4,
			working_hours = COALESCE($5::jsonb, working_hours),
			slot_interval_minutes = $6,
			utc_offset_minutes = COALESCE($7, utc_offset_minutes),
			updated_at = now()
		WHERE id = $1
		RETURNING `+tenantColumns,
		tenantID, in.BusinessName, in.Phone, in.Address, weekRaw, in.IntervalMinutes, in.UTCOffsetMinutes)
	return r.scanTenant(row)
}

// GetSchedule backs the TenantSettings gRPC lookup.
func (r *Repository) GetSchedule(ctx context.Context, tenantID, staffID string) (*tenantrpc.Schedule, error) {
	return tenantrpc.LoadSchedule(ctx, r.conn, tenantID, staffID, r.defaultWeek)
}

func (r *Repository) scanTenant(row interface{ Scan(...any) error }) (model.Tenant, error) {
	var (
		t   model.Tenant
		raw []byte
	)
	err := row.Scan(&t.ID, &t.BusinessName, &t.Phone, &t.Address, &raw, &t.IntervalMinutes, &t.UTCOffsetMinutes, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if db.IsNotFound(err) {
			return model.Tenant{}, apperr.NotFound("tenant")
		}
		return model.Tenant{}, apperr.Unexpected(fmt.Errorf("scan tenant: %w", err))
	}
	if t.WorkingHours, err = tenantrpc.DecodeWeek(raw); err != nil {
		return model.Tenant{}, apperr.Unexpected(err)
	}
	if t.WorkingHours == nil {
		t.WorkingHours = r.defaultWeek
	}
	return t, nil
}
