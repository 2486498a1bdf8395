package tenantrpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/salonbook/salonbook/libs/apperr"
	"github.com/salonbook/salonbook/libs/db"
	"github.com/salonbook/salonbook/libs/hours"
)

// LoadSchedule reads a Schedule straight from Postgres. Tenants without a
// stored week get defaultWeek.
func LoadSchedule(ctx context.Context, q db.Querier, tenantID, staffID string, defaultWeek hours.Week) (*Schedule, error) {
	var (
		s         Schedule
		tenantRaw []byte
		staffRaw  []byte
	)
	err := q.QueryRow(ctx, `
		SELECT t.id::text, t.business_name, t.working_hours, t.slot_interval_minutes, t.utc_offset_minutes,
		       s.id::text, s.name, s.is_active, s.working_hours
		FROM staff s
		JOIN tenants t ON t.id = s.tenant_id
		WHERE t.id = $1 AND s.id = $2
	`, tenantID, staffID).Scan(&s.TenantID, &s.BusinessName, &tenantRaw, &s.IntervalMinutes, &s.UTCOffsetMinutes,
		&s.StaffID, &s.StaffName, &s.StaffActive, &staffRaw)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperr.NotFound("staff")
		}
		return nil, apperr.Unexpected(fmt.Errorf("load schedule: %w", err))
	}

	if s.TenantWeek, err = DecodeWeek(tenantRaw); err != nil {
		return nil, apperr.Unexpected(fmt.Errorf("tenant working hours: %w", err))
	}
	if s.TenantWeek == nil {
		s.TenantWeek = defaultWeek
	}
	if s.StaffWeek, err = DecodeWeek(staffRaw); err != nil {
		return nil, apperr.Unexpected(fmt.Errorf("staff working hours: %w", err))
	}
	return &s, nil
}

// DecodeWeek treats NULL and JSON null as "no week".
func DecodeWeek(raw []byte) (hours.Week, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var w hours.Week
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}
	return w.Normalize(), nil
}

// EncodeWeek returns nil for a nil week so the column is stored as NULL.
func EncodeWeek(w hours.Week) ([]byte, error) {
	if w == nil {
		return nil, nil
	}
	return json.Marshal(w)
}
