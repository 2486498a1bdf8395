package storage

import (
	"context"
	"fmt"

	"github.com/salonbook/salonbook/libs/apperr"
	"github.com/salonbook/salonbook/libs/db"
	"github.com/salonbook/salonbook/libs/hours"
	"github.com/salonbook/salonbook/libs/tenantrpc"
	"github.com/salonbook/salonbook/services/tenant-service/internal/model"
)

const staffColumns = `id::text, tenant_id::text, name, phone, email, is_active, working_hours, created_at, updated_at`

func (r *Repository) CreateStaff(ctx context.Context, tenantID string, in model.StaffInput) (model.Staff, error) {
	row := r.conn.QueryRow(ctx, `
		INSERT INTO staff (tenant_id, name, phone, email, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+staffColumns,
		tenantID, in.Name, in.Phone, in.Email, in.Active())
	return scanStaff(row)
}

func (r *Repository) ListStaff(ctx context.Context, tenantID string, activeOnly bool, limit int) ([]model.Staff, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT `+staffColumns+`
		FROM staff
		WHERE tenant_id = $1 AND ($2 = false OR is_active)
		ORDER BY name
		LIMIT $3
	`, tenantID, activeOnly, clampLimit(limit))
	if err != nil {
		return nil, apperr.Unexpected(fmt.Errorf("list staff: %w", err))
	}
	defer rows.Close()

	out := []model.Staff{}
	for rows.Next() {
		s, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Unexpected(err)
	}
	return out, nil
}

func (r *Repository) GetStaff(ctx context.Context, tenantID, staffID string) (model.Staff, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+staffColumns+` FROM staff WHERE tenant_id = $1 AND id = $2`, tenantID, staffID)
	return scanStaff(row)
}

func (r *Repository) UpdateStaff(ctx context.Context, tenantID, staffID string, in model.StaffInput) (model.Staff, error) {
	row := r.conn.QueryRow(ctx, `
		UPDATE staff
		SET name = $3, phone = $4, email = $5, is_active = $6, updated_at = now()
		WHERE tenant_id = $1 AND id = $2
		RETURNING `+staffColumns,
		tenantID, staffID, in.Name, in.Phone, in.Email, in.Active())
	return scanStaff(row)
}

// SetStaffWorkingHours replaces the override; nil clears it so the tenant week applies.
func (r *Repository) SetStaffWorkingHours(ctx context.Context, tenantID, staffID string, week hours.Week) (model.Staff, error) {
	raw, err := tenantrpc.EncodeWeek(week.Normalize())
	if err != nil {
		return model.Staff{}, apperr.Unexpected(err)
	}
	row := r.conn.QueryRow(ctx, `
		UPDATE staff
		SET working_hours = $3::jsonb, updated_at = now()
		WHERE tenant_id = $1 AND id = $2
		RETURNING `+staffColumns,
		tenantID, staffID, raw)
	return scanStaff(row)
}

func (r *Repository) DeleteStaff(ctx context.Context, tenantID, staffID string) error {
	tag, err := r.conn.Exec(ctx, `DELETE FROM staff WHERE tenant_id = $1 AND id = $2`, tenantID, staffID)
	if err != nil {
		if db.IsInvalidText(err) {
			return apperr.NotFound("staff")
		}
		return apperr.Unexpected(fmt.Errorf("delete staff: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("staff")
	}
	return nil
}

func scanStaff(row interface{ Scan(...any) error }) (model.Staff, error) {
	var (
		s   model.Staff
		raw []byte
	)
	err := row.Scan(&s.ID, &s.TenantID, &s.Name, &s.Phone, &s.Email, &s.IsActive, &raw, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if db.IsNotFound(err) {
			return model.Staff{}, apperr.NotFound("staff")
		}
		return model.Staff{}, apperr.Unexpected(fmt.Errorf("scan staff: %w", err))
	}
	if s.WorkingHours, err = tenantrpc.DecodeWeek(raw); err != nil {
		return model.Staff{}, apperr.Unexpected(err)
	}
	return s, nil
}
