package storage

import (
	"context"
	"fmt"
	"strconv"

	"github.com/salonbook/salonbook/libs/apperr"
	"github.com/salonbook/salonbook/libs/db"
	"github.com/salonbook/salonbook/services/tenant-service/internal/model"
)

const serviceColumns = `id::text, tenant_id::text, name, description, duration_minutes, price::text, is_active, created_at, updated_at`

func (r *Repository) CreateService(ctx context.Context, tenantID string, in model.ServiceInput) (model.Service, error) {
	row := r.conn.QueryRow(ctx, `
		INSERT INTO services (tenant_id, name, description, duration_minutes, price, is_active)
		VALUES ($1, $2, $3, $4, $5::numeric, $6)
		RETURNING `+serviceColumns,
		tenantID, in.Name, in.Description, in.DurationMinutes, formatPrice(in.Price), in.Active())
	return scanService(row)
}

func (r *Repository) ListServices(ctx context.Context, tenantID string, activeOnly bool, limit int) ([]model.Service, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT `+serviceColumns+`
		FROM services
		WHERE tenant_id = $1 AND ($2 = false OR is_active)
		ORDER BY name
		LIMIT $3
	`, tenantID, activeOnly, clampLimit(limit))
	if err != nil {
		return nil, apperr.Unexpected(fmt.Errorf("list services: %w", err))
	}
	defer rows.Close()

	out := []model.Service{}
	for rows.Next() {
		s, err := scanService(rows)
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

func (r *Repository) UpdateService(ctx context.Context, tenantID, serviceID string, in model.ServiceInput) (model.Service, error) {
	row := r.conn.QueryRow(ctx, `
		UPDATE services
		SET name = $3, description = $4, duration_minutes = $5, price = $6::numeric, is_active = $7, updated_at = now()
		WHERE tenant_id = $1 AND id = $2
		RETURNING `+serviceColumns,
		tenantID, serviceID, in.Name, in.Description, in.DurationMinutes, formatPrice(in.Price), in.Active())
	return scanService(row)
}

// DeleteService fails with a conflict while appointments still reference the service.
func (r *Repository) DeleteService(ctx context.Context, tenantID, serviceID string) error {
	tag, err := r.conn.Exec(ctx, `DELETE FROM services WHERE tenant_id = $1 AND id = $2`, tenantID, serviceID)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return apperr.Conflict("service_in_use", "service has appointments; deactivate it instead")
		}
		if db.IsInvalidText(err) {
			return apperr.NotFound("service")
		}
		return apperr.Unexpected(fmt.Errorf("delete service: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("service")
	}
	return nil
}

func scanService(row interface{ Scan(...any) error }) (model.Service, error) {
	var s model.Service
	err := row.Scan(&s.ID, &s.TenantID, &s.Name, &s.Description, &s.DurationMinutes, &s.Price, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if db.IsNotFound(err) {
			return model.Service{}, apperr.NotFound("service")
		}
		return model.Service{}, apperr.Unexpected(fmt.Errorf("scan service: %w", err))
	}
	return s, nil
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', 2, 64)
}
