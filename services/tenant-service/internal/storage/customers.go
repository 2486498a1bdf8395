package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/salonbook/salonbook/libs/apperr"
	"github.com/salonbook/salonbook/libs/db"
	"github.com/salonbook/salonbook/services/tenant-service/internal/model"
)

const customerColumns = `id::text, tenant_id::text, name, phone, email, notes, created_at, updated_at`

var errDuplicatePhone = apperr.Conflict("phone_taken", "a customer with this phone already exists")

// CreateCustomer expects in.Phone to be normalized already.
func (r *Repository) CreateCustomer(ctx context.Context, tenantID string, in model.CustomerInput) (model.Customer, error) {
	row := r.conn.QueryRow(ctx, `
		INSERT INTO customers (tenant_id, name, phone, email, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+customerColumns,
		tenantID, in.Name, in.Phone, in.Email, in.Notes)
	return scanCustomer(row)
}

// ListCustomers matches q against name, phone and email, case-insensitively.
func (r *Repository) ListCustomers(ctx context.Context, tenantID, q string, limit int) ([]model.Customer, error) {
	pattern := "%"
	if q = strings.TrimSpace(q); q != "" {
		pattern = "%" + escapeLike(q) + "%"
	}
	rows, err := r.conn.Query(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE tenant_id = $1
		  AND (name ILIKE $2 OR phone ILIKE $2 OR email ILIKE $2)
		ORDER BY name, created_at
		LIMIT $3
	`, tenantID, pattern, clampLimit(limit))
	if err != nil {
		return nil, apperr.Unexpected(fmt.Errorf("list customers: %w", err))
	}
	defer rows.Close()

	out := []model.Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Unexpected(err)
	}
	return out, nil
}

func (r *Repository) GetCustomer(ctx context.Context, tenantID, customerID string) (model.Customer, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE tenant_id = $1 AND id = $2`, tenantID, customerID)
	return scanCustomer(row)
}

func (r *Repository) UpdateCustomer(ctx context.Context, tenantID, customerID string, in model.CustomerInput) (model.Customer, error) {
	row := r.conn.QueryRow(ctx, `
		UPDATE customers
		SET name = $3, phone = $4, email = $5, notes = $6, updated_at = now()
		WHERE tenant_id = $1 AND id = $2
		RETURNING `+customerColumns,
		tenantID, customerID, in.Name, in.Phone, in.Email, in.Notes)
	return scanCustomer(row)
}

func (r *Repository) DeleteCustomer(ctx context.Context, tenantID, customerID string) error {
	tag, err := r.conn.Exec(ctx, `DELETE FROM customers WHERE tenant_id = $1 AND id = $2`, tenantID, customerID)
	if err != nil {
		if db.IsInvalidText(err) {
			return apperr.NotFound("customer")
		}
		return apperr.Unexpected(fmt.Errorf("delete customer: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("customer")
	}
	return nil
}

func scanCustomer(row interface{ Scan(...any) error }) (model.Customer, error) {
	var c model.Customer
	err := row.Scan(&c.ID, &c.TenantID, &c.Name, &c.Phone, &c.Email, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		switch {
		case db.IsNotFound(err):
			return model.Customer{}, apperr.NotFound("customer")
		case db.IsUniqueViolation(err):
			return model.Customer{}, errDuplicatePhone
		}
		return model.Customer{}, apperr.Unexpected(fmt.Errorf("scan customer: %w", err))
	}
	return c, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
