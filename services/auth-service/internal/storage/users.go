package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/salonbook/salonbook/libs/apperr"
	"github.com/salonbook/salonbook/libs/db"
)

type User struct {
	ID           string
	TenantID     string
	Email        string
	PasswordHash string
	Role         string
}

type Repository struct {
	conn db.Conn
}

func NewRepository(conn db.Conn) *Repository {
	return &Repository{conn: conn}
}

func (r *Repository) Conn() db.Conn {
	return r.conn
}

// CreateTenant inserts the salon a new owner registers.
func (r *Repository) CreateTenant(ctx context.Context, q db.Querier, businessName string) (string, error) {
	var id string
	err := q.QueryRow(ctx, `
		INSERT INTO tenants (business_name) VALUES ($1)
		RETURNING id::text
	`, businessName).Scan(&id)
	if err != nil {
		return "", apperr.Unexpected(fmt.Errorf("create tenant: %w", err))
	}
	return id, nil
}

func (r *Repository) CreateUser(ctx context.Context, q db.Querier, u *User) error {
	err := q.QueryRow(ctx, `
		INSERT INTO users (tenant_id, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id::text
	`, u.TenantID, strings.ToLower(u.Email), u.PasswordHash, u.Role).Scan(&u.ID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return apperr.Conflict("email_taken", "email already registered")
		}
		return apperr.Unexpected(fmt.Errorf("create user: %w", err))
	}
	return nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := r.conn.QueryRow(ctx, `
		SELECT id::text, tenant_id::text, email, password_hash, role
		FROM users
		WHERE email = $1
	`, strings.ToLower(strings.TrimSpace(email))).Scan(&u.ID, &u.TenantID, &u.Email, &u.PasswordHash, &u.Role)
	if err != nil {
		if db.IsNotFound(err) {
			return User{}, apperr.NotFound("user")
		}
		return User{}, apperr.Unexpected(fmt.Errorf("get user: %w", err))
	}
	return u, nil
}

func (r *Repository) TenantExists(ctx context.Context, tenantID string) (bool, error) {
	var ok bool
	err := r.conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tenants WHERE id::text = $1)`, tenantID).Scan(&ok)
	if err != nil {
		return false, apperr.Unexpected(fmt.Errorf("check tenant: %w", err))
	}
	return ok, nil
}

// FindOrCreateCustomer returns the customer holding phone in the tenant,
// creating an empty profile on first login.
func (r *Repository) FindOrCreateCustomer(ctx context.Context, tenantID, phone string) (string, error) {
	var id string
	err := r.conn.QueryRow(ctx, `
		INSERT INTO customers (tenant_id, phone)
		VALUES ($1, $2)
		ON CONFLICT (tenant_id, phone) DO UPDATE SET updated_at = customers.updated_at
		RETURNING id::text
	`, tenantID, phone).Scan(&id)
	if err != nil {
		return "", apperr.Unexpected(fmt.Errorf("find or create customer: %w", err))
	}
	return id, nil
}
