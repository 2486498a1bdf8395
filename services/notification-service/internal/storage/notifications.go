package storage

import (
	"context"

	"github.com/salonbook/salonbook/libs/apperr"
	"github.com/salonbook/salonbook/libs/db"
)

const (
	ChannelSMS   = "sms"
	ChannelEmail = "email"

	StatusSent   = "sent"
	StatusFailed = "failed"
)

// Notification is one delivery attempt. AppointmentID holds the tenant id for
// tenant-level messages such as the welcome email.
type Notification struct {
	TenantID      string
	AppointmentID string
	Channel       string
	Recipient     string
	Template      string
	Provider      string
	Status        string
	Error         string
}

// Contact is who an appointment message goes to.
type Contact struct {
	Name  string
	Phone string
	Email string
}

type Repository struct {
	q db.Querier
}

func NewRepository(q db.Querier) *Repository {
	return &Repository{q: q}
}

func (r *Repository) Insert(ctx context.Context, n Notification) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO notifications (tenant_id, appointment_id, channel, recipient, template, provider, status, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, n.TenantID, n.AppointmentID, n.Channel, n.Recipient, n.Template, n.Provider, n.Status, n.Error)
	if err != nil {
		return apperr.Wrap(err, apperr.KindUnexpected, "notification_insert_failed", "could not record notification")
	}
	return nil
}

func (r *Repository) Customer(ctx context.Context, tenantID, customerID string) (Contact, error) {
	var c Contact
	err := r.q.QueryRow(ctx, `
		SELECT name, phone, email FROM customers
		WHERE tenant_id::text = $1 AND id::text = $2
	`, tenantID, customerID).Scan(&c.Name, &c.Phone, &c.Email)
	if err != nil {
		if db.IsNotFound(err) {
			return Contact{}, apperr.NotFound("customer")
		}
		return Contact{}, apperr.Unexpected(err)
	}
	return c, nil
}

// BusinessName returns "" for an unknown tenant.
func (r *Repository) BusinessName(ctx context.Context, tenantID string) (string, error) {
	var name string
	err := r.q.QueryRow(ctx, `SELECT business_name FROM tenants WHERE id::text = $1`, tenantID).Scan(&name)
	if err != nil {
		if db.IsNotFound(err) {
			return "", nil
		}
		return "", apperr.Unexpected(err)
	}
	return name, nil
}
