package events

import "time"

const (
	TenantRegistered = "auth.tenant.registered.v1"

	AggregateTenant = "tenant"
)

// Tenant is published once, when an owner registers a new salon.
type Tenant struct {
	TenantID     string    `json:"tenant_id"`
	BusinessName string    `json:"business_name"`
	OwnerUserID  string    `json:"owner_user_id"`
	OwnerEmail   string    `json:"owner_email"`
	OccurredAt   time.Time `json:"occurred_at"`
}
