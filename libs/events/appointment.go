// Package events defines the appointment events booking-service publishes
// through its outbox and notification-service consumes.
package events

import "time"

const (
	AppointmentCreated       = "booking.appointment.created.v1"
	AppointmentStatusChanged = "booking.appointment.status_changed.v1"
	AppointmentDeleted       = "booking.appointment.deleted.v1"

	AggregateAppointment = "appointment"
)

// AppointmentTopics lists every topic a consumer of appointment events subscribes to.
var AppointmentTopics = []string{AppointmentCreated, AppointmentStatusChanged, AppointmentDeleted}

// Appointment is the payload shared by all appointment events.
// PreviousStatus is only set on status changes.
type Appointment struct {
	AppointmentID   string    `json:"appointment_id"`
	TenantID        string    `json:"tenant_id"`
	StaffID         string    `json:"staff_id"`
	CustomerID      string    `json:"customer_id"`
	ServiceID       string    `json:"service_id"`
	Date            string    `json:"date"`
	Time            string    `json:"time"`
	Status          string    `json:"status"`
	PreviousStatus  string    `json:"previous_status,omitempty"`
	DurationMinutes int       `json:"duration_minutes"`
	Price           string    `json:"price"`
	OccurredAt      time.Time `json:"occurred_at"`
}
