package model

import (
	"strings"
	"time"

	"github.com/salonbook/salonbook/libs/apperr"
	"github.com/salonbook/salonbook/libs/events"
	"github.com/salonbook/salonbook/libs/hours"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusScheduled Status = "scheduled"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

// Statuses lists every valid status. Any status may move to any other.
var Statuses = []Status{StatusPending, StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Blocks reports whether an appointment in this status occupies its slot.
func (s Status) Blocks() bool {
	return s != StatusCancelled
}

const DateLayout = "2006-01-02"

type Appointment struct {
	ID              string    `json:"id"`
	TenantID        string    `json:"tenant_id"`
	StaffID         string    `json:"staff_id"`
	CustomerID      string    `json:"customer_id"`
	ServiceID       string    `json:"service_id"`
	Date            string    `json:"date"`
	Time            string    `json:"time"`
	Status          Status    `json:"status"`
	DurationMinutes int       `json:"duration"`
	Price           string    `json:"price"`
	Notes           string    `json:"notes"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Event builds the outbox payload for a.
func (a Appointment) Event(previous Status, at time.Time) events.Appointment {
	return events.Appointment{
		AppointmentID:   a.ID,
		TenantID:        a.TenantID,
		StaffID:         a.StaffID,
		CustomerID:      a.CustomerID,
		ServiceID:       a.ServiceID,
		Date:            a.Date,
		Time:            a.Time,
		Status:          string(a.Status),
		PreviousStatus:  string(previous),
		DurationMinutes: a.DurationMinutes,
		Price:           a.Price,
		OccurredAt:      at.UTC(),
	}
}

// ServiceInfo is the slice of a tenant service the booking writer snapshots.
type ServiceInfo struct {
	ID              string
	DurationMinutes int
	Price           string
	IsActive        bool
}

type CreateAppointmentRequest struct {
	StaffID    string `json:"staff_id"`
	CustomerID string `json:"customer_id"`
	ServiceID  string `json:"service_id"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	Notes      string `json:"notes"`
	Status     Status `json:"status"`
}

// Validate normalizes Time to HH:MM. CustomerID may be empty for customer
// sessions, which book for themselves.
func (r *CreateAppointmentRequest) Validate() error {
	r.StaffID = strings.TrimSpace(r.StaffID)
	r.CustomerID = strings.TrimSpace(r.CustomerID)
	r.ServiceID = strings.TrimSpace(r.ServiceID)
	r.Notes = strings.TrimSpace(r.Notes)
	if r.StaffID == "" || r.ServiceID == "" {
		return apperr.Validation("staff_id and service_id are required")
	}
	if _, err := ParseDate(r.Date); err != nil {
		return err
	}
	m, err := hours.ParseClock(r.Time)
	if err != nil {
		return apperr.Validation("time must be HH:MM")
	}
	r.Time = hours.FormatClock(m)
	if r.Status != "" && !r.Status.Valid() {
		return apperr.Validation("unknown status " + string(r.Status))
	}
	if len(r.Notes) > 2000 {
		return apperr.Validation("notes too long")
	}
	return nil
}

type UpdateStatusRequest struct {
	Status Status `json:"status"`
}

func (r *UpdateStatusRequest) Validate() error {
	if !r.Status.Valid() {
		return apperr.Validation("unknown status " + string(r.Status))
	}
	return nil
}

// ListFilter narrows appointment listings. Zero values mean "any".
type ListFilter struct {
	Date       string
	From       string
	To         string
	StaffID    string
	CustomerID string
	Status     Status
	Limit      int
}

func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, apperr.Validation("date must be YYYY-MM-DD")
	}
	return d, nil
}
