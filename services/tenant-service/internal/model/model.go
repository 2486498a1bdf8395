package model

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/salonbook/salonbook/libs/apperr"
	"github.com/salonbook/salonbook/libs/hours"
)

type Tenant struct {
	ID               string     `json:"id"`
	BusinessName     string     `json:"business_name"`
	Phone            string     `json:"phone"`
	Address          string     `json:"address"`
	WorkingHours     hours.Week `json:"working_hours"`
	IntervalMinutes  int        `json:"appointment_time_interval"`
	UTCOffsetMinutes *int       `json:"utc_offset_minutes"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type Staff struct {
	ID           string     `json:"id"`
	TenantID     string     `json:"tenant_id"`
	Name         string     `json:"name"`
	Phone        string     `json:"phone"`
	Email        string     `json:"email"`
	IsActive     bool       `json:"is_active"`
	WorkingHours hours.Week `json:"working_hours"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type Service struct {
	ID              string    `json:"id"`
	TenantID        string    `json:"tenant_id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	DurationMinutes int       `json:"duration"`
	Price           string    `json:"price"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type Customer struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TenantSettings is the body of PUT /api/v1/tenant. A nil WorkingHours keeps the stored week.
type TenantSettings struct {
	BusinessName     string     `json:"business_name"`
	Phone            string     `json:"phone"`
	Address          string     `json:"address"`
	WorkingHours     hours.Week `json:"working_hours"`
	IntervalMinutes  int        `json:"appointment_time_interval"`
	UTCOffsetMinutes *int       `json:"utc_offset_minutes"`
}

func (s *TenantSettings) Validate() error {
	s.BusinessName = strings.TrimSpace(s.BusinessName)
	if s.BusinessName == "" {
		return apperr.Validation("business_name is required")
	}
	if s.IntervalMinutes <= 0 || s.IntervalMinutes > 24*60 {
		return apperr.Validation("appointment_time_interval must be between 1 and 1440")
	}
	if s.UTCOffsetMinutes != nil && (*s.UTCOffsetMinutes < -720 || *s.UTCOffsetMinutes > 840) {
		return apperr.Validation("utc_offset_minutes must be between -720 and 840")
	}
	return validateWeek(s.WorkingHours)
}

type StaffInput struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	IsActive *bool  `json:"is_active"`
}

func (s *StaffInput) Validate() error {
	s.Name = strings.TrimSpace(s.Name)
	s.Email = strings.TrimSpace(strings.ToLower(s.Email))
	if s.Name == "" {
		return apperr.Validation("name is required")
	}
	return nil
}

func (s StaffInput) Active() bool {
	return s.IsActive == nil || *s.IsActive
}

// WorkingHoursInput replaces a staff override; a JSON null body clears it.
type WorkingHoursInput struct {
	Week hours.Week
}

func (w *WorkingHoursInput) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		w.Week = nil
		return nil
	}
	var week hours.Week
	if err := json.Unmarshal(b, &week); err != nil {
		return err
	}
	w.Week = week
	return nil
}

func (w *WorkingHoursInput) Validate() error {
	return validateWeek(w.Week)
}

type ServiceInput struct {
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	DurationMinutes int     `json:"duration"`
	Price           float64 `json:"price"`
	IsActive        *bool   `json:"is_active"`
}

func (s *ServiceInput) Validate() error {
	s.Name = strings.TrimSpace(s.Name)
	s.Description = strings.TrimSpace(s.Description)
	if s.Name == "" {
		return apperr.Validation("name is required")
	}
	if s.DurationMinutes <= 0 {
		return apperr.Validation("duration must be positive")
	}
	if s.Price < 0 {
		return apperr.Validation("price must not be negative")
	}
	return nil
}

func (s ServiceInput) Active() bool {
	return s.IsActive == nil || *s.IsActive
}

type CustomerInput struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
	Notes string `json:"notes"`
}

// Validate checks presence only; phone normalization happens in the handler
// because it needs the configured region.
func (c *CustomerInput) Validate() error {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(strings.ToLower(c.Email))
	c.Notes = strings.TrimSpace(c.Notes)
	if strings.TrimSpace(c.Phone) == "" {
		return apperr.Validation("phone is required")
	}
	return nil
}

func validateWeek(w hours.Week) error {
	if w == nil {
		return nil
	}
	if err := w.Normalize().Validate(); err != nil {
		return apperr.Validation("working_hours: " + err.Error())
	}
	return nil
}
