package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/salonbook/salonbook/libs/apperr"
	"github.com/salonbook/salonbook/libs/db"
	"github.com/salonbook/salonbook/services/booking-service/internal/model"
)

type BookingRepository struct {
	conn db.Conn
}

func NewBookingRepository(conn db.Conn) *BookingRepository {
	return &BookingRepository{conn: conn}
}

// Conn exposes the connection for callers that open their own transaction.
func (r *BookingRepository) Conn() db.Conn {
	return r.conn
}

const appointmentColumns = `id::text, tenant_id::text, staff_id::text, customer_id::text, service_id::text,
	to_char(date, 'YYYY-MM-DD'), time, status, duration_minutes, price::text, notes, created_at, updated_at`

// LockStaffDay serializes writers for one staff member and date until the
// transaction ends.
func (r *BookingRepository) LockStaffDay(ctx context.Context, q db.Querier, tenantID, staffID, date string) error {
	_, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, tenantID+"|"+staffID+"|"+date)
	if err != nil {
		return apperr.Unexpected(fmt.Errorf("lock staff day: %w", err))
	}
	return nil
}

// SlotTaken reports whether a non-cancelled appointment already holds the slot.
func (r *BookingRepository) SlotTaken(ctx context.Context, q db.Querier, tenantID, staffID, date, hhmm string) (bool, error) {
	var taken bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE tenant_id = $1 AND staff_id = $2 AND date = $3::date AND time = $4 AND status <> 'cancelled'
		)
	`, tenantID, staffID, date, hhmm).Scan(&taken)
	if err != nil {
		return false, apperr.Unexpected(fmt.Errorf("check slot: %w", err))
	}
	return taken, nil
}

// Create inserts appt and fills its id and timestamps. A race past the
// advisory lock still hits the partial unique index and maps to ErrSlotTaken.
func (r *BookingRepository) Create(ctx context.Context, q db.Querier, appt *model.Appointment) error {
	err := q.QueryRow(ctx, `
		INSERT INTO appointments
			(tenant_id, staff_id, customer_id, service_id, date, time, status, duration_minutes, price, notes)
		VALUES ($1, $2, $3, $4, $5::date, $6, $7, $8, $9::numeric, $10)
		RETURNING id::text, created_at, updated_at
	`, appt.TenantID, appt.StaffID, appt.CustomerID, appt.ServiceID, appt.Date, appt.Time,
		string(appt.Status), appt.DurationMinutes, appt.Price, appt.Notes).Scan(&appt.ID, &appt.CreatedAt, &appt.UpdatedAt)
	if err != nil {
		return mapWriteError(err)
	}
	return nil
}

func (r *BookingRepository) Get(ctx context.Context, q db.Querier, tenantID, id string) (model.Appointment, error) {
	row := q.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	return scanAppointment(row)
}

// GetForUpdate locks the row for the rest of the transaction.
func (r *BookingRepository) GetForUpdate(ctx context.Context, q db.Querier, tenantID, id string) (model.Appointment, error) {
	row := q.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE tenant_id = $1 AND id = $2 FOR UPDATE`, tenantID, id)
	return scanAppointment(row)
}

// UpdateStatus fails with ErrSlotTaken when reviving a cancelled appointment
// whose slot has been rebooked.
func (r *BookingRepository) UpdateStatus(ctx context.Context, q db.Querier, tenantID, id string, status model.Status) (model.Appointment, error) {
	row := q.QueryRow(ctx, `
		UPDATE appointments
		SET status = $3, updated_at = now()
		WHERE tenant_id = $1 AND id = $2
		RETURNING `+appointmentColumns,
		tenantID, id, string(status))
	appt, err := scanAppointment(row)
	if err != nil && db.IsUniqueViolation(err) {
		return model.Appointment{}, apperr.ErrSlotTaken
	}
	return appt, err
}

func (r *BookingRepository) Delete(ctx context.Context, q db.Querier, tenantID, id string) error {
	tag, err := q.Exec(ctx, `DELETE FROM appointments WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		if db.IsInvalidText(err) {
			return apperr.NotFound("appointment")
		}
		return apperr.Unexpected(fmt.Errorf("delete appointment: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("appointment")
	}
	return nil
}

// ListForStaffDate returns every appointment for the staff member on date,
// cancelled ones included; availability decides what blocks.
func (r *BookingRepository) ListForStaffDate(ctx context.Context, tenantID, staffID, date string) ([]model.Appointment, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE tenant_id = $1 AND staff_id = $2 AND date = $3::date
		ORDER BY time
	`, tenantID, staffID, date)
	if err != nil {
		if db.IsInvalidText(err) {
			return []model.Appointment{}, nil
		}
		return nil, apperr.Unexpected(fmt.Errorf("list staff day: %w", err))
	}
	return collectAppointments(rows)
}

func (r *BookingRepository) List(ctx context.Context, tenantID string, f model.ListFilter) ([]model.Appointment, error) {
	var (
		where = []string{"tenant_id = $1"}
		args  = []any{tenantID}
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Date != "" {
		add("date = $%d::date", f.Date)
	}
	if f.From != "" {
		add("date >= $%d::date", f.From)
	}
	if f.To != "" {
		add("date <= $%d::date", f.To)
	}
	if f.StaffID != "" {
		add("staff_id = $%d", f.StaffID)
	}
	if f.CustomerID != "" {
		add("customer_id = $%d", f.CustomerID)
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	args = append(args, limit)

	rows, err := r.conn.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY date, time
		LIMIT $`+fmt.Sprint(len(args)), args...)
	if err != nil {
		if db.IsInvalidText(err) {
			// A malformed id filter matches nothing.
			return []model.Appointment{}, nil
		}
		return nil, apperr.Unexpected(fmt.Errorf("list appointments: %w", err))
	}
	return collectAppointments(rows)
}

// GetService snapshots the duration and price a new appointment records.
func (r *BookingRepository) GetService(ctx context.Context, q db.Querier, tenantID, serviceID string) (model.ServiceInfo, error) {
	var s model.ServiceInfo
	err := q.QueryRow(ctx, `
		SELECT id::text, duration_minutes, price::text, is_active
		FROM services
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, serviceID).Scan(&s.ID, &s.DurationMinutes, &s.Price, &s.IsActive)
	if err != nil {
		if db.IsNotFound(err) {
			return model.ServiceInfo{}, apperr.NotFound("service")
		}
		return model.ServiceInfo{}, apperr.Unexpected(fmt.Errorf("get service: %w", err))
	}
	return s, nil
}

func (r *BookingRepository) CustomerExists(ctx context.Context, q db.Querier, tenantID, customerID string) (bool, error) {
	var ok bool
	err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM customers WHERE tenant_id = $1 AND id = $2)`, tenantID, customerID).Scan(&ok)
	if err != nil {
		if db.IsInvalidText(err) {
			return false, nil
		}
		return false, apperr.Unexpected(fmt.Errorf("check customer: %w", err))
	}
	return ok, nil
}

// StaffExists reports whether staffID is an active member of the tenant.
func (r *BookingRepository) StaffExists(ctx context.Context, q db.Querier, tenantID, staffID string) (bool, error) {
	var ok bool
	err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM staff WHERE tenant_id = $1 AND id = $2 AND is_active)`, tenantID, staffID).Scan(&ok)
	if err != nil {
		if db.IsInvalidText(err) {
			return false, nil
		}
		return false, apperr.Unexpected(fmt.Errorf("check staff: %w", err))
	}
	return ok, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) (model.Appointment, error) {
	var (
		a      model.Appointment
		status string
	)
	err := row.Scan(&a.ID, &a.TenantID, &a.StaffID, &a.CustomerID, &a.ServiceID, &a.Date, &a.Time,
		&status, &a.DurationMinutes, &a.Price, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if db.IsNotFound(err) {
			return model.Appointment{}, apperr.NotFound("appointment")
		}
		return model.Appointment{}, apperr.Unexpected(fmt.Errorf("scan appointment: %w", err))
	}
	a.Status = model.Status(status)
	return a, nil
}

type rowsIter interface {
	rowScanner
	Next() bool
	Err() error
	Close()
}

func collectAppointments(rows rowsIter) ([]model.Appointment, error) {
	defer rows.Close()
	out := []model.Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Unexpected(err)
	}
	return out, nil
}

func mapWriteError(err error) error {
	switch {
	case db.IsUniqueViolation(err):
		return apperr.ErrSlotTaken
	case db.IsForeignKeyViolation(err), db.IsInvalidText(err):
		return apperr.Wrap(err, apperr.KindValidation, "invalid_reference", "staff, customer or service does not exist")
	default:
		return apperr.Unexpected(fmt.Errorf("insert appointment: %w", err))
	}
}
