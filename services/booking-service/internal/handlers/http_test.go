package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/salonbook/salonbook/libs/hours"
	"github.com/salonbook/salonbook/libs/outbox"
	"github.com/salonbook/salonbook/libs/session"
	"github.com/salonbook/salonbook/libs/tenantrpc"
	"github.com/salonbook/salonbook/services/booking-service/internal/availability"
	"github.com/salonbook/salonbook/services/booking-service/internal/booking"
	"github.com/salonbook/salonbook/services/booking-service/internal/storage"
)

var appointmentCols = []string{"id", "tenant_id", "staff_id", "customer_id", "service_id", "date", "time", "status", "duration_minutes", "price", "notes", "created_at", "updated_at"}

type staticSchedule struct{}

func (staticSchedule) GetSchedule(context.Context, string, string) (*tenantrpc.Schedule, error) {
	return &tenantrpc.Schedule{
		TenantID:        "t-1",
		BusinessName:    "Salon A",
		TenantWeek:      hours.DefaultWeek(),
		IntervalMinutes: 30,
		StaffID:         "s-1",
		StaffName:       "Ayse",
		StaffActive:     true,
	}, nil
}

func newTestRouter(t *testing.T) (http.Handler, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	t.Cleanup(mock.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := storage.NewBookingRepository(mock)
	clock := availability.FixedClock(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))
	avail := availability.NewService(staticSchedule{}, repo, clock, 180)
	h := New(booking.NewService(repo, outbox.NewRepository(), avail, logger, nil), logger)
	r := chi.NewRouter()
	h.Routes(r)
	return r, mock
}

func withSession(req *http.Request, s session.Session) *http.Request {
	s.Headers(req.Header)
	return req
}

var (
	owner    = session.Session{UserID: "u-1", TenantID: "t-1", Role: session.RoleOwner}
	customer = session.Session{UserID: "u-2", TenantID: "t-1", Role: session.RoleCustomer, CustomerID: "c-1"}
)

func TestAvailabilityRequiresSession(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/availability?staff_id=s-1&date=2026-03-02", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAvailabilityClosedSunday(t *testing.T) {
	r, mock := newTestRouter(t)
	mock.ExpectQuery("FROM appointments").WithArgs("t-1", "s-1", "2026-03-01").WillReturnRows(pgxmock.NewRows(appointmentCols))

	req := withSession(httptest.NewRequest(http.MethodGet, "/api/v1/availability?staff_id=s-1&date=2026-03-01", nil), customer)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var res availability.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !res.Closed || res.Reason == "" || len(res.Slots) != 0 {
		t.Fatalf("expected closed day with reason, got %+v", res)
	}
}

func TestAvailabilityBadDate(t *testing.T) {
	r, _ := newTestRouter(t)

	req := withSession(httptest.NewRequest(http.MethodGet, "/api/v1/availability?staff_id=s-1&date=03/02/2026", nil), customer)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreateRejectsUnknownFields(t *testing.T) {
	r, _ := newTestRouter(t)

	body := `{"staff_id":"s-1","service_id":"sv-1","customer_id":"c-1","date":"2026-03-02","time":"09:30","start_time":"x"}`
	req := withSession(httptest.NewRequest(http.MethodPost, "/api/v1/appointments", strings.NewReader(body)), owner)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreateSlotTakenIs409(t *testing.T) {
	r, mock := newTestRouter(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM services").WithArgs("t-1", "sv-1").WillReturnRows(
		pgxmock.NewRows([]string{"id", "duration_minutes", "price", "is_active"}).AddRow("sv-1", 30, "150.00", true),
	)
	mock.ExpectQuery("FROM customers").WithArgs("t-1", "c-1").WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("FROM staff").WithArgs("t-1", "s-1").WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec("pg_advisory_xact_lock").WithArgs("t-1|s-1|2026-03-02").WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery("FROM appointments").WithArgs("t-1", "s-1", "2026-03-02", "09:30").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	body := `{"staff_id":"s-1","service_id":"sv-1","customer_id":"c-1","date":"2026-03-02","time":"09:30"}`
	req := withSession(httptest.NewRequest(http.MethodPost, "/api/v1/appointments", strings.NewReader(body)), owner)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	var out map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	if out["error"] != "slot_taken" {
		t.Fatalf("expected slot_taken, got %v", out)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetOtherCustomersAppointmentIs404(t *testing.T) {
	r, mock := newTestRouter(t)
	now := time.Now()
	mock.ExpectQuery("FROM appointments WHERE tenant_id").WithArgs("t-1", "a-1").WillReturnRows(
		pgxmock.NewRows(appointmentCols).
			AddRow("a-1", "t-1", "s-1", "c-2", "sv-1", "2026-03-02", "09:30", "pending", 30, "150.00", "", now, now),
	)

	req := withSession(httptest.NewRequest(http.MethodGet, "/api/v1/appointments/a-1", nil), customer)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestGetMalformedIDIs404(t *testing.T) {
	r, mock := newTestRouter(t)
	mock.ExpectQuery("FROM appointments WHERE tenant_id").WithArgs("t-1", "not-a-uuid").
		WillReturnError(&pgconn.PgError{Code: "22P02", Message: `invalid input syntax for type uuid: "not-a-uuid"`})

	req := withSession(httptest.NewRequest(http.MethodGet, "/api/v1/appointments/not-a-uuid", nil), owner)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDeleteByOwner(t *testing.T) {
	r, mock := newTestRouter(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WithArgs("t-1", "a-1").WillReturnRows(
		pgxmock.NewRows(appointmentCols).
			AddRow("a-1", "t-1", "s-1", "c-1", "sv-1", "2026-03-02", "09:30", "confirmed", 30, "150.00", "", now, now),
	)
	mock.ExpectExec("DELETE FROM appointments").WithArgs("t-1", "a-1").WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("INSERT INTO outbox_events").
		WithArgs("appointment", "a-1", "t-1", "booking.appointment.deleted.v1", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	req := withSession(httptest.NewRequest(http.MethodDelete, "/api/v1/appointments/a-1", nil), owner)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	r, _ := newTestRouter(t)

	req := withSession(httptest.NewRequest(http.MethodPatch, "/api/v1/appointments/a-1/status", strings.NewReader(`{"status":"booked"}`)), owner)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
