// Package booking writes appointments. Every write takes the session of the
// caller explicitly and returns the persisted row.
package booking

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/salonbook/salonbook/libs/apperr"
	"github.com/salonbook/salonbook/libs/db"
	"github.com/salonbook/salonbook/libs/events"
	"github.com/salonbook/salonbook/libs/httpx"
	otelx "github.com/salonbook/salonbook/libs/otel"
	"github.com/salonbook/salonbook/libs/outbox"
	"github.com/salonbook/salonbook/libs/session"
	"github.com/salonbook/salonbook/services/booking-service/internal/availability"
	"github.com/salonbook/salonbook/services/booking-service/internal/model"
	"github.com/salonbook/salonbook/services/booking-service/internal/storage"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type Metrics struct {
	slotQueries *prometheus.CounterVec
	bookings    *prometheus.CounterVec
	conflicts   prometheus.Counter
}

// NewMetrics registers the booking counters on reg. A nil reg keeps them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		slotQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "salonbook_availability_queries_total",
			Help: "Availability queries by outcome.",
		}, []string{"outcome"}),
		bookings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "salonbook_bookings_total",
			Help: "Appointments created by the role that booked them.",
		}, []string{"role"}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "salonbook_booking_conflicts_total",
			Help: "Bookings rejected because the slot was already taken.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.slotQueries, m.bookings, m.conflicts)
	}
	return m
}

type Service struct {
	repo         *storage.BookingRepository
	outbox       *outbox.Repository
	availability *availability.Service
	logger       *slog.Logger
	metrics      *Metrics
}

func NewService(repo *storage.BookingRepository, outboxRepo *outbox.Repository, avail *availability.Service, logger *slog.Logger, metrics *Metrics) *Service {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Service{repo: repo, outbox: outboxRepo, availability: avail, logger: logger, metrics: metrics}
}

// Availability returns the slots of staffID on date. Busy slots are dropped
// unless includeBusy is set.
func (s *Service) Availability(ctx context.Context, sess session.Session, staffID, date string, includeBusy bool) (availability.Result, error) {
	if staffID == "" {
		return availability.Result{}, apperr.Validation("staff_id is required")
	}
	res, err := s.availability.Compute(ctx, sess.TenantID, staffID, date)
	if err != nil {
		s.metrics.slotQueries.WithLabelValues("error").Inc()
		return availability.Result{}, err
	}
	switch {
	case res.Closed:
		s.metrics.slotQueries.WithLabelValues("closed").Inc()
	default:
		s.metrics.slotQueries.WithLabelValues("open").Inc()
	}
	if !includeBusy {
		res.Slots = availability.Available(res.Slots)
	}
	return res, nil
}

// CreateResult is what a create returns. Replayed is set when the response
// came from a stored idempotency record.
type CreateResult struct {
	Status   int
	Body     []byte
	Replayed bool
}

// Create books an appointment. With a non-empty idemKey the outcome, success
// or a client error, is stored and replayed for later requests with the same key.
func (s *Service) Create(ctx context.Context, sess session.Session, req model.CreateAppointmentRequest, idemKey string) (CreateResult, error) {
	ctx, span := otelx.Tracer("booking").Start(ctx, "booking.create")
	defer span.End()

	if err := req.Validate(); err != nil {
		return CreateResult{}, err
	}
	if sess.Role == session.RoleCustomer {
		if req.CustomerID != "" && req.CustomerID != sess.CustomerID {
			return CreateResult{}, apperr.Forbidden("customers may only book for themselves")
		}
		req.CustomerID = sess.CustomerID
		req.Status = model.StatusPending
	} else if req.CustomerID == "" {
		return CreateResult{}, apperr.Validation("customer_id is required")
	}
	if req.Status == "" {
		req.Status = model.StatusScheduled
	}
	span.SetAttributes(
		attribute.String("tenant_id", sess.TenantID),
		attribute.String("staff_id", req.StaffID),
		attribute.String("date", req.Date),
		attribute.String("time", req.Time),
	)

	hash, err := requestHash(req)
	if err != nil {
		return CreateResult{}, apperr.Unexpected(err)
	}

	var out CreateResult
	err = db.InTx(ctx, s.repo.Conn(), func(tx pgx.Tx) error {
		if idemKey != "" {
			rec, exists, err := s.repo.LockIdempotencyKey(ctx, tx, sess.TenantID, idemKey, hash)
			if err != nil {
				return err
			}
			if exists && rec.Complete() {
				out = CreateResult{Status: rec.ResponseStatus, Body: rec.ResponseBody, Replayed: true}
				return nil
			}
		}

		book := s.book
		if idemKey != "" {
			book = s.bookSavepoint
		}
		appt, err := book(ctx, tx, sess, req)
		if err != nil {
			if idemKey == "" || !storable(err) {
				return err
			}
			// Client errors are final for this key; commit them so a retry replays.
			out = errorResult(err)
			return s.repo.FinalizeIdempotency(ctx, tx, sess.TenantID, idemKey, "", out.Status, out.Body)
		}

		body, err := json.Marshal(appt)
		if err != nil {
			return apperr.Unexpected(err)
		}
		out = CreateResult{Status: http.StatusCreated, Body: body}
		if idemKey != "" {
			return s.repo.FinalizeIdempotency(ctx, tx, sess.TenantID, idemKey, appt.ID, out.Status, body)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, apperr.ErrSlotTaken) {
			s.metrics.conflicts.Inc()
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return CreateResult{}, err
	}
	if out.Status == http.StatusCreated && !out.Replayed {
		s.metrics.bookings.WithLabelValues(string(sess.Role)).Inc()
	}
	if out.Status == http.StatusConflict {
		s.metrics.conflicts.Inc()
	}
	return out, nil
}

// bookSavepoint runs book inside a savepoint so a failed statement leaves
// the outer transaction usable for storing the error under its key.
func (s *Service) bookSavepoint(ctx context.Context, tx pgx.Tx, sess session.Session, req model.CreateAppointmentRequest) (model.Appointment, error) {
	sp, err := tx.Begin(ctx)
	if err != nil {
		return model.Appointment{}, apperr.Unexpected(fmt.Errorf("savepoint: %w", err))
	}
	appt, err := s.book(ctx, sp, sess, req)
	if err != nil {
		if rbErr := sp.Rollback(ctx); rbErr != nil {
			return model.Appointment{}, apperr.Unexpected(fmt.Errorf("rollback to savepoint: %w", rbErr))
		}
		return model.Appointment{}, err
	}
	if err := sp.Commit(ctx); err != nil {
		return model.Appointment{}, apperr.Unexpected(fmt.Errorf("release savepoint: %w", err))
	}
	return appt, nil
}

func (s *Service) book(ctx context.Context, tx pgx.Tx, sess session.Session, req model.CreateAppointmentRequest) (model.Appointment, error) {
	svc, err := s.repo.GetService(ctx, tx, sess.TenantID, req.ServiceID)
	if err != nil {
		return model.Appointment{}, err
	}
	if !svc.IsActive {
		return model.Appointment{}, apperr.Validation("service is not active")
	}
	ok, err := s.repo.CustomerExists(ctx, tx, sess.TenantID, req.CustomerID)
	if err != nil {
		return model.Appointment{}, err
	}
	if !ok {
		return model.Appointment{}, apperr.NotFound("customer")
	}
	ok, err = s.repo.StaffExists(ctx, tx, sess.TenantID, req.StaffID)
	if err != nil {
		return model.Appointment{}, err
	}
	if !ok {
		return model.Appointment{}, apperr.NotFound("staff")
	}

	if err := s.repo.LockStaffDay(ctx, tx, sess.TenantID, req.StaffID, req.Date); err != nil {
		return model.Appointment{}, err
	}

	if !sess.IsStaff() {
		if err := s.checkOffered(ctx, sess.TenantID, req.StaffID, req.Date, req.Time); err != nil {
			return model.Appointment{}, err
		}
	}

	taken, err := s.repo.SlotTaken(ctx, tx, sess.TenantID, req.StaffID, req.Date, req.Time)
	if err != nil {
		return model.Appointment{}, err
	}
	if taken {
		return model.Appointment{}, apperr.ErrSlotTaken
	}

	appt := model.Appointment{
		TenantID:        sess.TenantID,
		StaffID:         req.StaffID,
		CustomerID:      req.CustomerID,
		ServiceID:       svc.ID,
		Date:            req.Date,
		Time:            req.Time,
		Status:          req.Status,
		DurationMinutes: svc.DurationMinutes,
		Price:           svc.Price,
		Notes:           req.Notes,
	}
	if err := s.repo.Create(ctx, tx, &appt); err != nil {
		return model.Appointment{}, err
	}
	if err := s.emit(ctx, tx, events.AppointmentCreated, appt, ""); err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}

// checkOffered rejects times the customer could not have picked from the
// availability listing.
func (s *Service) checkOffered(ctx context.Context, tenantID, staffID, date, hhmm string) error {
	res, err := s.availability.Compute(ctx, tenantID, staffID, date)
	if err != nil {
		return err
	}
	if res.Closed {
		return apperr.New(apperr.KindValidation, "slot_unavailable", res.Reason)
	}
	if res.Past {
		return apperr.New(apperr.KindValidation, "slot_unavailable", "date is in the past")
	}
	if !res.Offers(hhmm) {
		if res.Contains(hhmm) {
			return apperr.ErrSlotTaken
		}
		return apperr.New(apperr.KindValidation, "slot_unavailable", hhmm+" is not an available slot")
	}
	return nil
}

func (s *Service) Get(ctx context.Context, sess session.Session, id string) (model.Appointment, error) {
	appt, err := s.repo.Get(ctx, s.repo.Conn(), sess.TenantID, id)
	if err != nil {
		return model.Appointment{}, err
	}
	if !visible(sess, appt) {
		return model.Appointment{}, apperr.NotFound("appointment")
	}
	return appt, nil
}

func (s *Service) List(ctx context.Context, sess session.Session, f model.ListFilter) ([]model.Appointment, error) {
	for _, d := range []string{f.Date, f.From, f.To} {
		if d == "" {
			continue
		}
		if _, err := model.ParseDate(d); err != nil {
			return nil, err
		}
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperr.Validation("unknown status " + string(f.Status))
	}
	if sess.Role == session.RoleCustomer {
		f.CustomerID = sess.CustomerID
	}
	return s.repo.List(ctx, sess.TenantID, f)
}

// UpdateStatus moves an appointment to any valid status. Customers may only
// cancel their own appointments.
func (s *Service) UpdateStatus(ctx context.Context, sess session.Session, id string, req model.UpdateStatusRequest) (model.Appointment, error) {
	ctx, span := otelx.Tracer("booking").Start(ctx, "booking.update_status")
	defer span.End()

	if err := req.Validate(); err != nil {
		return model.Appointment{}, err
	}
	if sess.Role == session.RoleCustomer && req.Status != model.StatusCancelled {
		return model.Appointment{}, apperr.Forbidden("customers may only cancel appointments")
	}

	var updated model.Appointment
	err := db.InTx(ctx, s.repo.Conn(), func(tx pgx.Tx) error {
		current, err := s.repo.GetForUpdate(ctx, tx, sess.TenantID, id)
		if err != nil {
			return err
		}
		if !visible(sess, current) {
			return apperr.NotFound("appointment")
		}
		if current.Status == req.Status {
			updated = current
			return nil
		}
		if !current.Status.Blocks() && req.Status.Blocks() {
			if err := s.repo.LockStaffDay(ctx, tx, current.TenantID, current.StaffID, current.Date); err != nil {
				return err
			}
		}
		updated, err = s.repo.UpdateStatus(ctx, tx, sess.TenantID, id, req.Status)
		if err != nil {
			return err
		}
		return s.emit(ctx, tx, events.AppointmentStatusChanged, updated, current.Status)
	})
	if err != nil {
		if errors.Is(err, apperr.ErrSlotTaken) {
			s.metrics.conflicts.Inc()
		}
		span.RecordError(err)
		return model.Appointment{}, err
	}
	return updated, nil
}

// Delete removes the row for good. Staff roles only.
func (s *Service) Delete(ctx context.Context, sess session.Session, id string) error {
	if !sess.IsStaff() {
		return apperr.Forbidden("only salon staff may delete appointments")
	}
	return db.InTx(ctx, s.repo.Conn(), func(tx pgx.Tx) error {
		appt, err := s.repo.GetForUpdate(ctx, tx, sess.TenantID, id)
		if err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, tx, sess.TenantID, id); err != nil {
			return err
		}
		return s.emit(ctx, tx, events.AppointmentDeleted, appt, appt.Status)
	})
}

func (s *Service) emit(ctx context.Context, tx pgx.Tx, eventType string, appt model.Appointment, previous model.Status) error {
	evt, err := outbox.NewEvent(events.AggregateAppointment, appt.ID, appt.TenantID, eventType,
		appt.Event(previous, s.availability.Clock().Now()))
	if err != nil {
		return apperr.Unexpected(err)
	}
	if err := s.outbox.Insert(ctx, tx, evt); err != nil {
		return apperr.Unexpected(fmt.Errorf("write %s: %w", eventType, err))
	}
	return nil
}

func visible(sess session.Session, appt model.Appointment) bool {
	return sess.Role != session.RoleCustomer || appt.CustomerID == sess.CustomerID
}

func requestHash(req model.CreateAppointmentRequest) (string, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// storable reports whether err is a client error worth replaying.
func storable(err error) bool {
	switch apperr.KindOf(err) {
	case apperr.KindValidation, apperr.KindNotFound, apperr.KindConflict, apperr.KindForbidden:
		return true
	}
	return false
}

func errorResult(err error) CreateResult {
	e := apperr.As(err)
	status := httpx.StatusFor(e.Kind)
	body, _ := json.Marshal(map[string]string{"error": e.Code, "message": e.Message})
	return CreateResult{Status: status, Body: body}
}
