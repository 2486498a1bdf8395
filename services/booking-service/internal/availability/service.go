package availability

import (
	"context"

	"github.com/salonbook/salonbook/libs/apperr"
	otelx "github.com/salonbook/salonbook/libs/otel"
	"github.com/salonbook/salonbook/libs/tenantrpc"
	"github.com/salonbook/salonbook/services/booking-service/internal/model"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

type ScheduleProvider interface {
	GetSchedule(ctx context.Context, tenantID, staffID string) (*tenantrpc.Schedule, error)
}

type AppointmentLister interface {
	ListForStaffDate(ctx context.Context, tenantID, staffID, date string) ([]model.Appointment, error)
}

// Result is the availability of one staff member on one date. Slots holds
// every remaining slot with its busy flag; past slots are already removed.
// Past is set when the whole date lies before today in the tenant's clock.
type Result struct {
	Date            string `json:"date"`
	StaffID         string `json:"staff_id"`
	Closed          bool   `json:"closed"`
	Reason          string `json:"reason,omitempty"`
	Past            bool   `json:"past,omitempty"`
	IntervalMinutes int    `json:"interval_minutes"`
	Slots           []Slot `json:"slots"`
}

// Offers reports whether t is a free slot in r.
func (r Result) Offers(t string) bool {
	for _, s := range r.Slots {
		if s.Time == t {
			return !s.Busy
		}
	}
	return false
}

// Contains reports whether t is one of the generated slots, busy or not.
func (r Result) Contains(t string) bool {
	for _, s := range r.Slots {
		if s.Time == t {
			return true
		}
	}
	return false
}

type Service struct {
	schedules     ScheduleProvider
	appointments  AppointmentLister
	clock         Clock
	defaultOffset int
}

// NewService uses defaultOffsetMinutes for tenants whose schedule carries no offset.
func NewService(schedules ScheduleProvider, appointments AppointmentLister, clock Clock, defaultOffsetMinutes int) *Service {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Service{schedules: schedules, appointments: appointments, clock: clock, defaultOffset: defaultOffsetMinutes}
}

func (s *Service) Clock() Clock { return s.clock }

// Compute resolves the day, generates the slots, marks busy ones and drops
// past ones when date is today in the tenant's clock.
func (s *Service) Compute(ctx context.Context, tenantID, staffID, date string) (Result, error) {
	ctx, span := otelx.Tracer("booking").Start(ctx, "availability.compute")
	defer span.End()
	span.SetAttributes(
		attribute.String("tenant_id", tenantID),
		attribute.String("staff_id", staffID),
		attribute.String("date", date),
	)

	day, err := model.ParseDate(date)
	if err != nil {
		return Result{}, err
	}
	date = day.Format(model.DateLayout)

	var (
		sched *tenantrpc.Schedule
		appts []model.Appointment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sched, err = s.schedules.GetSchedule(gctx, tenantID, staffID)
		return err
	})
	g.Go(func() error {
		var err error
		appts, err = s.appointments.ListForStaffDate(gctx, tenantID, staffID, date)
		return err
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return Result{}, err
	}
	if sched == nil {
		return Result{}, apperr.NotFound("staff")
	}

	res := Result{Date: date, StaffID: staffID, IntervalMinutes: sched.IntervalMinutes, Slots: []Slot{}}
	offset := s.Offset(sched)
	res.Past = IsPastDate(s.clock, offset, date)

	if !sched.StaffActive {
		res.Closed = true
		res.Reason = orDefault(sched.StaffName, "This staff member") + " is not taking appointments"
		return res, nil
	}

	dh := ResolveDay(day, sched.TenantWeek, sched.StaffWeek, sched.BusinessName, sched.StaffName)
	if dh.Closed {
		res.Closed = true
		res.Reason = dh.Reason
		span.SetAttributes(attribute.String("closed_source", dh.Source))
		return res, nil
	}

	slots := MarkBusy(GenerateSlots(dh.Start, dh.End, sched.IntervalMinutes), appts)

	if now := TenantNow(s.clock, offset); now.Format(model.DateLayout) == date {
		slots = DropPast(slots, now.Hour()*60+now.Minute())
	}

	res.Slots = slots
	span.SetAttributes(attribute.Int("slots", len(slots)))
	return res, nil
}

// Offset is the tenant's UTC offset in minutes, or the configured default.
func (s *Service) Offset(sched *tenantrpc.Schedule) int {
	if sched != nil && sched.UTCOffsetMinutes != nil {
		return *sched.UTCOffsetMinutes
	}
	return s.defaultOffset
}

// IsPastDate reports whether date is before today in the tenant's clock.
func IsPastDate(c Clock, offsetMinutes int, date string) bool {
	today := TenantNow(c, offsetMinutes).Format(model.DateLayout)
	return date < today
}
