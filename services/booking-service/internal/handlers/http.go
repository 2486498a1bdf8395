package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/salonbook/salonbook/libs/apperr"
	"github.com/salonbook/salonbook/libs/httpx"
	"github.com/salonbook/salonbook/libs/session"
	"github.com/salonbook/salonbook/services/booking-service/internal/booking"
	"github.com/salonbook/salonbook/services/booking-service/internal/model"
)

const maxIdempotencyKeyLen = 200

type Handler struct {
	svc    *booking.Service
	logger *slog.Logger
}

func New(svc *booking.Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Routes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(session.Middleware(h.logger))

		r.Get("/api/v1/availability", h.Availability)
		r.Route("/api/v1/appointments", func(r chi.Router) {
			r.Get("/", h.List)
			r.Post("/", h.Create)
			r.Get("/{id}", h.Get)
			r.Patch("/{id}/status", h.UpdateStatus)
			r.Delete("/{id}", h.Delete)
		})
	})
}

func (h *Handler) Availability(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	q := r.URL.Query()
	includeBusy, _ := strconv.ParseBool(q.Get("include_busy"))

	res, err := h.svc.Availability(r.Context(), sess, strings.TrimSpace(q.Get("staff_id")), q.Get("date"), includeBusy)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	var req model.CreateAppointmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if len(key) > maxIdempotencyKeyLen {
		httpx.WriteError(w, r, h.logger, apperr.Validation("Idempotency-Key is too long"))
		return
	}

	res, err := h.svc.Create(r.Context(), sess, req, key)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	if res.Replayed {
		w.Header().Set("Idempotent-Replayed", "true")
	} else if res.Status == http.StatusCreated {
		h.logger.Info("appointment booked",
			"tenant_id", sess.TenantID,
			"staff_id", req.StaffID,
			"date", req.Date,
			"time", req.Time,
			"role", string(sess.Role),
		)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(res.Status)
	_, _ = w.Write(res.Body)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	f := model.ListFilter{
		Date:       q.Get("date"),
		From:       q.Get("from"),
		To:         q.Get("to"),
		StaffID:    q.Get("staff_id"),
		CustomerID: q.Get("customer_id"),
		Status:     model.Status(q.Get("status")),
		Limit:      limit,
	}
	appts, err := h.svc.List(r.Context(), sess, f)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, appts)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	appt, err := h.svc.Get(r.Context(), sess, chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, appt)
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	var req model.UpdateStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	appt, err := h.svc.UpdateStatus(r.Context(), sess, chi.URLParam(r, "id"), req)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, appt)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	id := chi.URLParam(r, "id")
	if err := h.svc.Delete(r.Context(), sess, id); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	h.logger.Info("appointment deleted", "tenant_id", sess.TenantID, "appointment_id", id, "user_id", sess.UserID)
	w.WriteHeader(http.StatusNoContent)
}
