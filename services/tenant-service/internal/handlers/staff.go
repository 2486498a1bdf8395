package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/salonbook/salonbook/libs/httpx"
	"github.com/salonbook/salonbook/libs/session"
	"github.com/salonbook/salonbook/services/tenant-service/internal/model"
)

func (h *Handler) CreateStaff(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	var req model.StaffInput
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	s, err := h.repo.CreateStaff(r.Context(), sess.TenantID, req)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, s)
}

// ListStaff shows customers only active staff.
func (h *Handler) ListStaff(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	activeOnly := !sess.IsStaff() || r.URL.Query().Get("active") == "true"
	staff, err := h.repo.ListStaff(r.Context(), sess.TenantID, activeOnly, limitParam(r))
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, staff)
}

func (h *Handler) GetStaff(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	s, err := h.repo.GetStaff(r.Context(), sess.TenantID, chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, s)
}

func (h *Handler) UpdateStaff(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	var req model.StaffInput
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	s, err := h.repo.UpdateStaff(r.Context(), sess.TenantID, chi.URLParam(r, "id"), req)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, s)
}

func (h *Handler) SetStaffWorkingHours(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	var req model.WorkingHoursInput
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	s, err := h.repo.SetStaffWorkingHours(r.Context(), sess.TenantID, chi.URLParam(r, "id"), req.Week)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	h.logger.Info("staff working hours replaced",
		"tenant_id", sess.TenantID,
		"staff_id", s.ID,
		"override", s.WorkingHours != nil,
	)
	httpx.WriteJSON(w, http.StatusOK, s)
}

func (h *Handler) DeleteStaff(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	if err := h.repo.DeleteStaff(r.Context(), sess.TenantID, chi.URLParam(r, "id")); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
