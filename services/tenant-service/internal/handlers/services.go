package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/salonbook/salonbook/libs/httpx"
	"github.com/salonbook/salonbook/libs/session"
	"github.com/salonbook/salonbook/services/tenant-service/internal/model"
)

func (h *Handler) CreateService(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	var req model.ServiceInput
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	s, err := h.repo.CreateService(r.Context(), sess.TenantID, req)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, s)
}

func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	activeOnly := !sess.IsStaff() || r.URL.Query().Get("active") == "true"
	services, err := h.repo.ListServices(r.Context(), sess.TenantID, activeOnly, limitParam(r))
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, services)
}

func (h *Handler) UpdateService(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	var req model.ServiceInput
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	s, err := h.repo.UpdateService(r.Context(), sess.TenantID, chi.URLParam(r, "id"), req)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, s)
}

func (h *Handler) DeleteService(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	if err := h.repo.DeleteService(r.Context(), sess.TenantID, chi.URLParam(r, "id")); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
