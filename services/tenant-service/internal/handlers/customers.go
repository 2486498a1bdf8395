package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/salonbook/salonbook/libs/apperr"
	"github.com/salonbook/salonbook/libs/httpx"
	"github.com/salonbook/salonbook/libs/phone"
	"github.com/salonbook/salonbook/libs/session"
	"github.com/salonbook/salonbook/services/tenant-service/internal/model"
)

func (h *Handler) decodeCustomer(r *http.Request) (model.CustomerInput, error) {
	var req model.CustomerInput
	if err := httpx.DecodeJSON(r, &req); err != nil {
		return req, err
	}
	normalized, err := phone.Normalize(req.Phone, h.phoneRegion)
	if err != nil {
		return req, apperr.Validation("phone is not a valid number")
	}
	req.Phone = normalized
	return req, nil
}

func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	req, err := h.decodeCustomer(r)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	c, err := h.repo.CreateCustomer(r.Context(), sess.TenantID, req)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, c)
}

func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	customers, err := h.repo.ListCustomers(r.Context(), sess.TenantID, r.URL.Query().Get("q"), limitParam(r))
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, customers)
}

// GetCustomer lets a customer read only their own record.
func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	id := chi.URLParam(r, "id")
	if !sess.IsStaff() && sess.CustomerID != id {
		httpx.WriteError(w, r, h.logger, apperr.NotFound("customer"))
		return
	}
	c, err := h.repo.GetCustomer(r.Context(), sess.TenantID, id)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	req, err := h.decodeCustomer(r)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	c, err := h.repo.UpdateCustomer(r.Context(), sess.TenantID, chi.URLParam(r, "id"), req)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	if err := h.repo.DeleteCustomer(r.Context(), sess.TenantID, chi.URLParam(r, "id")); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
