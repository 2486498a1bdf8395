package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/salonbook/salonbook/libs/apperr"
	"github.com/salonbook/salonbook/libs/httpx"
	"github.com/salonbook/salonbook/libs/phone"
	"github.com/salonbook/salonbook/libs/session"
	"github.com/salonbook/salonbook/services/tenant-service/internal/model"
	"github.com/salonbook/salonbook/services/tenant-service/internal/storage"
)

type Handler struct {
	repo        *storage.Repository
	logger      *slog.Logger
	phoneRegion string
}

func New(repo *storage.Repository, logger *slog.Logger, phoneRegion string) *Handler {
	return &Handler{repo: repo, logger: logger, phoneRegion: phoneRegion}
}

// Routes mounts the tenant API. Every route requires a gateway session.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api/v1/tenant", func(r chi.Router) {
		r.Use(session.Middleware(h.logger))

		r.Get("/", h.GetTenant)
		r.With(requireRole(h.logger, session.RoleOwner, session.RoleAdmin)).Put("/", h.UpdateTenant)

		r.Route("/staff", func(r chi.Router) {
			r.Get("/", h.ListStaff)
			r.Get("/{id}", h.GetStaff)
			r.Group(func(r chi.Router) {
				r.Use(requireRole(h.logger, session.RoleOwner, session.RoleAdmin))
				r.Post("/", h.CreateStaff)
				r.Put("/{id}", h.UpdateStaff)
				r.Delete("/{id}", h.DeleteStaff)
				r.Put("/{id}/working-hours", h.SetStaffWorkingHours)
			})
		})

		r.Route("/services", func(r chi.Router) {
			r.Get("/", h.ListServices)
			r.Group(func(r chi.Router) {
				r.Use(requireRole(h.logger, session.RoleOwner, session.RoleAdmin))
				r.Post("/", h.CreateService)
				r.Put("/{id}", h.UpdateService)
				r.Delete("/{id}", h.DeleteService)
			})
		})

		r.Route("/customers", func(r chi.Router) {
			r.Get("/{id}", h.GetCustomer)
			r.Group(func(r chi.Router) {
				r.Use(requireRole(h.logger, session.RoleOwner, session.RoleAdmin, session.RoleStaff))
				r.Post("/", h.CreateCustomer)
				r.Get("/", h.ListCustomers)
				r.Put("/{id}", h.UpdateCustomer)
			})
			r.With(requireRole(h.logger, session.RoleOwner, session.RoleAdmin)).Delete("/{id}", h.DeleteCustomer)
		})
	})
}

func requireRole(logger *slog.Logger, roles ...session.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, _ := session.FromContext(r.Context())
			if err := sess.Require(roles...); err != nil {
				httpx.WriteError(w, r, logger, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (h *Handler) GetTenant(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	t, err := h.repo.GetTenant(r.Context(), sess.TenantID)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) UpdateTenant(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	var req model.TenantSettings
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	if strings.TrimSpace(req.Phone) != "" {
		normalized, err := phone.Normalize(req.Phone, h.phoneRegion)
		if err != nil {
			httpx.WriteError(w, r, h.logger, apperr.Validation("phone is not a valid number"))
			return
		}
		req.Phone = normalized
	}
	t, err := h.repo.UpdateTenant(r.Context(), sess.TenantID, req)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	h.logger.Info("tenant settings updated", "tenant_id", sess.TenantID, "user_id", sess.UserID)
	httpx.WriteJSON(w, http.StatusOK, t)
}

func limitParam(r *http.Request) int {
	n, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return n
}
