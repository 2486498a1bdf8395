// Package session carries the authenticated caller through a request. The
// gateway verifies the bearer token and forwards the identity as headers;
// downstream services rebuild a Session from them and pass it explicitly to
// their service layer.
package session

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/salonbook/salonbook/libs/apperr"
	"github.com/salonbook/salonbook/libs/httpx"
)

const (
	HeaderUserID     = "X-User-Id"
	HeaderTenantID   = "X-Tenant-Id"
	HeaderRole       = "X-Role"
	HeaderCustomerID = "X-Customer-Id"
)

type Role string

const (
	RoleOwner    Role = "owner"
	RoleAdmin    Role = "admin"
	RoleStaff    Role = "staff"
	RoleCustomer Role = "customer"
)

func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleStaff, RoleCustomer:
		return true
	}
	return false
}

type Session struct {
	UserID     string
	TenantID   string
	Role       Role
	CustomerID string
}

// IsStaff reports whether the caller acts for the salon rather than as a customer.
func (s Session) IsStaff() bool {
	return s.Role == RoleOwner || s.Role == RoleAdmin || s.Role == RoleStaff
}

func (s Session) IsManager() bool {
	return s.Role == RoleOwner || s.Role == RoleAdmin
}

// Require returns a forbidden error unless the caller holds one of roles.
func (s Session) Require(roles ...Role) error {
	for _, r := range roles {
		if s.Role == r {
			return nil
		}
	}
	return apperr.Forbidden("role " + string(s.Role) + " may not perform this action")
}

// Headers writes s onto h, replacing anything the client sent.
func (s Session) Headers(h http.Header) {
	h.Del(HeaderUserID)
	h.Del(HeaderTenantID)
	h.Del(HeaderRole)
	h.Del(HeaderCustomerID)
	h.Set(HeaderUserID, s.UserID)
	h.Set(HeaderTenantID, s.TenantID)
	h.Set(HeaderRole, string(s.Role))
	if s.CustomerID != "" {
		h.Set(HeaderCustomerID, s.CustomerID)
	}
}

func FromHeaders(h http.Header) (Session, error) {
	s := Session{
		UserID:     strings.TrimSpace(h.Get(HeaderUserID)),
		TenantID:   strings.TrimSpace(h.Get(HeaderTenantID)),
		Role:       Role(strings.TrimSpace(h.Get(HeaderRole))),
		CustomerID: strings.TrimSpace(h.Get(HeaderCustomerID)),
	}
	if s.TenantID == "" || s.UserID == "" {
		return Session{}, apperr.Unauthorized("missing session")
	}
	if !s.Role.Valid() {
		return Session{}, apperr.Unauthorized("invalid session role")
	}
	if s.Role == RoleCustomer && s.CustomerID == "" {
		return Session{}, apperr.Unauthorized("customer session without customer id")
	}
	return s, nil
}

type ctxKey struct{}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(Session)
	return s, ok
}

// Middleware rejects requests without a valid session and stores it in the context.
func Middleware(logger *slog.Logger) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, err := FromHeaders(r.Header)
			if err != nil {
				httpx.WriteError(w, r, logger, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
		})
	}
}
