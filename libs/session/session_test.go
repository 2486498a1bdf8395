package session

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salonbook/salonbook/libs/apperr"
)

func TestFromHeaders(t *testing.T) {
	h := http.Header{}
	Session{UserID: "u1", TenantID: "t1", Role: RoleCustomer, CustomerID: "c1"}.Headers(h)

	s, err := FromHeaders(h)
	require.NoError(t, err)
	assert.Equal(t, "t1", s.TenantID)
	assert.Equal(t, RoleCustomer, s.Role)
	assert.False(t, s.IsStaff())

	h.Del(HeaderCustomerID)
	_, err = FromHeaders(h)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	h.Set(HeaderRole, "root")
	_, err = FromHeaders(h)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestRequire(t *testing.T) {
	s := Session{UserID: "u1", TenantID: "t1", Role: RoleStaff}
	assert.NoError(t, s.Require(RoleOwner, RoleStaff))
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(s.Require(RoleOwner, RoleAdmin)))
	assert.False(t, s.IsManager())
}

func TestMiddleware(t *testing.T) {
	var got Session
	h := Middleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rw.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderUserID, "u1")
	req.Header.Set(HeaderTenantID, "t1")
	req.Header.Set(HeaderRole, "owner")
	rw = httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	assert.Equal(t, http.StatusOK, rw.Code)
	assert.Equal(t, RoleOwner, got.Role)
}
