package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/salonbook/salonbook/libs/auth"
	"github.com/salonbook/salonbook/libs/session"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRequireSessionForwardsVerifiedIdentity(t *testing.T) {
	secret := "test-secret"
	signer := auth.NewHS256Signer(secret)
	token, err := signer.Sign(auth.NewClaims("c-1", "t-1", "customer", "c-1", time.Now(), time.Hour))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	var got session.Session
	h := requireSession(testLogger(), auth.NewVerifier(secret, nil))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := session.FromHeaders(r.Header)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		got = s
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "http://example.com/api/v1/appointments", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(session.HeaderRole, "owner")
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Code)
	}
	if got.Role != session.RoleCustomer || got.TenantID != "t-1" || got.CustomerID != "c-1" {
		t.Fatalf("client headers must be replaced, got %+v", got)
	}

	reqBad := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
	reqBad.Header.Set("Authorization", "Bearer badtoken")
	rwBad := httptest.NewRecorder()
	h.ServeHTTP(rwBad, reqBad)
	if rwBad.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rwBad.Code)
	}
}

func TestRequireSessionRejectsUnknownRole(t *testing.T) {
	secret := "test-secret"
	token, _ := auth.NewHS256Signer(secret).Sign(auth.NewClaims("u-1", "t-1", "member", "", time.Now(), time.Hour))

	h := requireSession(testLogger(), auth.NewVerifier(secret, nil))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rw.Code)
	}
}

type staticVerifier struct{ claims *auth.Claims }

func (v staticVerifier) Verify(context.Context, string) (*auth.Claims, error) { return v.claims, nil }

func TestRouterProxiesByPrefix(t *testing.T) {
	hits := map[string]string{}
	backend := func(name string) *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits[name] = r.URL.Path + "|" + r.Header.Get(session.HeaderTenantID)
			w.WriteHeader(http.StatusOK)
		}))
	}
	authSrv, tenantSrv, bookingSrv := backend("auth"), backend("tenant"), backend("booking")
	defer authSrv.Close()
	defer tenantSrv.Close()
	defer bookingSrv.Close()

	mustURL := func(raw string) *url.URL {
		u, err := url.Parse(raw)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		return u
	}
	claims := auth.NewClaims("u-1", "t-1", "owner", "", time.Now(), time.Hour)
	router := newRouter(testLogger(), staticVerifier{claims: &claims}, upstreams{
		auth:    mustURL(authSrv.URL),
		tenant:  mustURL(tenantSrv.URL),
		booking: mustURL(bookingSrv.URL),
	}, nil)

	for _, tc := range []struct {
		path, backend, want string
		bearer              bool
	}{
		{"/api/v1/auth/login", "auth", "/api/v1/auth/login|", false},
		{"/api/v1/tenant/staff", "tenant", "/api/v1/tenant/staff|t-1", true},
		{"/api/v1/availability", "booking", "/api/v1/availability|t-1", true},
		{"/api/v1/appointments/a-1", "booking", "/api/v1/appointments/a-1|t-1", true},
	} {
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		if tc.bearer {
			req.Header.Set("Authorization", "Bearer x")
		}
		rw := httptest.NewRecorder()
		router.ServeHTTP(rw, req)
		if rw.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", tc.path, rw.Code)
		}
		if hits[tc.backend] != tc.want {
			t.Fatalf("%s: backend %s saw %q", tc.path, tc.backend, hits[tc.backend])
		}
	}

	rw := httptest.NewRecorder()
	router.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/api/v1/appointments", nil))
	if rw.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without bearer, got %d", rw.Code)
	}
}

func TestOpenAPIServed(t *testing.T) {
	rw := httptest.NewRecorder()
	serveOpenAPI(rw, httptest.NewRequest(http.MethodGet, "/openapi", nil))
	if rw.Code != http.StatusOK || rw.Header().Get("Content-Type") != "application/yaml" {
		t.Fatalf("unexpected response %d", rw.Code)
	}
}
