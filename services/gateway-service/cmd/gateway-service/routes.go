package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/salonbook/salonbook/libs/apperr"
	"github.com/salonbook/salonbook/libs/auth"
	"github.com/salonbook/salonbook/libs/config"
	"github.com/salonbook/salonbook/libs/httpx"
	"github.com/salonbook/salonbook/libs/metrics"
	"github.com/salonbook/salonbook/libs/session"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type upstreams struct {
	auth    *url.URL
	tenant  *url.URL
	booking *url.URL
}

func upstreamsFromEnv() (upstreams, error) {
	var (
		u   upstreams
		err error
	)
	if u.auth, err = parseUpstream("AUTH_URL", "http://auth-service:8081"); err != nil {
		return u, err
	}
	if u.tenant, err = parseUpstream("TENANT_URL", "http://tenant-service:8082"); err != nil {
		return u, err
	}
	if u.booking, err = parseUpstream("BOOKING_URL", "http://booking-service:8083"); err != nil {
		return u, err
	}
	return u, nil
}

func parseUpstream(key, fallback string) (*url.URL, error) {
	raw := config.String(key, fallback)
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%s: invalid upstream url %q", key, raw)
	}
	return u, nil
}

// tokenVerifier is satisfied by *auth.Verifier.
type tokenVerifier interface {
	Verify(ctx context.Context, token string) (*auth.Claims, error)
}

func newRouter(logger *slog.Logger, verifier tokenVerifier, up upstreams, httpMetrics *metrics.HTTP) http.Handler {
	transport := otelhttp.NewTransport(http.DefaultTransport)
	authProxy := newProxy(up.auth, transport, logger)
	tenantProxy := newProxy(up.tenant, transport, logger)
	bookingProxy := newProxy(up.booking, transport, logger)

	r := chi.NewRouter()
	if httpMetrics != nil {
		r.Use(httpMetrics.Middleware)
	}
	r.Handle("/.well-known/jwks.json", authProxy)
	r.Handle("/api/v1/auth/*", authProxy)
	r.Get("/openapi", serveOpenAPI)

	r.Group(func(r chi.Router) {
		r.Use(requireSession(logger, verifier))
		r.Handle("/api/v1/tenant", tenantProxy)
		r.Handle("/api/v1/tenant/*", tenantProxy)
		r.Handle("/api/v1/availability", bookingProxy)
		r.Handle("/api/v1/appointments", bookingProxy)
		r.Handle("/api/v1/appointments/*", bookingProxy)
	})
	return r
}

func newProxy(target *url.URL, transport http.RoundTripper, logger *slog.Logger) *httputil.ReverseProxy {
	p := httputil.NewSingleHostReverseProxy(target)
	p.Transport = transport
	p.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error("upstream request failed", "upstream", target.Host, "path", r.URL.Path, "err", err,
			"request_id", httpx.RequestIDFromContext(r.Context()))
		httpx.WriteJSON(w, http.StatusBadGateway, map[string]string{"error": "bad_gateway", "message": "upstream unavailable"})
	}
	return p
}

// requireSession verifies the bearer token and replaces any client-sent
// session headers with the verified identity.
func requireSession(logger *slog.Logger, verifier tokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get("Authorization")
			token := strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
			if !strings.HasPrefix(raw, "Bearer ") || token == "" {
				httpx.WriteError(w, r, logger, apperr.Unauthorized("missing or invalid Authorization header"))
				return
			}
			claims, err := verifier.Verify(r.Context(), token)
			if err != nil {
				httpx.WriteError(w, r, logger, apperr.Unauthorized("invalid token"))
				return
			}
			sess := session.Session{
				UserID:     claims.Subject,
				TenantID:   claims.TenantID,
				Role:       session.Role(claims.Role),
				CustomerID: claims.CustomerID,
			}
			if !sess.Role.Valid() {
				httpx.WriteError(w, r, logger, apperr.Unauthorized("invalid token role"))
				return
			}
			sess.Headers(r.Header)
			next.ServeHTTP(w, r)
		})
	}
}

func serveOpenAPI(w http.ResponseWriter, _ *http.Request) {
	data, err := openAPISpec.ReadFile("assets/gateway.v1.yaml")
	if err != nil {
		http.Error(w, "openapi not available", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
