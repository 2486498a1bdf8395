package httpx

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/salonbook/salonbook/libs/config"
)

type CORSPolicy struct {
	// AllowedOrigins entries are exact origins, "*" or a subdomain pattern
	// such as "https://*.salonbook.app" for per-salon booking pages.
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           time.Duration
}

func CORSPolicyFromEnv() CORSPolicy {
	return CORSPolicy{
		AllowedOrigins:   config.List("CORS_ALLOWED_ORIGINS", ""),
		AllowedMethods:   config.List("CORS_ALLOWED_METHODS", "GET,POST,PUT,PATCH,DELETE,OPTIONS"),
		AllowedHeaders:   config.List("CORS_ALLOWED_HEADERS", "Authorization,Content-Type,X-Request-Id,Idempotency-Key"),
		ExposedHeaders:   config.List("CORS_EXPOSED_HEADERS", "X-Request-Id,Idempotent-Replayed"),
		AllowCredentials: config.Bool("CORS_ALLOW_CREDENTIALS", false),
		MaxAge:           config.Duration("CORS_MAX_AGE", 10*time.Minute),
	}
}

type originMatcher struct {
	any      bool
	exact    map[string]bool
	suffixes [][2]string // scheme prefix, host suffix
}

func newOriginMatcher(origins []string) originMatcher {
	m := originMatcher{exact: map[string]bool{}}
	for _, o := range origins {
		o = strings.ToLower(strings.TrimSpace(o))
		switch {
		case o == "":
		case o == "*":
			m.any = true
		case strings.Contains(o, "://*."):
			scheme, host, _ := strings.Cut(o, "://*")
			m.suffixes = append(m.suffixes, [2]string{scheme + "://", host})
		default:
			m.exact[o] = true
		}
	}
	return m
}

func (m originMatcher) empty() bool {
	return !m.any && len(m.exact) == 0 && len(m.suffixes) == 0
}

func (m originMatcher) match(origin string) bool {
	o := strings.ToLower(origin)
	if m.any || m.exact[o] {
		return true
	}
	for _, s := range m.suffixes {
		rest, ok := strings.CutPrefix(o, s[0])
		if ok && strings.HasSuffix(rest, s[1]) && len(rest) > len(s[1]) {
			return true
		}
	}
	return false
}

// WithCORS answers preflights and decorates responses for allowed origins.
// An empty origin list disables it.
func WithCORS(p CORSPolicy) Middleware {
	origins := newOriginMatcher(p.AllowedOrigins)
	if origins.empty() {
		return func(next http.Handler) http.Handler { return next }
	}
	methods := strings.Join(p.AllowedMethods, ", ")
	headers := strings.Join(p.AllowedHeaders, ", ")
	exposed := strings.Join(p.ExposedHeaders, ", ")
	maxAge := strconv.Itoa(int(p.MaxAge.Seconds()))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			h := w.Header()
			h.Add("Vary", "Origin")
			if origin == "" || !origins.match(origin) {
				next.ServeHTTP(w, r)
				return
			}

			if origins.any && !p.AllowCredentials {
				h.Set("Access-Control-Allow-Origin", "*")
			} else {
				h.Set("Access-Control-Allow-Origin", origin)
			}
			if p.AllowCredentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			if exposed != "" {
				h.Set("Access-Control-Expose-Headers", exposed)
			}

			if r.Method != http.MethodOptions || r.Header.Get("Access-Control-Request-Method") == "" {
				next.ServeHTTP(w, r)
				return
			}
			if methods != "" {
				h.Set("Access-Control-Allow-Methods", methods)
			}
			if headers != "" {
				h.Set("Access-Control-Allow-Headers", headers)
			}
			if p.MaxAge > 0 {
				h.Set("Access-Control-Max-Age", maxAge)
			}
			w.WriteHeader(http.StatusNoContent)
		})
	}
}
