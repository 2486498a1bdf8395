package main

import (
	"context"
	"embed"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/salonbook/salonbook/libs/auth"
	"github.com/salonbook/salonbook/libs/config"
	"github.com/salonbook/salonbook/libs/httpx"
	"github.com/salonbook/salonbook/libs/metrics"
	otelx "github.com/salonbook/salonbook/libs/otel"
	"github.com/salonbook/salonbook/libs/runtime"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

//go:embed assets/gateway.v1.yaml
var openAPISpec embed.FS

func main() {
	_ = config.LoadDotenv()
	service := config.String("SERVICE_NAME", "gateway-service")
	logger := runtime.NewLogger(service)

	port, err := config.Port("PORT", "8080")
	if err != nil {
		logger.Error("config error", "err", err)
		os.Exit(1)
	}

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	var jwks *auth.JWKSClient
	if url := config.String("JWKS_URL", ""); url != "" {
		jwks = auth.NewJWKSClient(url, config.Duration("JWKS_CACHE_TTL", 5*time.Minute), &http.Client{
			Timeout:   5 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		})
	}
	verifier := auth.NewVerifier(config.String("JWT_SECRET", "dev-secret"), jwks)

	upstreams, err := upstreamsFromEnv()
	if err != nil {
		logger.Error("config error", "err", err)
		os.Exit(1)
	}

	reg := metrics.NewRegistry()
	httpMetrics := metrics.NewHTTP(reg, service)

	var checks []runtime.ReadyCheck
	limitPerMinute := config.Int("RATE_LIMIT_PER_MINUTE", 60)
	var rateLimit httpx.Middleware
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       config.Int("REDIS_DB", 0),
		})
		defer func() { _ = rdb.Close() }()
		rl := httpx.NewRedisRateLimiter(rdb, limitPerMinute, time.Minute, config.String("RATE_LIMIT_PREFIX", "rl"), nil)
		rateLimit = rl.Middleware(logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true))
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: httpx.RedisReadyCheck(rdb)})
		logger.Info("rate limiting enabled (redis)", "per_minute", limitPerMinute, "redis_addr", addr)
	} else {
		rateLimit = httpx.NewRateLimiter(limitPerMinute, time.Minute, nil).Middleware()
		logger.Info("rate limiting enabled (in-memory)", "per_minute", limitPerMinute)
	}

	mux := runtime.NewBaseMux(reg, checks...)
	mux.Handle("/", newRouter(logger, verifier, upstreams, httpMetrics))

	handler := httpx.Chain(mux,
		httpx.WithRecover(logger),
		httpx.WithCORS(httpx.CORSPolicyFromEnv()),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(int64(config.Int("REQUEST_BODY_LIMIT_BYTES", 1<<20))),
		httpx.WithTimeout(config.Duration("REQUEST_TIMEOUT", 10*time.Second)),
		rateLimit,
	)
	handler = otelhttp.NewHandler(handler, "gateway")

	runtime.ServeHTTP(ctx, logger, &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	})
}
