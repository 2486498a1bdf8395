package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/salonbook/salonbook/libs/auth"
	"github.com/salonbook/salonbook/libs/config"
	"github.com/salonbook/salonbook/libs/db"
	"github.com/salonbook/salonbook/libs/httpx"
	"github.com/salonbook/salonbook/libs/kafkax"
	"github.com/salonbook/salonbook/libs/metrics"
	otelx "github.com/salonbook/salonbook/libs/otel"
	"github.com/salonbook/salonbook/libs/outbox"
	"github.com/salonbook/salonbook/libs/phone"
	"github.com/salonbook/salonbook/libs/runtime"
	"github.com/salonbook/salonbook/libs/sms"
	"github.com/salonbook/salonbook/services/auth-service/internal/handlers"
	"github.com/salonbook/salonbook/services/auth-service/internal/otp"
	"github.com/salonbook/salonbook/services/auth-service/internal/sessions"
	"github.com/salonbook/salonbook/services/auth-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	_ = config.LoadDotenv()
	service := config.String("SERVICE_NAME", "auth-service")
	logger := runtime.NewLogger(service)

	port, err := config.Port("PORT", "8081")
	if err != nil {
		logger.Error("config error", "err", err)
		os.Exit(1)
	}
	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		logger.Error("config error", "err", err)
		os.Exit(1)
	}
	brokers := config.List("KAFKA_BROKERS", "")

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

	pool, err := db.Open(ctx, dbURL, db.Options{MaxConns: int32(config.Int("DB_MAX_CONNS", 10))})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     config.String("REDIS_ADDR", "localhost:6379"),
		Password: config.String("REDIS_PASSWORD", ""),
		DB:       config.Int("REDIS_DB", 0),
	})
	defer func() { _ = rdb.Close() }()

	signer, err := buildSigner()
	if err != nil {
		logger.Error("failed to init jwt signer", "err", err)
		os.Exit(1)
	}

	reg := metrics.NewRegistry()
	httpMetrics := metrics.NewHTTP(reg, service)

	outboxRepo := outbox.NewRepository()
	var writer outbox.MessageWriter
	if len(brokers) > 0 {
		w := kafkax.NewWriter(brokers)
		defer func() { _ = w.Close() }()
		writer = w
	}
	publisher := outbox.NewPublisher(pool, outboxRepo, writer, logger, outbox.PublisherConfig{Registerer: reg})
	go publisher.Run(ctx)

	authHandler := handlers.NewAuthHandler(
		signer,
		storage.NewRepository(pool),
		sessions.NewRefreshRepository(pool),
		outboxRepo,
		otp.NewStore(rdb, otp.Config{
			TTL:         config.Duration("OTP_TTL", otp.DefaultTTL),
			Cooldown:    config.Duration("OTP_COOLDOWN", otp.DefaultCooldown),
			MaxAttempts: config.Int("OTP_MAX_ATTEMPTS", otp.DefaultMaxAttempts),
		}),
		sms.New(config.String("SMS_WEBHOOK_URL", ""), config.String("SMS_WEBHOOK_TOKEN", ""), logger),
		logger,
		handlers.Config{
			AccessTTL:   config.Duration("ACCESS_TTL", 15*time.Minute),
			RefreshTTL:  config.Duration("REFRESH_TTL", 30*24*time.Hour),
			PhoneRegion: config.String("PHONE_DEFAULT_REGION", phone.DefaultRegion),
		},
	)

	router := chi.NewRouter()
	router.Use(httpMetrics.Middleware)
	authHandler.Routes(router)

	checks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
		{Name: "redis", Check: httpx.RedisReadyCheck(rdb)},
	}
	mux := runtime.NewBaseMux(reg, checks...)
	mux.Handle("/api/", router)
	mux.Handle("/.well-known/", router)

	handler := httpx.Chain(mux,
		httpx.WithRecover(logger),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(64<<10),
	)
	handler = otelhttp.NewHandler(handler, "auth")

	runtime.ServeHTTP(ctx, logger, &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	})
}

// buildSigner prefers RS256 when a private key is configured so the gateway
// can verify through JWKS.
func buildSigner() (auth.Signer, error) {
	if pemKey := config.String("JWT_PRIVATE_KEY_PEM", ""); pemKey != "" {
		return auth.NewRS256Signer([]byte(pemKey), config.String("JWT_KID", ""))
	}
	return auth.NewHS256Signer(config.String("JWT_SECRET", "dev-secret")), nil
}
