package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/salonbook/salonbook/libs/config"
	"github.com/salonbook/salonbook/libs/db"
	"github.com/salonbook/salonbook/libs/hours"
	"github.com/salonbook/salonbook/libs/httpx"
	"github.com/salonbook/salonbook/libs/kafkax"
	"github.com/salonbook/salonbook/libs/metrics"
	otelx "github.com/salonbook/salonbook/libs/otel"
	"github.com/salonbook/salonbook/libs/outbox"
	"github.com/salonbook/salonbook/libs/runtime"
	"github.com/salonbook/salonbook/services/booking-service/internal/availability"
	"github.com/salonbook/salonbook/services/booking-service/internal/booking"
	"github.com/salonbook/salonbook/services/booking-service/internal/handlers"
	"github.com/salonbook/salonbook/services/booking-service/internal/scheduling"
	"github.com/salonbook/salonbook/services/booking-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	_ = config.LoadDotenv()
	service := config.String("SERVICE_NAME", "booking-service")
	logger := runtime.NewLogger(service)

	port, err := config.Port("PORT", "8083")
	if err != nil {
		logger.Error("config error", "err", err)
		os.Exit(1)
	}
	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		logger.Error("config error", "err", err)
		os.Exit(1)
	}
	defaultOffset := config.Int("DEFAULT_UTC_OFFSET_MINUTES", 180)
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

	var schedules scheduling.Provider
	if addr := config.String("TENANT_GRPC_ADDR", ""); addr != "" {
		p, closeConn, err := scheduling.NewGRPCProvider(ctx, addr)
		if err != nil {
			logger.Error("tenant grpc dial failed", "addr", addr, "err", err)
			os.Exit(1)
		}
		defer func() { _ = closeConn() }()
		schedules = p
		logger.Info("schedules from tenant-service", "addr", addr)
	} else {
		defaultWeek, err := hours.LoadWeek(config.String("DEFAULT_WEEK_FILE", ""))
		if err != nil {
			logger.Error("default week load failed", "err", err)
			os.Exit(1)
		}
		schedules = scheduling.NewPGProvider(pool, defaultWeek)
		logger.Info("schedules from database")
	}

	reg := metrics.NewRegistry()
	httpMetrics := metrics.NewHTTP(reg, service)

	repo := storage.NewBookingRepository(pool)
	outboxRepo := outbox.NewRepository()
	avail := availability.NewService(schedules, repo, availability.SystemClock{}, defaultOffset)
	svc := booking.NewService(repo, outboxRepo, avail, logger, booking.NewMetrics(reg))

	var writer outbox.MessageWriter
	if len(brokers) > 0 {
		w := kafkax.NewWriter(brokers)
		defer func() { _ = w.Close() }()
		writer = w
	}
	publisher := outbox.NewPublisher(pool, outboxRepo, writer, logger, outbox.PublisherConfig{
		PollEvery:  config.Duration("OUTBOX_POLL_INTERVAL", 2*time.Second),
		BatchSize:  config.Int("OUTBOX_BATCH_SIZE", 50),
		Registerer: reg,
	})
	go publisher.Run(ctx)

	router := chi.NewRouter()
	router.Use(httpMetrics.Middleware)
	handlers.New(svc, logger).Routes(router)

	checks := []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}}
	if len(brokers) > 0 {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}
	mux := runtime.NewBaseMux(reg, checks...)
	mux.Handle("/api/", router)

	handler := httpx.Chain(mux,
		httpx.WithRecover(logger),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(config.Duration("REQUEST_TIMEOUT", 15*time.Second)),
	)
	handler = otelhttp.NewHandler(handler, "booking")

	runtime.ServeHTTP(ctx, logger, &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	})
}
