package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/salonbook/salonbook/libs/config"
	"github.com/salonbook/salonbook/libs/db"
	"github.com/salonbook/salonbook/libs/grpcx"
	"github.com/salonbook/salonbook/libs/hours"
	"github.com/salonbook/salonbook/libs/httpx"
	"github.com/salonbook/salonbook/libs/metrics"
	otelx "github.com/salonbook/salonbook/libs/otel"
	"github.com/salonbook/salonbook/libs/phone"
	"github.com/salonbook/salonbook/libs/runtime"
	"github.com/salonbook/salonbook/services/tenant-service/internal/grpcserver"
	"github.com/salonbook/salonbook/services/tenant-service/internal/handlers"
	"github.com/salonbook/salonbook/services/tenant-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	_ = config.LoadDotenv()
	service := config.String("SERVICE_NAME", "tenant-service")
	logger := runtime.NewLogger(service)

	port, err := config.Port("PORT", "8082")
	if err != nil {
		logger.Error("config error", "err", err)
		os.Exit(1)
	}
	grpcPort, err := config.Port("GRPC_PORT", "9090")
	if err != nil {
		logger.Error("config error", "err", err)
		os.Exit(1)
	}
	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		logger.Error("config error", "err", err)
		os.Exit(1)
	}
	defaultWeek, err := hours.LoadWeek(config.String("DEFAULT_WEEK_FILE", ""))
	if err != nil {
		logger.Error("default week load failed", "err", err)
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

	pool, err := db.Open(ctx, dbURL, db.Options{MaxConns: int32(config.Int("DB_MAX_CONNS", 10))})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	repo := storage.NewRepository(pool, defaultWeek)
	reg := metrics.NewRegistry()
	httpMetrics := metrics.NewHTTP(reg, service)

	router := chi.NewRouter()
	router.Use(httpMetrics.Middleware)
	handlers.New(repo, logger, config.String("PHONE_DEFAULT_REGION", phone.DefaultRegion)).Routes(router)

	mux := runtime.NewBaseMux(reg, runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)})
	mux.Handle("/api/", router)

	handler := httpx.Chain(mux,
		httpx.WithRecover(logger),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1<<20),
	)
	handler = otelhttp.NewHandler(handler, "tenant")

	lis, err := net.Listen("tcp", ":"+grpcPort)
	if err != nil {
		logger.Error("grpc listen failed", "err", err)
		os.Exit(1)
	}
	grpcSrv := grpcx.NewServer(logger)
	grpcserver.Register(grpcSrv, repo)
	go grpcx.Serve(ctx, logger, grpcSrv, lis)

	runtime.ServeHTTP(ctx, logger, &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	})
}
