package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/salonbook/salonbook/libs/config"
	"github.com/salonbook/salonbook/libs/db"
	"github.com/salonbook/salonbook/libs/events"
	"github.com/salonbook/salonbook/libs/httpx"
	"github.com/salonbook/salonbook/libs/kafkax"
	"github.com/salonbook/salonbook/libs/metrics"
	otelx "github.com/salonbook/salonbook/libs/otel"
	"github.com/salonbook/salonbook/libs/runtime"
	"github.com/salonbook/salonbook/libs/sms"
	"github.com/salonbook/salonbook/services/notification-service/internal/consumer"
	"github.com/salonbook/salonbook/services/notification-service/internal/email"
	"github.com/salonbook/salonbook/services/notification-service/internal/inbox"
	"github.com/salonbook/salonbook/services/notification-service/internal/notifier"
	"github.com/salonbook/salonbook/services/notification-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	_ = config.LoadDotenv()
	service := config.String("SERVICE_NAME", "notification-service")
	logger := runtime.NewLogger(service)

	port, err := config.Port("PORT", "8085")
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
	if len(brokers) == 0 {
		logger.Error("config error", "err", "KAFKA_BROKERS is required")
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

	pool, err := db.Open(ctx, dbURL, db.Options{MaxConns: int32(config.Int("DB_MAX_CONNS", 5))})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	reg := metrics.NewRegistry()

	smsSender := sms.New(config.String("SMS_WEBHOOK_URL", ""), config.String("SMS_WEBHOOK_TOKEN", ""), logger)
	emailSender := email.New(email.Config{
		SMTPHost:       config.String("SMTP_HOST", ""),
		SMTPPort:       config.String("SMTP_PORT", "1025"),
		From:           config.String("EMAIL_FROM", "no-reply@salonbook.local"),
		FromName:       config.String("EMAIL_FROM_NAME", "SalonBook"),
		SendGridAPIKey: config.String("SENDGRID_API_KEY", ""),
	}, logger)
	logger.Info("notification providers", "sms", smsSender.ProviderID(), "email", emailSender.ProviderID())

	n := notifier.New(storage.NewRepository(pool), smsSender, emailSender, logger, reg)

	topics := append(append([]string{}, events.AppointmentTopics...), events.TenantRegistered)
	reader := kafkax.NewReader(kafkax.ReaderConfig{
		Brokers: brokers,
		GroupID: config.String("KAFKA_GROUP_ID", service),
		Topics:  topics,
	})
	eventConsumer := consumer.New(logger, reader, inbox.NewRepository(pool, service), n.Handle)
	go eventConsumer.Run(ctx)

	mux := runtime.NewBaseMux(reg,
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	handler := httpx.Chain(mux,
		httpx.WithRecover(logger),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "notification")

	runtime.ServeHTTP(ctx, logger, &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	})
}
