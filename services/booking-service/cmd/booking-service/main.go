package main

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/md-rashed-zaman/servibook/libs/config"
	"github.com/md-rashed-zaman/servibook/libs/db"
	"github.com/md-rashed-zaman/servibook/libs/httpx"
	"github.com/md-rashed-zaman/servibook/libs/kafkax"
	otelx "github.com/md-rashed-zaman/servibook/libs/otel"
	"github.com/md-rashed-zaman/servibook/libs/runtime"
	"github.com/md-rashed-zaman/servibook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/servibook/services/booking-service/internal/email"
	"github.com/md-rashed-zaman/servibook/services/booking-service/internal/handlers"
	"github.com/md-rashed-zaman/servibook/services/booking-service/internal/notify"
	"github.com/md-rashed-zaman/servibook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/servibook/services/booking-service/internal/storage"
	"github.com/md-rashed-zaman/servibook/services/booking-service/internal/whatsapp"
)

func main() {
	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "8081")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

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

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL, db.Options{
		MaxConns: int32(config.Int("DB_MAX_CONNS", 10)),
	})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	outboxRepo := outbox.NewRepository(pool)
	appointments := storage.NewAppointmentRepository(pool, outboxRepo)
	users := storage.NewUserRepository(pool)

	kafkaBrokers := config.String("KAFKA_BROKERS", "")
	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   kafkaBrokers,
		PollEvery: config.Duration("OUTBOX_POLL_EVERY", 2*time.Second),
		BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
	})
	go outboxPublisher.Run(ctx)

	emailSender := email.NewSMTPSender(email.Config{
		Host:     config.String("SMTP_HOST", "localhost"),
		Port:     config.String("SMTP_PORT", "587"),
		Username: config.String("SMTP_USERNAME", ""),
		Password: config.String("SMTP_PASSWORD", ""),
		From:     config.String("SMTP_FROM", "noreply@servibook.local"),
	})

	var messageSender notify.MessageSender
	switch provider := config.String("WHATSAPP_PROVIDER", "noop"); provider {
	case "evolution":
		messageSender = whatsapp.NewEvolutionSender(whatsapp.Config{
			BaseURL:  config.String("WHATSAPP_BASE_URL", "http://localhost:8084"),
			APIKey:   config.String("WHATSAPP_API_KEY", ""),
			Instance: config.String("WHATSAPP_INSTANCE", "servibook"),
		}, nil)
	default:
		logger.Warn("whatsapp provider disabled, messages discarded", "provider", provider)
		messageSender = whatsapp.NoopSender{}
	}

	orchestrator := notify.NewOrchestrator(emailSender, messageSender, logger, notify.Config{
		MaxAttempts: config.Int("NOTIFY_MAX_ATTEMPTS", 3),
		RetryDelay:  config.Duration("NOTIFY_RETRY_DELAY", time.Second),
	})

	svc := booking.NewService(appointments, users, orchestrator, logger)
	appointmentHandler := handlers.NewAppointmentHandler(svc, logger)

	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
	}
	if kafkaBrokers != "" {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(kafkaBrokers)})
	}

	var rateLimit httpx.Middleware
	if redisAddr := config.String("REDIS_ADDR", ""); redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
		limiter := httpx.NewRedisRateLimiter(rdb,
			config.Int("RATE_LIMIT", 60),
			config.Duration("RATE_LIMIT_WINDOW", time.Minute),
			service)
		rateLimit = limiter.Middleware(logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true))
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: httpx.RedisReadyCheck(rdb)})
	} else {
		rateLimit = httpx.NewRateLimiter(
			config.Int("RATE_LIMIT", 60),
			config.Duration("RATE_LIMIT_WINDOW", time.Minute)).Middleware()
	}

	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	mux.HandleFunc("/api/v1/appointments/book", appointmentHandler.Book)
	mux.HandleFunc("/api/v1/appointments/update", appointmentHandler.Update)
	mux.HandleFunc("/api/v1/appointments/cancel-by-fixer", appointmentHandler.CancelByFixer)
	mux.HandleFunc("/api/v1/appointments/get", appointmentHandler.Get)

	httpHandler := httpx.Chain(mux,
		httpx.WithRecover(logger),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins:   config.List("CORS_ALLOWED_ORIGINS"),
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Content-Type", "Authorization"},
			AllowCredentials: config.Bool("CORS_ALLOW_CREDENTIALS", false),
			MaxAge:           10 * time.Minute,
		}),
		rateLimit,
		httpx.WithBodyLimit(int64(config.Int("HTTP_BODY_LIMIT_BYTES", 1<<20))),
		httpx.WithTimeout(config.Duration("HTTP_TIMEOUT", 15*time.Second)),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
