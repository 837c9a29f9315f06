package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/agenda/libs/auth"
	"github.com/md-rashed-zaman/agenda/libs/config"
	"github.com/md-rashed-zaman/agenda/libs/db"
	"github.com/md-rashed-zaman/agenda/libs/grpcx"
	"github.com/md-rashed-zaman/agenda/libs/httpx"
	"github.com/md-rashed-zaman/agenda/libs/kafkax"
	otelx "github.com/md-rashed-zaman/agenda/libs/otel"
	"github.com/md-rashed-zaman/agenda/libs/runtime"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/availability"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/blocks"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/calendar"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/handlers"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/metrics"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/notify"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/orchestrator"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/reminders"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/settings"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	_ = config.LoadDotenv()
	service := config.String("SERVICE_NAME", "scheduling-service")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	grpcPort, err := config.Port("GRPC_PORT", "9090")
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

	cfg, err := settings.Load(config.String("SETTINGS_FILE", "config/scheduling.yaml"))
	if err != nil {
		logger.Error("settings load failed", "err", err)
		panic(err)
	}
	loc, err := cfg.Location()
	if err != nil {
		panic(err)
	}
	defaultHours, err := cfg.BusinessHours()
	if err != nil {
		panic(err)
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	maxConns, err := config.Int("DB_MAX_CONNS", 10)
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL, db.Options{MaxConns: int32(maxConns)})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewSchedulingMetrics(reg)

	store, err := openCalendar(ctx, loc, logger)
	if err != nil {
		logger.Error("calendar init failed", "err", err)
		panic(err)
	}
	reader := calendar.NewReader(store, loc)

	records := storage.NewRepository(pool, defaultHours, cfg.DefaultDurationMinutes)
	planner := availability.NewPlanner(records, reader, loc)

	reminderRepo := reminders.NewRepository(pool)
	manager := reminders.NewManager(reminderRepo, reminders.Config{
		Enabled:  cfg.Reminders.Enabled,
		LeadTime: cfg.ReminderLeadTime(),
	}, logger)

	var sender notify.Dispatcher = notify.NewNoopSender()
	if url := config.String("WHATSAPP_WEBHOOK_URL", ""); url != "" {
		sender = notify.NewWebhookSender(url, config.String("WHATSAPP_WEBHOOK_TOKEN", ""))
	} else {
		logger.Warn("whatsapp webhook not configured; messages are logged only")
	}

	origins := config.List("CORS_ALLOWED_ORIGINS")
	hub := notify.NewHub(logger, origins)
	defer hub.Close()
	fanout := notify.Multi{hub}
	brokers := config.String("KAFKA_BROKERS", "")
	if strings.TrimSpace(brokers) != "" {
		kn := notify.NewKafkaNotifier(brokers, config.String("KAFKA_NOTIFY_TOPIC", "scheduling.events.v1"), logger)
		defer func() { _ = kn.Close() }()
		fanout = append(fanout, kn)
	}
	if creds := config.String("FIREBASE_CREDENTIALS", ""); creds != "" {
		fcm, err := notify.NewFCMNotifier(ctx, creds, config.String("FCM_TOPIC", "agenda"), logger)
		if err != nil {
			logger.Error("fcm init failed; push disabled", "err", err)
		} else {
			fanout = append(fanout, fcm)
		}
	}
	notifiers := notify.NewAsync(fanout, 256, 5*time.Second, logger)
	defer notifiers.Close()

	pollEvery, err := config.Duration("REMINDER_POLL_INTERVAL", 30*time.Second)
	if err != nil {
		panic(err)
	}
	worker := reminders.NewWorker(pool, reminderRepo, sender, reader, m, logger, reminders.WorkerConfig{
		Interval: pollEvery,
		Location: loc,
	}).WithNotifier(notifiers)
	go worker.Run(ctx)

	job := blocks.NewJob(records, cfg.BlockHorizonDays, loc, m, logger)
	if err := job.Start(ctx, cfg.BlockCron); err != nil {
		logger.Error("block job start failed", "err", err)
		panic(err)
	}

	orch := orchestrator.New(orchestrator.Deps{
		Calendar:     store,
		Appointments: reader,
		Slots:        planner,
		Reminders:    manager,
		Directory:    records,
		Dispatcher:   sender,
		Notifier:     notifiers,
		Metrics:      m,
		Logger:       logger,
	}, orchestrator.Config{
		Location:          loc,
		SeriesHorizonDays: cfg.SeriesHorizonDays,
	})
	schedulingHandler := handlers.NewSchedulingHandler(orch, planner, reader, logger, loc, cfg.BusinessName)

	checks := []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}}
	if brokers != "" {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}
	limiter, rdb := newLimiter()
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}
	failOpen, err := config.Bool("RATE_LIMIT_FAIL_OPEN", true)
	if err != nil {
		panic(err)
	}
	requireAuth := auth.RequireBearer(config.String("AUTH_JWT_SECRET", ""))

	api := http.NewServeMux()
	schedulingHandler.Register(api)
	apiHandler := httpx.Chain(api,
		httpx.RateLimit(limiter, logger, failOpen),
		requireAuth,
		httpx.WithBodyLimit(1<<20),
		// Mutations finish detached from the request and always answer with their counts.
		httpx.WithTimeoutUnless(15*time.Second, func(r *http.Request) bool {
			return r.Method == http.MethodPost
		}),
	)

	mux := runtime.NewBaseMuxWithReady(checks...)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("GET /ws/notifications", requireAuth(hub))
	mux.Handle("/api/", apiHandler)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithRecover(logger),
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.DefaultCORSPolicy(origins)),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "scheduling")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcSrv, health := grpcx.NewServer(logger, service)
	lis, err := net.Listen("tcp", ":"+grpcPort)
	if err != nil {
		logger.Error("grpc listen failed", "err", err)
		panic(err)
	}
	go func() {
		logger.Info("grpc server starting", "addr", lis.Addr().String())
		if err := grpcSrv.Serve(lis); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	health.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	grpcSrv.GracefulStop()
	logger.Info("http server stopped")
}

// openCalendar uses Google Calendar when configured and an in-process store otherwise.
func openCalendar(ctx context.Context, loc *time.Location, logger *slog.Logger) (calendar.Store, error) {
	calendarID := config.String("GOOGLE_CALENDAR_ID", "")
	if calendarID == "" {
		logger.Warn("GOOGLE_CALENDAR_ID not set; appointments are kept in memory")
		return calendar.NewMemoryStore(), nil
	}
	return calendar.NewGoogleStore(ctx, calendarID, config.String("GOOGLE_CREDENTIALS_FILE", ""), loc)
}

func newLimiter() (httpx.Limiter, *redis.Client) {
	limit, err := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	if err != nil {
		panic(err)
	}
	addr := config.String("REDIS_ADDR", "")
	if addr == "" {
		return httpx.NewMemoryLimiter(limit, time.Minute), nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: config.String("REDIS_PASSWORD", ""),
	})
	return httpx.NewRedisLimiter(rdb, limit, time.Minute, "agenda:ratelimit:"), rdb
}
