package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clinic-bot/internal/auth"
	"clinic-bot/internal/booking"
	"clinic-bot/internal/config"
	"clinic-bot/internal/conversation"
	"clinic-bot/internal/followup"
	"clinic-bot/internal/httpapi"
	"clinic-bot/internal/messaging"
	"clinic-bot/internal/observability/metrics"
	"clinic-bot/internal/rbac"
	"clinic-bot/internal/slots"
	"clinic-bot/migrations"
	"clinic-bot/pkg/logger"
	"clinic-bot/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env, cfg.App.LogLevel)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if cfg.DB.AutoMigrate {
		if err := migrations.Up(cfg.PostgresURL()); err != nil {
			log.Error("schema migration failed", "err", err)
			os.Exit(1)
		}
		log.Info("schema up to date")
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	var rdb *redis.Client
	if cfg.RedisEnabled() {
		rdb, err = utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
	}
	log.Warn("slot pool is held in process memory; run a single replica", "redis_caller_locks", rdb != nil)

	adminAuth, err := adminAuthMiddleware(cfg, log)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(db, cfg.DB.Name),
	)

	bot, err := newApp(appDeps{
		Config:   cfg,
		Repo:     booking.NewPostgresRepo(db),
		Redis:    rdb,
		Registry: reg,
		Logger:   log,
	})
	if err != nil {
		log.Error("app init failed", "err", err)
		os.Exit(1)
	}
	bot.api.Readiness = readinessChecks(db, rdb)

	if cfg.Followup.Interval > 0 {
		go followup.NewRunner(bot.scheduler, cfg.Followup.Interval, log).Run(rootCtx)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, routeDeps{
		Webhook:   bot.webhook,
		API:       bot.api,
		AdminAuth: adminAuth,
		Metrics:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "slots", len(cfg.Clinic.Slots))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}

type appDeps struct {
	Config   config.Config
	Repo     booking.Repository
	Redis    *redis.Client
	Registry prometheus.Registerer
	Logger   *slog.Logger
}

type app struct {
	pool      *slots.Pool
	engine    *conversation.Engine
	scheduler *followup.Scheduler
	webhook   messaging.WebhookHandler
	api       httpapi.Handlers
}

// newApp builds the booking components on top of an already opened store.
func newApp(d appDeps) (*app, error) {
	pool, err := slots.NewPool(d.Config.Clinic.Slots)
	if err != nil {
		return nil, err
	}

	m := metrics.NewBookingMetrics(d.Registry)
	m.TrackSlots(pool)

	var locker conversation.Locker = conversation.NewLocalLocker()
	if d.Redis != nil {
		locker = conversation.NewRedisLocker(d.Redis, d.Config.Conversation.LockTTL, d.Logger)
	}

	engine := conversation.NewEngine(d.Repo, pool, conversation.Options{
		ClinicName: d.Config.Clinic.Name,
		Locker:     locker,
		Recorder:   m,
		Logger:     d.Logger,
	})
	scheduler := followup.NewScheduler(d.Repo, followup.Options{
		Threshold: d.Config.Followup.After,
		Recorder:  m,
		Logger:    d.Logger,
	})

	return &app{
		pool:      pool,
		engine:    engine,
		scheduler: scheduler,
		webhook: messaging.WebhookHandler{
			Provider: messaging.NewTwilioProvider(),
			Engine:   engine,
			Latency:  m,
		},
		api: httpapi.Handlers{
			Followups: scheduler,
			Slots:     engine,
		},
	}, nil
}

func adminAuthMiddleware(cfg config.Config, log *slog.Logger) (gin.HandlerFunc, error) {
	if !cfg.Auth.Enabled() {
		// Validate refuses this in production.
		log.Warn("JWT_SECRET not set; /v1 is open with a local owner identity")
		return auth.LocalIdentity("local", rbac.RoleOwner), nil
	}
	m, err := auth.NewManager(cfg.Auth)
	if err != nil {
		return nil, err
	}
	return auth.RequireAccessToken(m), nil
}

func readinessChecks(db *sql.DB, rdb *redis.Client) []httpapi.ReadinessCheck {
	checks := []httpapi.ReadinessCheck{{
		Name:  "postgres",
		Check: func(ctx context.Context) error { return utils.HealthCheck(ctx, db, 2*time.Second) },
	}}
	if rdb != nil {
		checks = append(checks, httpapi.ReadinessCheck{
			Name: "redis",
			Check: func(ctx context.Context) error {
				ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
				defer cancel()
				return rdb.Ping(ctx).Err()
			},
		})
	}
	return checks
}
