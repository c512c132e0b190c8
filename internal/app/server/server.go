package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Qrokawa/jinzai-ikusei/internal/domain/audit"
	"github.com/Qrokawa/jinzai-ikusei/internal/domain/auth"
	"github.com/Qrokawa/jinzai-ikusei/internal/domain/courses"
	"github.com/Qrokawa/jinzai-ikusei/internal/domain/evaluations"
	"github.com/Qrokawa/jinzai-ikusei/internal/domain/goals"
	"github.com/Qrokawa/jinzai-ikusei/internal/domain/identity"
	"github.com/Qrokawa/jinzai-ikusei/internal/domain/notifications"
	"github.com/Qrokawa/jinzai-ikusei/internal/domain/reports"
	"github.com/Qrokawa/jinzai-ikusei/internal/platform/config"
	cryptoutil "github.com/Qrokawa/jinzai-ikusei/internal/platform/crypto"
	"github.com/Qrokawa/jinzai-ikusei/internal/platform/db"
	"github.com/Qrokawa/jinzai-ikusei/internal/platform/email"
	"github.com/Qrokawa/jinzai-ikusei/internal/platform/jobs"
	"github.com/Qrokawa/jinzai-ikusei/internal/platform/metrics"
	audithandler "github.com/Qrokawa/jinzai-ikusei/internal/transport/http/handlers/audit"
	authhandler "github.com/Qrokawa/jinzai-ikusei/internal/transport/http/handlers/auth"
	courseshandler "github.com/Qrokawa/jinzai-ikusei/internal/transport/http/handlers/courses"
	evaluationshandler "github.com/Qrokawa/jinzai-ikusei/internal/transport/http/handlers/evaluations"
	goalshandler "github.com/Qrokawa/jinzai-ikusei/internal/transport/http/handlers/goals"
	notificationshandler "github.com/Qrokawa/jinzai-ikusei/internal/transport/http/handlers/notifications"
	reportshandler "github.com/Qrokawa/jinzai-ikusei/internal/transport/http/handlers/reports"
	usershandler "github.com/Qrokawa/jinzai-ikusei/internal/transport/http/handlers/users"
	"github.com/Qrokawa/jinzai-ikusei/internal/transport/http/middleware"
)

type App struct {
	Config config.Config
	DB     *pgxpool.Pool
	Router http.Handler
	Jobs   *jobs.Service
}

// New connects, migrates, seeds, and assembles the full router. Tests
// construct an App against their own database; Run wraps it with an
// HTTP listener.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	crypto, err := cryptoutil.New(cfg.DataEncryptionKey)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("encryption key: %w", err)
	}

	authStore := auth.NewStore(pool)
	auditRec := audit.NewRecorder(pool)
	notificationSvc := notifications.NewService(pool, email.New(cfg))

	identitySvc := identity.NewService(identity.NewStore(pool))
	goalSvc := goals.NewService(goals.NewStore(pool), notificationSvc)
	evaluationSvc := evaluations.NewService(evaluations.NewStore(pool), notificationSvc)
	courseSvc := courses.NewService(courses.NewStore(pool), notificationSvc)
	reportSvc := reports.NewService(pool, evaluationSvc)

	collector := metrics.New()
	jobSvc := jobs.New(pool, cfg)
	idemStore := middleware.NewIdempotencyStore(pool)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Metrics(collector))
	router.Use(middleware.Auth(cfg.JWTSecret, authStore))
	router.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
	router.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.With(middleware.RequirePermission(auth.PermReportsRead, authStore)).
			Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(collector.Snapshot())
			})
	}

	router.Route("/api/v1", func(r chi.Router) {
		authhandler.NewHandler(authStore, cfg, crypto).RegisterRoutes(r)
		usershandler.NewHandler(identitySvc, authStore, authStore, auditRec, cfg).RegisterRoutes(r)
		goalshandler.NewHandler(goalSvc, authStore, auditRec, cfg).RegisterRoutes(r)
		evaluationshandler.NewHandler(evaluationSvc, authStore, auditRec, idemStore, cfg).RegisterRoutes(r)
		courseshandler.NewHandler(courseSvc, authStore, auditRec, cfg).RegisterRoutes(r)
		notificationshandler.NewHandler(notificationSvc, authStore, cfg).RegisterRoutes(r)
		reportshandler.NewHandler(reportSvc, evaluationSvc, authStore).RegisterRoutes(r)
		audithandler.NewHandler(auditRec, authStore, cfg).RegisterRoutes(r)
	})

	return &App{Config: cfg, DB: pool, Router: router, Jobs: jobSvc}, nil
}

func (a *App) Close() {
	a.DB.Close()
}

func Run() error {
	cfg := config.Load()
	ctx := context.Background()

	app, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	app.Jobs.Start(ctx)

	slog.Info("server listening", "addr", cfg.Addr, "env", cfg.Environment)
	return http.ListenAndServe(cfg.Addr, app.Router)
}
