package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"go.uber.org/zap"

	"perfcycle/internal/domain/audit"
	"perfcycle/internal/domain/auth"
	"perfcycle/internal/domain/feedback"
	"perfcycle/internal/domain/hierarchy"
	"perfcycle/internal/domain/notifications"
	"perfcycle/internal/domain/users"
	"perfcycle/internal/platform/config"
	"perfcycle/internal/platform/db"
	"perfcycle/internal/platform/lock"
	"perfcycle/internal/platform/logger"
	"perfcycle/internal/platform/metrics"
	audithandler "perfcycle/internal/transport/http/handlers/audit"
	authhandler "perfcycle/internal/transport/http/handlers/auth"
	feedbackhandler "perfcycle/internal/transport/http/handlers/feedback"
	notificationshandler "perfcycle/internal/transport/http/handlers/notifications"
	usershandler "perfcycle/internal/transport/http/handlers/users"
	"perfcycle/internal/transport/http/middleware"
)

type App struct {
	Config config.Config
	DB     *pgxpool.Pool
	Router http.Handler
	Log    *zap.Logger

	redis *redis.Client
}

// New connects every dependency and builds the router. Callers own the
// returned App and must Close it.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(log)

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "db connect")
	}
	app := &App{Config: cfg, DB: pool, Log: log}

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, log); err != nil {
			app.Close()
			return nil, errors.Wrap(err, "migrations")
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			app.Close()
			return nil, errors.Wrap(err, "seed")
		}
	}

	var locker lock.Locker = lock.NewLocal()
	if cfg.RedisURL != "" {
		rdb, err := lock.Connect(ctx, cfg.RedisURL)
		if err != nil {
			app.Close()
			return nil, errors.Wrap(err, "redis connect")
		}
		app.redis = rdb
		locker = lock.NewRedis(rdb, log)
	} else {
		log.Info("REDIS_URL not set, delete locks and rate limits are process-local")
	}

	app.Router = app.routes(locker)
	return app, nil
}

func (a *App) rateStore() limiter.Store {
	if a.redis == nil {
		return middleware.NewMemoryRateStore()
	}
	store, err := middleware.NewRedisRateStore(a.redis)
	if err != nil {
		a.Log.Warn("redis rate limit store unavailable, falling back to memory", zap.Error(err))
		return middleware.NewMemoryRateStore()
	}
	return store
}

func (a *App) routes(locker lock.Locker) http.Handler {
	cfg := a.Config
	perms := auth.StaticPermissions{}
	auditSvc := audit.New(a.DB)
	notifySvc := notifications.New(notifications.NewStore(a.DB))
	feedbackSvc := feedback.NewService(feedback.NewStore(a.DB), a.Log)
	usersSvc := users.NewService(users.NewStore(a.DB), hierarchy.NewGuard(hierarchy.NewStore(a.DB)), locker, cfg.DeleteLockTTL, a.Log)

	registry := prometheus.NewRegistry()
	collector := metrics.New(registry)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Auth(cfg.JWTSecret))
	router.Use(middleware.Logger(a.Log))
	router.Use(middleware.Recoverer(a.Log))
	router.Use(middleware.SecureHeaders(cfg.IsProduction()))
	router.Use(middleware.Metrics(collector))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.DB.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		gatherers := prometheus.Gatherers{prometheus.DefaultGatherer, registry}
		router.Handle("/metrics", promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{}))
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(chimw.Timeout(cfg.RequestTimeout))
		if cfg.RateLimitPerMin > 0 {
			r.Use(middleware.NewRateLimiter(a.rateStore(), cfg.RateLimitPerMin, time.Minute).Middleware)
		}

		authHandler := authhandler.NewHandler(auth.NewStore(a.DB), cfg.JWTSecret, cfg.TokenTTL, a.Log)
		r.Post("/auth/login", authHandler.HandleLogin)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)

			feedbackHandler := feedbackhandler.NewHandler(feedbackSvc, perms, notifySvc, auditSvc, middleware.NewIdempotencyStore(a.DB), a.Log)
			feedbackHandler.RegisterRoutes(r)

			usersHandler := usershandler.NewHandler(usersSvc, perms, notifySvc, auditSvc, a.Log)
			usersHandler.RegisterRoutes(r)

			notificationsHandler := notificationshandler.NewHandler(notifySvc, perms, a.Log)
			notificationsHandler.RegisterRoutes(r)

			auditHandler := audithandler.NewHandler(auditSvc, perms, a.Log)
			auditHandler.RegisterRoutes(r)
		})
	})

	return router
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Log.Info("perfcycle server listening", zap.String("addr", a.Config.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "listen")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	a.Log.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	return nil
}

func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.Log.Warn("redis close failed", zap.Error(err))
		}
	}
	if a.DB != nil {
		a.DB.Close()
	}
	_ = a.Log.Sync()
}
