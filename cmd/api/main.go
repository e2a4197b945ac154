// Package main is the entrypoint for the Spendlog API server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/spendlog/spendlog/internal/auth"
	"github.com/spendlog/spendlog/internal/cache"
	"github.com/spendlog/spendlog/internal/config"
	"github.com/spendlog/spendlog/internal/handler"
	"github.com/spendlog/spendlog/internal/metrics"
	"github.com/spendlog/spendlog/internal/middleware"
	"github.com/spendlog/spendlog/internal/repository"
	"github.com/spendlog/spendlog/internal/server"
	"github.com/spendlog/spendlog/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := initLogger(cfg)

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", config.SanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", config.RedactURL(cfg.DatabaseURL)),
		)
		return errors.New("database unavailable")
	}
	logger.Info("connected to database")

	if cfg.AutoMigrate {
		if err := migrate(ctx, repo, logger); err != nil {
			repo.Close()
			return err
		}
	}

	var (
		cacheClient *cache.Cache
		revocations auth.RevocationStore
		readyCache  handler.HealthChecker
	)
	switch cfg.RevocationStore {
	case config.RevocationStoreRedis:
		cacheClient, err = cache.New(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error(
				"failed to connect to Redis",
				slog.String("error", config.SanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", config.RedactURL(cfg.RedisURL)),
			)
			repo.Close()
			return errors.New("redis unavailable")
		}
		logger.Info("connected to Redis")
		revocations = cache.NewRevocationStore(cacheClient)
		readyCache = cacheClient
	default:
		logger.Warn("using in-memory token revocation; revoked tokens become valid again after restart")
		revocations = auth.NewMemoryRevocationStore()
	}

	metricsRecorder := metrics.NewInMemory()
	tokens := auth.NewTokenService(auth.TokenConfig{
		Secret: []byte(cfg.JWTSecret),
		TTL:    cfg.TokenTTL,
		Issuer: cfg.TokenIssuer,
	}, revocations)

	userService := service.NewUserService(repo, auth.NewPasswordHasher(auth.DefaultArgon2Params), metricsRecorder)
	expenseService := service.NewExpenseService(repo, metricsRecorder)

	routes := handler.Routes{
		Root:     handler.New(),
		Health:   handler.NewHealthHandler(repo, readyCache, logger),
		Metrics:  handler.NewMetricsHandler(metricsRecorder),
		Auth:     handler.NewAuthHandler(userService, tokens, metricsRecorder, logger),
		Expenses: handler.NewExpenseHandler(expenseService, logger),
		RequireAuth: middleware.Auth(middleware.AuthConfig{
			Logger:  logger,
			Tokens:  tokens,
			Metrics: metricsRecorder,
		}),
	}

	r := setupRouter(routes, cfg, logger)

	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)
	srv.OnShutdown("postgres", func(context.Context) error {
		repo.Close()
		return nil
	})
	if cacheClient != nil {
		srv.OnShutdown("redis", func(context.Context) error {
			return cacheClient.Close()
		})
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"revocation_store", cfg.RevocationStore,
	)

	return srv.Run(ctx)
}

// migrate applies pending schema migrations.
func migrate(ctx context.Context, repo *repository.Repository, logger *slog.Logger) error {
	m, err := repo.NewMigrator(logger)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(ctx); err != nil {
		return err
	}

	version, err := m.Version(ctx)
	if err != nil {
		return err
	}
	logger.Info("database schema up to date", "version", version)
	return nil
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupRouter configures the chi router with global middleware and all routes.
func setupRouter(routes handler.Routes, cfg *config.Config, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.GetCORSAllowedOrigins()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment()}))
	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))

	routes.Mount(r)

	return r
}
