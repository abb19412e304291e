package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/fertility-intake-platform/internal/api/router"
	appconfig "github.com/wolfman30/fertility-intake-platform/internal/config"
	"github.com/wolfman30/fertility-intake-platform/internal/intake"
	"github.com/wolfman30/fertility-intake-platform/internal/observability/metrics"
	"github.com/wolfman30/fertility-intake-platform/pkg/logging"
)

func main() {
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting fertility-intake-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	registry := prometheus.NewRegistry()
	intakeMetrics := metrics.NewIntakeMetrics(registry)

	// Session store: Redis when configured, in-memory otherwise.
	var store intake.SessionStore
	if cfg.RedisAddr != "" {
		opts := &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		client := redis.NewClient(opts)
		if err := client.Ping(context.Background()).Err(); err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		store = intake.NewRedisSessionStore(client, cfg.SessionTTL)
		logger.Info("using redis session store", "addr", cfg.RedisAddr)
	} else {
		store = intake.NewMemorySessionStore(cfg.SessionTTL)
		logger.Info("using in-memory session store")
	}

	// Hint source: Gemini when a key is configured, otherwise none.
	extractorOpts := []intake.ExtractorOption{intake.WithMetrics(intakeMetrics)}
	if cfg.GeminiAPIKey != "" {
		hints, err := intake.NewGeminiHintSource(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModelID, logger)
		if err != nil {
			logger.Error("failed to create gemini hint source", "error", err)
			os.Exit(1)
		}
		defer hints.Close()
		extractorOpts = append(extractorOpts, intake.WithHintSource(hints, cfg.HintTimeout))
		logger.Info("gemini hint source enabled", "model", cfg.GeminiModelID)
	}
	extractor := intake.NewExtractor(logger, extractorOpts...)

	// Completed-record archive: optional Postgres.
	engineOpts := []intake.EngineOption{intake.WithEngineMetrics(intakeMetrics)}
	var archive *intake.ArchiveStore
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		archive = intake.NewArchiveStore(db)
		engineOpts = append(engineOpts, intake.WithArchive(archive))
		logger.Info("record archive enabled")
	}

	engine := intake.NewEngine(store, extractor, logger, engineOpts...)
	intakeHandler := intake.NewHandler(engine, archive, logger)

	var corsOrigins []string
	if cfg.CORSAllowedOrigins != "" {
		corsOrigins = strings.Split(cfg.CORSAllowedOrigins, ",")
	}

	r := router.New(&router.Config{
		Logger:             logger,
		IntakeHandler:      intakeHandler,
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		AdminAuthSecret:    cfg.AdminJWTSecret,
		CORSAllowedOrigins: corsOrigins,
		RateLimitPerSec:    5,
		RateLimitBurst:     10,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited")
}
