// Command server runs the legal document analysis API.
//
// Startup order:
//  1. Load .env (best effort) and the typed configuration.
//  2. Configure zerolog (level, optional pretty console output).
//  3. Initialize OpenTelemetry tracing when enabled.
//  4. Open SQLite, run migrations, attach the GORM tracing plugin.
//  5. Build the AI client, the background job queue, and the Gin router.
//  6. Serve until SIGINT/SIGTERM, then drain in-flight HTTP requests and
//     background jobs before exiting.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/legaluplift/go-legal-backend/internal/ai"
	"github.com/legaluplift/go-legal-backend/internal/config"
	httpapi "github.com/legaluplift/go-legal-backend/internal/http"
	"github.com/legaluplift/go-legal-backend/internal/observability"
	"github.com/legaluplift/go-legal-backend/internal/repo"
	"github.com/legaluplift/go-legal-backend/internal/sysutil"
	"github.com/legaluplift/go-legal-backend/internal/worker"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

// @title           Legal Uplifter API
// @version         1.0
// @description     Document upload, AI analysis, and chat assistant backend.
// @BasePath        /api/v1
func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	log.Info().Str("version", version).Str("port", cfg.Port).Msg("starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing (no-op shutdown when disabled).
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate failed")
	}
	if cfg.OTEL.Enabled {
		if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
			log.Warn().Err(err).Msg("gorm tracing plugin not installed")
		}
	}

	aiClient := ai.NewClient(cfg.AI.BaseURL, cfg.AI.APIKey, ai.WithModel(cfg.AI.Model))

	queue := worker.New(cfg.Worker.Count, cfg.Worker.QueueSize, cfg.AI.AnalysisTimeout)

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, aiClient, queue, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
		}
	}

	// Drain: stop accepting requests, then let pending jobs finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown incomplete")
	}
	queue.Stop()

	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("otel shutdown incomplete")
	}
	log.Info().Msg("stopped")
}
