// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging, panic recovery, metrics, CORS,
// security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/legaluplift/go-legal-backend/docs"
	"github.com/legaluplift/go-legal-backend/internal/config"
	"github.com/legaluplift/go-legal-backend/internal/domain"
	"github.com/legaluplift/go-legal-backend/internal/http/handlers"
	"github.com/legaluplift/go-legal-backend/internal/http/middleware"
	"github.com/legaluplift/go-legal-backend/internal/repo"
	"github.com/legaluplift/go-legal-backend/internal/services"
)

// documentRepoShim adapts the repository free functions to the
// services.DocumentRepo interface expected by the DocumentService. This keeps
// services decoupled from the concrete repo package while reusing existing
// functions.
type documentRepoShim struct{}

// CreateDocument proxies repo.CreateDocument.
func (documentRepoShim) CreateDocument(ctx context.Context, db *gorm.DB, userID, title, category, fileID, originalText string) (*domain.Document, error) {
	return repo.CreateDocument(ctx, db, userID, title, category, fileID, originalText)
}

// ListDocuments proxies repo.ListDocuments.
func (documentRepoShim) ListDocuments(ctx context.Context, db *gorm.DB, userID string) ([]domain.Document, error) {
	return repo.ListDocuments(ctx, db, userID)
}

// CountDocuments proxies repo.CountDocuments (pagination support).
func (documentRepoShim) CountDocuments(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	return repo.CountDocuments(ctx, db, userID)
}

// ListDocumentsPage proxies repo.ListDocumentsPage (pagination support).
func (documentRepoShim) ListDocumentsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Document, error) {
	return repo.ListDocumentsPage(ctx, db, userID, offset, limit)
}

// GetDocument proxies repo.GetDocument.
func (documentRepoShim) GetDocument(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Document, error) {
	return repo.GetDocument(ctx, db, id, userID)
}

// GetDocumentAny proxies repo.GetDocumentAny (background worker lookups).
func (documentRepoShim) GetDocumentAny(ctx context.Context, db *gorm.DB, id string) (*domain.Document, error) {
	return repo.GetDocumentAny(ctx, db, id)
}

// UpdateDocumentStatus proxies repo.UpdateDocumentStatus.
func (documentRepoShim) UpdateDocumentStatus(ctx context.Context, db *gorm.DB, id, status string) error {
	return repo.UpdateDocumentStatus(ctx, db, id, status)
}

// UpdateDocumentAnalysis proxies repo.UpdateDocumentAnalysis.
func (documentRepoShim) UpdateDocumentAnalysis(ctx context.Context, db *gorm.DB, id, summary string, keyPoints []string, riskLevel string, glossary []domain.GlossaryTerm) error {
	return repo.UpdateDocumentAnalysis(ctx, db, id, summary, keyPoints, riskLevel, glossary)
}

// UpdateDocumentNotes proxies repo.UpdateDocumentNotes.
func (documentRepoShim) UpdateDocumentNotes(ctx context.Context, db *gorm.DB, id, userID, notes string) error {
	return repo.UpdateDocumentNotes(ctx, db, id, userID, notes)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), idempotency and rate
// limiting, CORS and security headers, health and metrics endpoints, and then
// mounts the versioned public API under /api/v*.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Gzip compression for responses
//  7. Metrics
//  8. Idempotency validator (before rate limiter to allow bypass on replay)
//  9. Rate limiter (per user/IP, bypass on replay)
//  10. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, aiClient services.Analyzer, queue services.JobQueue, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			"X-User-ID", // caller identity stays out of access logs
		},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (2 MiB; uploads carry extracted text inline)
	r.Use(limitBody(2 << 20))

	// 6) Compress responses (analysis payloads and message pages are texty)
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
		},
		func(ctx context.Context, userID, sessionID, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, userID, sessionID, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	// 9) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 10) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag", "Idempotency-Replayed"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag", "Idempotency-Replayed"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// API docs (off by default; SWAGGER_ENABLED=true to expose)
	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db/ai/queue
	docSvc := services.NewDocumentService(db, documentRepoShim{}, aiClient, queue)
	chatSvc := services.NewChatService(db, aiClient, queue)
	chatSvc.TitleLocale = language.English
	profileSvc := services.NewProfileService(db)

	h := handlers.New(docSvc, chatSvc, profileSvc)
	if cfg.IdempotencyTTL > 0 {
		h.IdempotencyTTL = cfg.IdempotencyTTL
	}

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	{
		// Documents
		api.POST("/documents", h.UploadDocument)
		api.GET("/documents", h.ListDocuments)
		api.GET("/documents/:id", h.GetDocument)
		api.PUT("/documents/:id/notes", h.UpdateNotes)

		// Chat sessions and messages
		api.POST("/sessions", h.CreateSession)
		api.GET("/sessions", h.ListSessions)
		api.GET("/sessions/:id/messages", h.ListMessages)
		api.POST("/sessions/:id/messages", h.SendMessage)

		// Profile
		api.GET("/profile", h.GetProfile)
		api.PUT("/profile", h.SaveProfile)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
