// Package httpapi wires the HTTP transport (Gin) to the summary service,
// middleware, and route handlers. It owns the middleware order and the
// dependency injection from storage and the completion client down to the
// handlers.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-summary-backend/docs"
	"github.com/tbourn/go-summary-backend/internal/config"
	"github.com/tbourn/go-summary-backend/internal/domain"
	"github.com/tbourn/go-summary-backend/internal/http/handlers"
	"github.com/tbourn/go-summary-backend/internal/http/middleware"
	"github.com/tbourn/go-summary-backend/internal/repo"
	"github.com/tbourn/go-summary-backend/internal/services"
)

const (
	maxBodyBytes = 1 << 20
	docsPath     = "/swagger/index.html"
)

// summaryRepoShim adapts the repository free functions to the
// services.SummaryRepo interface.
type summaryRepoShim struct{}

func (summaryRepoShim) CreateSummary(ctx context.Context, db *gorm.DB, rec *domain.SummaryRecord) error {
	return repo.CreateSummary(ctx, db, rec)
}

func (summaryRepoShim) GetSummary(ctx context.Context, db *gorm.DB, id uint) (*domain.SummaryRecord, error) {
	return repo.GetSummary(ctx, db, id)
}

func (summaryRepoShim) ListSummaries(ctx context.Context, db *gorm.DB) ([]domain.SummaryRecord, error) {
	return repo.ListSummaries(ctx, db)
}

func (summaryRepoShim) CountSummaries(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountSummaries(ctx, db)
}

func (summaryRepoShim) ListSummariesPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.SummaryRecord, error) {
	return repo.ListSummariesPage(ctx, db, offset, limit)
}

func (summaryRepoShim) DeleteSummary(ctx context.Context, db *gorm.DB, id uint) error {
	return repo.DeleteSummary(ctx, db, id)
}

func (summaryRepoShim) SummariesStats(ctx context.Context, db *gorm.DB) (int64, uint, *time.Time, error) {
	return repo.SummariesStats(ctx, db)
}

func (summaryRepoShim) GetIdempotency(ctx context.Context, db *gorm.DB, key string, now time.Time) (*domain.Idempotency, error) {
	return repo.GetIdempotency(ctx, db, key, now)
}

func (summaryRepoShim) CreateIdempotency(ctx context.Context, db *gorm.DB, key string, recordID uint, ttl time.Duration) (*domain.Idempotency, error) {
	return repo.CreateIdempotency(ctx, db, key, recordID, ttl)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the summary API under cfg.APIBasePath.
//
// Middleware order:
//  1. OpenTelemetry
//  2. RequestID
//  3. Logger (with redaction)
//  4. Recovery
//  5. Body size limit
//  6. Gzip
//  7. Metrics
//  8. CORS (ahead of the rejecting middleware so 400 and 429 carry ACAO)
//  9. Idempotency validator (before the rate limiter so replays bypass it)
//  10. Rate limiter (per IP)
//  11. Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config, client services.Completer) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key"},
	}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(maxBodyBytes))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	useCORS(r, cfg.CORS.AllowedOrigins)

	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200},
		idempotencyLookup(db),
	))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByIP())
	r.Use(rl.Handler())

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		docs.SwaggerInfo.Version = cfg.ServiceVersion
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	var docsLink string
	if cfg.SwaggerEnabled {
		docsLink = docsPath
	}

	svc := services.NewSummaryService(db, summaryRepoShim{}, client, services.SummaryConfigFrom(cfg))
	h := handlers.New(svc, handlers.ServiceInfo{
		Name:     cfg.ServiceName,
		Version:  cfg.ServiceVersion,
		DocsPath: docsLink,
	})

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		api.GET("/health", h.Health)
		api.GET("/", h.Index)

		api.POST("/summary/text", h.CreateTextSummary)
		api.GET("/summary/history", h.ListHistory)
		api.DELETE("/summary/history/:id", h.DeleteHistory)
	}
}

// idempotencyLookup reports whether key still maps to a stored summary.
// Lookup failures are logged and treated as a miss.
func idempotencyLookup(db *gorm.DB) middleware.IdempotencyLookup {
	return func(ctx context.Context, key string, now time.Time) (bool, error) {
		rec, err := repo.GetIdempotency(ctx, db, key, now)
		if errors.Is(err, repo.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("idempotency lookup failed")
			return false, err
		}
		return rec != nil, nil
	}
}

// useCORS installs the CORS posture. With no configured origins every origin
// is allowed without credentials; otherwise only allowlisted origins are
// echoed back.
func useCORS(r *gin.Engine, origins []string) {
	allowMethods := []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}
	allowHeaders := []string{"Origin", "Content-Type", "Accept", "Authorization", "If-None-Match", middleware.HeaderIdempotencyKey}

	if len(origins) == 0 {
		// Set ACAO even without an Origin header so plain requests see it.
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     allowMethods,
			AllowHeaders:     allowHeaders,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
		return
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
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
		AllowOrigins:     origins,
		AllowMethods:     allowMethods,
		AllowHeaders:     allowHeaders,
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
}

// limitBody caps the request body at maxBytes using http.MaxBytesReader.
// Reads past the cap fail, which the JSON binder reports as invalid JSON.
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
