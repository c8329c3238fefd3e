// Package httpapi wires the HTTP transport (Gin) to the overlay services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, access logging with redaction, panic
// recovery, compression, metrics, rate limiting, CORS, and security headers.
//
// Middleware order:
//   - OpenTelemetry first so every request gets a span
//   - RequestID → access log → recovery
//   - body cap, gzip, metrics
//   - actor extraction before the rate limiter (keys by actor)
//   - CORS and security headers last
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

	_ "github.com/jubileesolutions/overlay-backend/docs"
	"github.com/jubileesolutions/overlay-backend/internal/config"
	"github.com/jubileesolutions/overlay-backend/internal/http/handlers"
	"github.com/jubileesolutions/overlay-backend/internal/http/middleware"
)

// maxBodyBytes caps every request body.
const maxBodyBytes = 1 << 20

// Deps are the services the routes are bound to. Importer and Ready are
// optional; Ready backs GET /ready (typically a database ping).
type Deps struct {
	Overlays handlers.OverlayService
	Resolver handlers.Resolver
	Compiler handlers.Compiler
	Searcher handlers.Searcher
	Importer handlers.Importer
	Ready    func(ctx context.Context) error
}

var corsAllowHeaders = []string{
	"Origin", "Content-Type", "Accept", "Authorization",
	middleware.HeaderActor, middleware.HeaderConfirmToken, "If-None-Match",
}

var corsExposeHeaders = []string{"X-Request-ID", "Content-Length", "ETag", "Location", "Retry-After"}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the overlay API under cfg.APIBasePath.
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.AccessLog(middleware.AccessLogOptions{
		MaskHeaders: []string{"X-API-Key"},
	}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(maxBodyBytes))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(middleware.Actor())
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByActorOrIP(), "/health", "/ready", "/metrics")
	r.Use(rl.Handler())

	// Safe default: allow all origins if none are configured.
	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     corsAllowHeaders,
			ExposeHeaders:    corsExposeHeaders,
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
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
			AllowHeaders:     corsAllowHeaders,
			ExposeHeaders:    corsExposeHeaders,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:    cfg.Security.EnableHSTS,
		HSTSMaxAge:    cfg.Security.HSTSMaxAge,
		NoStore:       true,
		SwaggerPrefix: "/swagger",
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if deps.Ready != nil {
		r.GET("/ready", func(c *gin.Context) {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := deps.Ready(ctx); err != nil {
				middleware.LoggerFrom(c).Warn().Err(err).Msg("readiness check failed")
				handlers.Fail(c, http.StatusServiceUnavailable, handlers.ErrCodeUnavailable, "not ready")
				return
			}
			c.JSON(http.StatusOK, gin.H{"status": "ready"})
		})
	}

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(deps.Overlays, deps.Resolver, deps.Compiler, deps.Searcher, deps.Importer)

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		// Authoring
		api.POST("/overlays", h.CreateOverlay)
		api.POST("/overlays/import", h.ImportOverlays)
		api.GET("/overlays", h.ListOverlays)
		api.GET("/overlays/:id", h.GetOverlay)
		api.PATCH("/overlays/:id/metadata", h.UpdateOverlayMetadata)
		api.PUT("/overlays/:id/content", h.UpdateOverlayContent)
		api.PUT("/overlays/:id/status", h.UpdateOverlayStatus)
		api.DELETE("/overlays/:id", h.DeleteOverlay)
		api.POST("/overlays/:id/supersede", h.SupersedeOverlay)
		api.GET("/overlays/:id/audit", h.GetOverlayAudit)
		api.DELETE("/overlays/:id/permanent", middleware.RequireAdmin(cfg.Security.AdminJWTSecret), h.PurgeOverlay)

		// Hierarchy
		api.GET("/scopes/:domain/:key/overlays", h.ListScope)
		api.GET("/scopes/:domain/:key/resolve", h.Resolve)

		// Compile and retrieval
		api.POST("/compile", h.Compile)
		api.GET("/compile/status", h.CompileStatus)
		api.POST("/search", h.Search)
	}
}

// limitBody caps the request body size for all endpoints using
// http.MaxBytesReader. Oversized bodies fail on read.
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
