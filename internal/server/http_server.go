package server

import (
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/oggyb/wholikeme/internal/app"
	"github.com/oggyb/wholikeme/internal/auth"
	"github.com/oggyb/wholikeme/internal/middleware"
)

// NewRouter builds the gin engine.
//
// Layout:
//   - global: recovery, tracing, request log, CORS
//   - GET /healthz (when health is set)
//   - /api: bearer auth (skipped when verifier is nil), rate limit per
//     caller, then every registrar's routes
func NewRouter(appCtx *app.AppContext, verifier *auth.Verifier, health *Health, registrars ...RouteRegistrar) *gin.Engine {
	cfg := appCtx.Config
	if cfg.App.ENV != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(
		gin.Recovery(),
		otelgin.Middleware(cfg.App.Name),
		middleware.RequestLogger(appCtx.Logger),
		middleware.CORS(cfg.HTTP.CORSOrigins),
	)

	if health != nil {
		r.GET("/healthz", health.Handler)
	}

	api := r.Group("/api", middleware.Auth(verifier))
	if cfg.HTTP.RateLimit > 0 && appCtx.RedisCache != nil {
		api.Use(middleware.RateLimit(appCtx.RedisCache, cfg.HTTP.RateLimit, cfg.HTTP.RateWindow, appCtx.Logger))
	}

	for _, reg := range registrars {
		reg.RegisterRoutes(api)
	}
	return r
}

// NewHTTPServer wraps handler with the configured address and timeouts.
func NewHTTPServer(appCtx *app.AppContext, handler http.Handler) *http.Server {
	cfg := appCtx.Config
	return &http.Server{
		Addr:         net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}
}
