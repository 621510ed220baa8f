package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/erp/productsync/internal/infrastructure/auth"
	"github.com/erp/productsync/internal/infrastructure/config"
	"github.com/erp/productsync/internal/infrastructure/logger"
	"github.com/erp/productsync/internal/interfaces/http/dto"
	"github.com/erp/productsync/internal/interfaces/http/handler"
	"github.com/erp/productsync/internal/interfaces/http/middleware"
)

// Dependencies are the collaborators wired into the HTTP engine
type Dependencies struct {
	Config   *config.Config
	Logger   *zap.Logger
	Products *handler.ProductHandler
	Health   *handler.HealthHandler
	// JWTService is required when cfg.Auth.Enabled is set
	JWTService *auth.JWTService
	// Meter records HTTP metrics, nil disables them
	Meter metric.Meter
}

// NewEngine builds the gin engine with the full middleware stack and all routes.
//
// Global middleware order:
//  1. RequestID - Generate/propagate request ID
//  2. Recovery - Catch panics
//  3. Logger - Log requests
//  4. Tracing - Server spans, marked as errors for 4xx/5xx
//  5. Security - Add security headers
//  6. CORS - Handle cross-origin requests
//  7. BodyLimit - Limit request body size
//  8. Metrics - Request counters and latency
func NewEngine(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	middleware.SetupValidator()

	engine := gin.New()
	engine.HandleMethodNotAllowed = true

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	} else {
		_ = engine.SetTrustedProxies(nil)
	}

	tracingCfg := middleware.DefaultTracingConfig()
	tracingCfg.Enabled = cfg.Telemetry.Enabled
	if cfg.Telemetry.ServiceName != "" {
		tracingCfg.ServiceName = cfg.Telemetry.ServiceName
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.TracingWithConfig(tracingCfg))
	if tracingCfg.Enabled {
		engine.Use(middleware.SpanErrorMarker())
	}
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfigFromHTTP(cfg.HTTP)))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	engine.Use(middleware.HTTPMetrics(deps.Meter))

	engine.NoRoute(func(c *gin.Context) {
		middleware.AbortWithError(c, http.StatusNotFound, dto.ErrCodeRouteNotFound, "Route not found")
	})
	engine.NoMethod(func(c *gin.Context) {
		middleware.AbortWithError(c, http.StatusMethodNotAllowed, dto.ErrCodeMethodNotAllowed, "Method not allowed")
	})

	if deps.Health != nil {
		engine.GET("/health", deps.Health.Health)
	}

	var adminAuth gin.HandlerFunc
	if cfg.Auth.Enabled && deps.JWTService != nil {
		adminAuth = middleware.AdminAuthWithConfig(middleware.AdminAuthConfig{
			JWTService: deps.JWTService,
			Logger:     log,
		})
	} else {
		log.Warn("Admin authentication disabled, /admin routes are open")
	}

	engine.GET("/swagger/*any",
		middleware.SwaggerProtection(cfg.Swagger, adminAuth),
		middleware.SecureWithConfig(middleware.SwaggerSecurityConfig()),
		ginSwagger.WrapHandler(swaggerFiles.Handler),
	)

	r := NewRouter(engine, WithBasePath("/admin"))
	if adminAuth != nil {
		r.Use(adminAuth)
	}
	if cfg.HTTP.RateLimitRPS > 0 {
		r.Use(middleware.RateLimit(middleware.NewRateLimiter(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst)))
		log.Info("Rate limiting enabled",
			zap.Float64("rps", cfg.HTTP.RateLimitRPS),
			zap.Int("burst", cfg.HTTP.RateLimitBurst),
		)
	}
	if tracingCfg.Enabled {
		r.Use(middleware.TracingAttributeInjector())
	}

	if deps.Products != nil {
		r.Register(ProductRoutes(deps.Products))
	}
	r.Setup()

	return engine
}

// ProductRoutes maps the product endpoints below /admin.
// The static /import-from-erp path wins over /:uuid.
func ProductRoutes(h *handler.ProductHandler) *DomainGroup {
	products := NewDomainGroup("catalog", "/products")
	products.POST("", h.Create)
	products.GET("", h.List)
	products.POST("/import-from-erp", h.ImportFromErp)
	products.GET("/:uuid", h.Get)
	products.PUT("/:uuid", h.Update)
	products.DELETE("/:uuid", h.Delete)
	return products
}
