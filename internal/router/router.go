package router

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/engagement-hub/internal/handler/prometheus"
	"github.com/jwalitptl/engagement-hub/internal/middleware"
	"github.com/jwalitptl/engagement-hub/pkg/logger"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

// Handlers groups the route owners by who may call them.
type Handlers struct {
	Health       Handler
	Events       Handler
	Templates    Handler
	Notification Handler
	Preference   Handler
}

type RouterConfig struct {
	MetricsPath    string
	RequestTimeout time.Duration
	MaxBodySize    int64
	CORSConfig     middleware.CORSConfig
	// RateLimiter is applied to authenticated routes when set.
	RateLimiter *middleware.RateLimiter
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	handlers Handlers
	metrics  *prometheus.Handler
	config   RouterConfig
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	handlers Handlers,
	metrics *prometheus.Handler,
	log *logger.Logger,
	config RouterConfig,
) *Router {
	if config.MetricsPath == "" {
		config.MetricsPath = "/metrics"
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = middleware.DefaultTimeoutConfig().Duration
	}
	if config.MaxBodySize <= 0 {
		config.MaxBodySize = middleware.DefaultSizeLimitConfig().MaxBodySize
	}

	engine := gin.New()
	engine.Use(
		middleware.Recovery(log),
		middleware.RequestID(),
		middleware.Logger(log),
		metrics.Middleware(),
		middleware.ErrorHandler(log),
		middleware.Timeout(middleware.TimeoutConfig{Duration: config.RequestTimeout}),
		middleware.CORS(config.CORSConfig),
		middleware.SizeLimit(middleware.SizeLimitConfig{MaxBodySize: config.MaxBodySize}),
	)

	return &Router{
		engine:   engine,
		auth:     auth,
		handlers: handlers,
		metrics:  metrics,
		config:   config,
	}
}

func (r *Router) Setup() {
	r.engine.GET(r.config.MetricsPath, r.metrics.Handler())
	r.handlers.Health.RegisterRoutes(&r.engine.RouterGroup)

	api := r.engine.Group("/api/v1")

	authenticated := api.Group("")
	authenticated.Use(r.auth.Authenticate())
	if r.config.RateLimiter != nil {
		authenticated.Use(r.config.RateLimiter.RateLimit())
	}
	r.handlers.Notification.RegisterRoutes(authenticated)
	r.handlers.Preference.RegisterRoutes(authenticated)

	operator := authenticated.Group("")
	operator.Use(r.auth.RequireOperator())
	r.handlers.Events.RegisterRoutes(operator)
	r.handlers.Templates.RegisterRoutes(operator)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
