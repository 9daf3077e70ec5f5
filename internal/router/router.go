package router

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/jwalitptl/clinic-api/internal/middleware"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type RouterConfig struct {
	// ServiceName labels server spans.
	ServiceName      string
	Mode             string
	RateLimitEnabled bool
	RateLimit        middleware.RateLimiterConfig
	CORSConfig       middleware.CORSConfig
	SizeLimit        middleware.SizeLimitConfig
}

func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		ServiceName:      "clinic-api",
		Mode:             gin.ReleaseMode,
		RateLimitEnabled: true,
		RateLimit:        middleware.DefaultRateLimiterConfig(),
		CORSConfig:       middleware.DefaultCORSConfig(),
		SizeLimit:        middleware.DefaultSizeLimitConfig(),
	}
}

type Router struct {
	engine    *gin.Engine
	auth      *middleware.AuthMiddleware
	limiter   *middleware.RateLimiter
	public    []Handler
	protected []Handler
	fallback  Handler
}

// NewRouter wires the middleware chain. public handlers are mounted at the
// root without auth; protected handlers under /api/v1 behind the bearer
// check. fallback (the generic entity reader) is registered last so the
// static routes win.
func NewRouter(
	config RouterConfig,
	auth *middleware.AuthMiddleware,
	public []Handler,
	protected []Handler,
	fallback Handler,
) *Router {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}

	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		otelgin.Middleware(config.ServiceName),
		middleware.Recovery(),
		middleware.Logger(),
		middleware.Metrics(),
		middleware.ErrorHandler(),
		middleware.SecurityHeaders(middleware.DefaultSecurityConfig()),
		middleware.CORS(config.CORSConfig),
		middleware.SizeLimit(config.SizeLimit),
	)

	r := &Router{
		engine:    engine,
		auth:      auth,
		public:    public,
		protected: protected,
		fallback:  fallback,
	}
	if config.RateLimitEnabled {
		r.limiter = middleware.NewRateLimiter(config.RateLimit)
	}
	return r
}

func (r *Router) Setup() {
	root := r.engine.Group("")
	for _, h := range r.public {
		h.RegisterRoutes(root)
	}

	api := r.engine.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})
	api.Use(r.auth.Authenticate())
	if r.limiter != nil {
		api.Use(r.limiter.RateLimit())
	}

	for _, h := range r.protected {
		h.RegisterRoutes(api)
	}
	if r.fallback != nil {
		r.fallback.RegisterRoutes(api)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
