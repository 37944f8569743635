package api

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	swagger "github.com/go-swagno/swagno-fiber/swagger"
	"github.com/saturnino-fabrica-de-software/badgecheck/internal/api/docs"
	"github.com/saturnino-fabrica-de-software/badgecheck/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/badgecheck/internal/api/middleware"
)

// multipart framing on top of the largest accepted upload
const bodyOverhead = 1 << 20

// Dependencies of the v1 routes. Attempts is optional; without it the
// attempts endpoint lists nothing.
type Dependencies struct {
	Service  handler.BadgeService
	Attempts handler.AttemptLister
	Ready    handler.ReadyFunc
}

type Config struct {
	Badge           handler.BadgeConfig
	RateLimitMax    int
	RateLimitWindow time.Duration
	SwaggerHost     string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
}

type Router struct {
	app         *fiber.App
	logger      *slog.Logger
	deps        *Dependencies
	config      Config
	rateLimiter *middleware.RateLimiter
}

func NewRouter(logger *slog.Logger, deps *Dependencies, config Config) *Router {
	if config.Badge.MaxImageSize <= 0 {
		config.Badge.MaxImageSize = 10 << 20
	}
	if config.Badge.MaxDocumentSize <= 0 {
		config.Badge.MaxDocumentSize = 20 << 20
	}
	if config.SwaggerHost == "" {
		config.SwaggerHost = "localhost:3000"
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "Badgecheck API",
		BodyLimit:    max(config.Badge.MaxImageSize, config.Badge.MaxDocumentSize) + bodyOverhead,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	return &Router{
		app:    app,
		logger: logger,
		deps:   deps,
		config: config,
	}
}

func (r *Router) Setup() {
	// Global middlewares
	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowMethods:  "GET,POST,OPTIONS",
		AllowHeaders:  "Origin,Content-Type,Accept," + handler.SessionHeader,
		ExposeHeaders: handler.SessionHeader + ",X-RateLimit-Limit,X-RateLimit-Remaining,X-RateLimit-Reset,Retry-After",
	}))

	// Swagger documentation
	sw := docs.NewSwagger(r.config.SwaggerHost)
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	// Health check endpoints
	var ready handler.ReadyFunc
	if r.deps != nil {
		ready = r.deps.Ready
	}
	healthHandler := handler.NewHealthHandler(ready)
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	// Only configure badge routes if dependencies were provided
	if r.deps == nil || r.deps.Service == nil {
		return
	}

	v1 := r.app.Group("/v1")

	// Rate limiting per client IP
	rlConfig := middleware.DefaultRateLimiterConfig()
	if r.config.RateLimitMax > 0 {
		rlConfig.Max = r.config.RateLimitMax
	}
	if r.config.RateLimitWindow > 0 {
		rlConfig.Window = r.config.RateLimitWindow
	}
	r.rateLimiter = middleware.NewRateLimiter(rlConfig)
	v1.Use(r.rateLimiter.Handler())

	badgeHandler := handler.NewBadgeHandler(r.deps.Service, r.deps.Attempts, r.config.Badge, r.logger)

	v1.Post("/photos/validate", badgeHandler.ValidatePhoto)
	v1.Post("/faces/match", badgeHandler.MatchFaces)
	v1.Get("/faces/attempts", badgeHandler.ListAttempts)
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

func (r *Router) Shutdown() error {
	r.stopWorkers()
	return r.app.Shutdown()
}

func (r *Router) stopWorkers() {
	if r.rateLimiter != nil {
		r.rateLimiter.Stop()
	}
}
