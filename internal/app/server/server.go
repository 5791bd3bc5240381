package server

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sifan077/PowerStats/internal/app/service"
	"github.com/sifan077/PowerStats/internal/http/handler"
	"github.com/sifan077/PowerStats/internal/http/middleware"
	httpUtil "github.com/sifan077/PowerStats/internal/http/util"
	infraPrometheus "github.com/sifan077/PowerStats/internal/infra/prometheus"
	"go.uber.org/zap"
)

// Dependencies bundles infrastructure dependencies required by the HTTP server.
type Dependencies struct {
	Logger    *zap.Logger
	Ingest    service.IngestService
	Analytics service.AnalyticsService
	Metrics   *infraPrometheus.Metrics

	// Redis backs the beacon rate limiter; nil disables limiting.
	Redis         redis.Cmdable
	RateLimit     middleware.RateLimitConfig
	AllowedOrigin string
	PublicURL     string
	BodyLimit     int
	ReadyChecks   map[string]handler.ReadyCheck
}

// Server wraps the Fiber application and its dependencies.
type Server struct {
	app  *fiber.App
	deps Dependencies
}

// New creates a new HTTP server instance with default routes.
func New(deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		AppName:               "PowerStats",
		BodyLimit:             deps.BodyLimit,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(deps.Logger),
	})

	s := &Server{
		app:  app,
		deps: deps,
	}

	s.registerMiddleware()
	s.registerRoutes()
	return s
}

// App exposes the underlying Fiber app, mostly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts the Fiber server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the Fiber server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// errorHandler wraps framework errors (unknown route, wrong method, oversized
// body) in the response envelope.
func errorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if !errors.As(err, &fe) {
			logger.Error("unhandled error", zap.Error(err))
			return httpUtil.Failure(c, fiber.StatusInternalServerError, httpUtil.CodeInternal, "internal server error")
		}

		code := httpUtil.CodeValidation
		switch {
		case fe.Code == fiber.StatusNotFound || fe.Code == fiber.StatusMethodNotAllowed:
			code = httpUtil.CodeNotFound
		case fe.Code == fiber.StatusTooManyRequests:
			code = httpUtil.CodeRateLimited
		case fe.Code >= fiber.StatusInternalServerError:
			code = httpUtil.CodeInternal
		}
		return httpUtil.Failure(c, fe.Code, code, fe.Message)
	}
}

func (s *Server) registerMiddleware() {
	s.app.Use(middleware.RequestID())
	s.app.Use(middleware.Recovery(s.deps.Logger))
	s.app.Use(middleware.Logger(s.deps.Logger, s.deps.Metrics))
	s.app.Use(middleware.CORS(s.deps.AllowedOrigin))
}

func (s *Server) registerRoutes() {
	var limiter fiber.Handler
	if s.deps.Redis != nil {
		limiter = middleware.RateLimit(s.deps.Redis, s.deps.RateLimit, s.deps.Logger)
	}

	handler.NewHealthHandler(s.deps.Logger, s.deps.ReadyChecks).Register(s.app)

	handler.NewTrackHandler(handler.TrackDeps{
		Logger:    s.deps.Logger,
		Ingest:    s.deps.Ingest,
		PublicURL: s.deps.PublicURL,
		Limiter:   limiter,
	}).Register(s.app)

	handler.NewAnalyticsHandler(handler.AnalyticsDeps{
		Logger:    s.deps.Logger,
		Analytics: s.deps.Analytics,
	}).Register(s.app)
}
