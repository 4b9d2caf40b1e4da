package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	fiberSwagger "github.com/swaggo/fiber-swagger"
	"go.uber.org/zap"

	"github.com/geo-drilldown/internal/config"
	"github.com/geo-drilldown/internal/delivery/http/handler"
	"github.com/geo-drilldown/internal/delivery/http/middleware"
	"github.com/geo-drilldown/internal/metrics"
	"github.com/geo-drilldown/internal/pkg/errors"
	"github.com/geo-drilldown/internal/pkg/utils"
)

// Server is the fiber HTTP server.
type Server struct {
	app    *fiber.App
	config *config.Config
	logger *zap.Logger

	sessionHandler *handler.SessionHandler
	geoDataHandler *handler.GeoDataHandler
}

func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	sessionHandler *handler.SessionHandler,
	geoDataHandler *handler.GeoDataHandler,
) *Server {
	app := fiber.New(fiber.Config{
		AppName:      "Geo Drill-down",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorHandler: customErrorHandler(logger),
	})

	s := &Server{
		app:            app,
		config:         cfg,
		logger:         logger,
		sessionHandler: sessionHandler,
		geoDataHandler: geoDataHandler,
	}

	s.setupMiddlewares()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddlewares() {
	s.app.Use(middleware.Recovery(s.logger))
	s.app.Use(middleware.Metrics())
	s.app.Use(middleware.Logger(s.logger))
	s.app.Use(middleware.CORS())
	s.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
}

func (s *Server) setupRoutes() {
	s.app.Get("/swagger/*", fiberSwagger.WrapHandler)
	s.app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	api := s.app.Group("/api/v1")

	api.Get("/health", s.geoDataHandler.Health)
	api.Get("/geodata/:level", s.geoDataHandler.GetScope)

	sessions := api.Group("/sessions")
	sessions.Post("/", s.sessionHandler.Create)
	sessions.Get("/:id", s.sessionHandler.Get)
	sessions.Delete("/:id", s.sessionHandler.Delete)
	sessions.Post("/:id/select", s.sessionHandler.Select)
	sessions.Post("/:id/navigate", s.sessionHandler.Navigate)
	sessions.Post("/:id/reset", s.sessionHandler.Reset)
	sessions.Post("/:id/retry", s.sessionHandler.Retry)
	sessions.Post("/:id/jump", s.sessionHandler.Jump)
	sessions.Put("/:id/metric", s.sessionHandler.SetMetric)
	sessions.Put("/:id/hover", s.sessionHandler.Hover)
	sessions.Get("/:id/search", s.sessionHandler.Search)
	sessions.Get("/:id/legend", s.sessionHandler.Legend)
}

// App exposes the fiber app for in-process testing.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Start() error {
	addr := s.config.GetServerAddr()
	s.logger.Info("Starting HTTP server", zap.String("address", addr))
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.app.ShutdownWithContext(ctx)
}

// customErrorHandler renders fiber errors (404 routes, 405s, body limits) in
// the usual error envelope.
func customErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		logger.Error("HTTP Error",
			zap.String("path", c.Path()),
			zap.Int("status", code),
			zap.Error(err),
		)

		appErr := errors.ErrInternalServer
		if code != fiber.StatusInternalServerError {
			appErr = errors.New(errors.CodeHTTPError, err.Error(), code)
		}
		return c.Status(code).JSON(utils.ErrorResponse{Error: appErr})
	}
}
