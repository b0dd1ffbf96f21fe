package server

import (
	"context"
	"errors"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/waabox/apideck/internal/client"
	"github.com/waabox/apideck/internal/config"
)

// Backend routes the app server forwards to.
const (
	backendLoginPath  = "auth/login"
	backendLogoutPath = "auth/logout"
)

// Server is the companion app server owning the local auth routes that the
// interactive client calls and navigates to.
type Server struct {
	app    *fiber.App
	api    *client.Client
	cfg    config.Config
	logger zerolog.Logger
	sentry bool
}

// New creates a Server that forwards auth calls to cfg.API.Endpoint.
// opts are applied to the backend client.
func New(cfg config.Config, logger zerolog.Logger, opts ...client.Option) *Server {
	clientOpts := append([]client.Option{
		client.WithTimeout(cfg.Timeout()),
		client.WithLogger(logger),
	}, opts...)

	s := &Server{
		api:    client.NewClient(cfg.API.Endpoint, client.ServerEnv(), clientOpts...),
		cfg:    cfg,
		logger: logger,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "apideck",
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		IdleTimeout:           120 * time.Second,
		DisableStartupMessage: true,
	})
	s.app.Use(recover.New())
	if handler, err := initSentry(cfg.Sentry, "apideck"); err != nil {
		logger.Warn().Err(err).Msg("error reporting disabled")
	} else if handler != nil {
		s.sentry = true
		s.app.Use(handler)
	}
	s.app.Use(requestLogger(logger))
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Post("/api/auth/login", s.handleLogin)
	s.app.Post("/api/auth/logout", s.handleLogout)
	s.app.Get("/logout", s.handleLogoutRoute)
	s.app.Get("/login", s.handleLoginPage)
}

// App exposes the fiber app, mainly for app.Test in tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	s.logger.Info().Str("addr", addr).Str("api", s.cfg.API.Endpoint).Msg("app server listening")
	return s.app.Listen(addr)
}

// Shutdown stops the server, waiting for in-flight requests until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.sentry {
		sentry.Flush(2 * time.Second)
	}
	return s.app.ShutdownWithContext(ctx)
}

func requestLogger(logger zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
		}
		logger.Info().
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("request")
		return err
	}
}
