package server

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"

	"github.com/waabox/apideck/internal/config"
)

// initSentry returns the fiber middleware that reports panics and captured
// errors. It returns nil when no DSN is configured.
func initSentry(cfg config.SentryConfig, release string) (fiber.Handler, error) {
	if cfg.DSN == "" {
		return nil, nil
	}
	env := cfg.Environment
	if env == "" {
		env = "development"
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      env,
		Release:          release,
		TracesSampleRate: 0.1,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing sentry: %w", err)
	}
	return sentryfiber.New(sentryfiber.Options{
		Repanic: true,
		Timeout: 5 * time.Second,
	}), nil
}

// captureError reports err with the request route attached. It is a no-op
// when sentry is disabled.
func captureError(c *fiber.Ctx, err error, operation string) {
	hub := sentryfiber.GetHubFromContext(c)
	if hub == nil {
		return
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("operation", operation)
		scope.SetExtra("request_method", c.Method())
		scope.SetExtra("request_path", c.Path())
		hub.CaptureException(err)
	})
}
