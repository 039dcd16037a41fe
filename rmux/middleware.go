package rmux

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Middleware wraps a handler with additional behavior.
type Middleware func(Handler) Handler

// Use adds middleware to the application's middleware chain.
func (app *Application) Use(middlewares ...Middleware) {
	app.middleware = append(app.middleware, middlewares...)
}

// bind builds the middleware chain around the given handler.
func (app *Application) bind(handler Handler) Handler {
	for index := len(app.middleware) - 1; index >= 0; index-- {
		handler = app.middleware[index](handler)
	}

	return handler
}

// RequestID assigns a unique ID to every request and exposes it
// on the X-Request-Id response header.
func RequestID() Middleware {
	return func(next Handler) Handler {
		return func(ctx Context) error {
			_ = ctx.Response().SetHeaderIfAbsent(requestIDHeader, uuid.NewString())
			return next(ctx)
		}
	}
}

// RequestLogger logs one line per handled request.
func RequestLogger(logger *zap.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx Context) error {
			start := time.Now()
			err := next(ctx)

			logger.Info("request",
				zap.String("method", ctx.Request().Method()),
				zap.String("path", ctx.Path()),
				zap.Int("status", ctx.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err))

			return err
		}
	}
}
