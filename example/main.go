package main

import (
	"time"

	"github.com/aerogo/csp"
	"github.com/jakesyl/rmux/rmux"
	"go.uber.org/zap"
)

func main() {
	app := rmux.New()
	app.Load()

	logger, err := zap.NewDevelopment()

	if err != nil {
		panic(err)
	}

	app.Logger = logger

	app.ContentSecurityPolicy = csp.New()
	app.ContentSecurityPolicy.SetMap(csp.Map{
		"default-src": "'self'",
	})

	app.Use(
		rmux.RequestID(),
		rmux.RequestLogger(app.Logger),
	)

	app.RegisterMacro("created", func(ctx rmux.Context, args ...interface{}) error {
		ctx.SetStatus(201)
		return ctx.JSON(args)
	})

	app.Get("/", func(ctx rmux.Context) error {
		return ctx.HTML("<h1>hello</h1>")
	})

	app.Get("/user/{id}", func(ctx rmux.Context) error {
		return ctx.JSON(map[string]string{
			"id": ctx.Get("id"),
		})
	}).Name("user.show")

	app.Get("/me", func(ctx rmux.Context) error {
		return ctx.RedirectToRoute(0, "user.show", map[string]string{"id": "42"})
	})

	app.Get("/search", func(ctx rmux.Context) error {
		// Keeps the query string on the target URL.
		return ctx.RedirectWithQuery(301, "/user/42")
	})

	app.Get("/report", func(ctx rmux.Context) error {
		return ctx.Attachment("report.csv", "usage-report.csv")
	})

	app.Get("/slow", func(ctx rmux.Context) error {
		ctx.SetImplicitEnd(false)

		time.AfterFunc(100*time.Millisecond, func() {
			_ = ctx.JSON(map[string]bool{"done": true})
		})

		return nil
	})

	app.OnError(func(ctx rmux.Context, err error) {
		app.Logger.Sugar().Errorw("request failed", "path", ctx.Path(), "error", err)
	})

	app.Run()
}
