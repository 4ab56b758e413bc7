package app

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/Ramsey-B/clover/pkg/middleware"
	"github.com/Ramsey-B/clover/pkg/routes/products"
	"github.com/Ramsey-B/clover/pkg/routes/rows"
	"github.com/Ramsey-B/clover/pkg/routes/runs"
)

// Router builds the HTTP surface. It must be called after Start.
func (a *App) Router() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(a.logger)

	e.Use(echomw.Recover())
	e.Use(otelecho.Middleware(a.config.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(a.logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: a.config.AllowOrigins,
		AllowMethods: a.config.AllowMethods,
	}))

	a.health.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/v1")
	runs.NewHandler(a.Pipeline, a.Runs, a.logger).Register(api.Group("/runs"))
	products.NewHandler(a.Catalog, a.logger).Register(api.Group("/products"))
	rows.Register(api.Group("/rows"))

	return e
}
