package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	echoapi "github.com/pilab-dev/betwiz-oauth/api/echo"
	"github.com/pilab-dev/betwiz-oauth/config"
	"github.com/pilab-dev/betwiz-oauth/log"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
)

// NewRouter builds the echo router with recovery, tracing and request
// logging, and registers the API routes.
func NewRouter(cfg *config.ServerConfig, appLogger log.Logger, oauthAPI *echoapi.OAuth2API) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(otelecho.Middleware(cfg.OtelServiceName))
	e.Use(requestLogger(appLogger))

	oauthAPI.RegisterRoutes(e)

	return e
}

// NewHTTPServer wraps the router in an http.Server with sane timeouts.
func NewHTTPServer(cfg *config.ServerConfig, appLogger log.Logger, oauthAPI *echoapi.OAuth2API) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg, appLogger, oauthAPI),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

func requestLogger(appLogger log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			fields := log.Fields{
				"method":     req.Method,
				"path":       req.URL.Path,
				"status":     c.Response().Status,
				"latency":    time.Since(start).String(),
				"ip":         c.RealIP(),
				"user_agent": req.UserAgent(),
			}
			if err != nil {
				appLogger.Error(req.Context(), "HTTP request failed", err, fields)
			} else {
				appLogger.Info(req.Context(), "HTTP request", fields)
			}

			return nil
		}
	}
}
