package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	applogger "github.com/seethefuture888888-creator/kangbo/pkg/logger"
)

// quietRoutes are polled by probes and scrapers and never logged.
var quietRoutes = map[string]bool{
	"/metrics":    true,
	"/api/health": true,
}

// RequestLogging logs one line per request: error for 5xx, warn for 4xx, debug otherwise.
func RequestLogging(l *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}
			if quietRoutes[c.Path()] {
				return nil
			}

			req, status := c.Request(), c.Response().Status
			log := l.Debug
			switch {
			case status >= 500:
				log = l.Error
			case status >= 400:
				log = l.Warn
			}
			log("http request",
				applogger.String("method", req.Method),
				applogger.String("route", routeLabel(c)),
				applogger.String("query", req.URL.RawQuery),
				applogger.String("remote", c.RealIP()),
				applogger.Int("status", status),
				applogger.Duration("duration_ms", time.Since(start)),
			)
			return nil
		}
	}
}
