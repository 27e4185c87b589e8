package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	applogger "github.com/seethefuture888888-creator/kangbo/pkg/logger"
)

var httpPanics = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_handler_panics_total",
		Help: "Handler panics recovered by route",
	},
	[]string{"route"},
)

// Recover turns a handler panic into a 500 and logs the stack. A panic after the
// response was committed is only logged.
func Recover(l *applogger.Logger) echo.MiddlewareFunc {
	registerOnce()
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if r == http.ErrAbortHandler {
					panic(r)
				}
				route := routeLabel(c)
				httpPanics.WithLabelValues(route).Inc()
				l.Error("http handler panic",
					applogger.String("route", route),
					applogger.String("panic", fmt.Sprint(r)),
					applogger.String("stack", string(debug.Stack())),
				)
				if c.Response().Committed {
					return
				}
				err = echo.NewHTTPError(http.StatusInternalServerError, "internal error")
			}()
			return next(c)
		}
	}
}
