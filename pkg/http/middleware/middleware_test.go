package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	applogger "github.com/seethefuture888888-creator/kangbo/pkg/logger"
)

func newEcho() *echo.Echo {
	l := applogger.Nop()
	e := echo.New()
	e.Use(Recover(l), Metrics(l, time.Second), RequestLogging(l))
	return e
}

func serve(e *echo.Echo, method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRecoverReturns500(t *testing.T) {
	e := newEcho()
	e.GET("/boom", func(echo.Context) error { panic("nil map") })
	e.GET("/ok", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	assert.Equal(t, http.StatusInternalServerError, serve(e, http.MethodGet, "/boom", nil).Code)
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/ok", nil).Code, "server keeps serving after a panic")
}

func TestHandlerErrorsReachErrorHandlerOnce(t *testing.T) {
	e := newEcho()
	e.GET("/missing", func(echo.Context) error { return echo.NewHTTPError(http.StatusNotFound, "nope") })

	rec := serve(e, http.MethodGet, "/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"nope"}`, rec.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	e := echo.New()
	e.Use(CORS(CORSConfig{
		AllowOrigins: []string{"http://localhost:5173"},
		AllowMethods: []string{http.MethodGet, http.MethodOptions},
	}))
	e.GET("/api/dashboard", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	allowed := serve(e, http.MethodGet, "/api/dashboard", http.Header{"Origin": {"http://localhost:5173"}})
	assert.Equal(t, "http://localhost:5173", allowed.Header().Get(echo.HeaderAccessControlAllowOrigin))

	denied := serve(e, http.MethodGet, "/api/dashboard", http.Header{"Origin": {"http://evil.example"}})
	assert.Empty(t, denied.Header().Get(echo.HeaderAccessControlAllowOrigin))
}
