// Package providers fetches daily price series from third-party sources and
// resolves each ticker through an ordered fallback chain.
package providers

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/seethefuture888888-creator/kangbo/internal/domain/models"
	xhttp "github.com/seethefuture888888-creator/kangbo/pkg/http"
)

var (
	// ErrNoData means the source answered but had no usable rows.
	ErrNoData = errors.New("empty series")
	// ErrZeroClose means the latest close was zero.
	ErrZeroClose = errors.New("latest close is zero")
	// ErrPanic wraps a recovered provider panic.
	ErrPanic = errors.New("provider panic")
)

// Source is one price provider.
type Source interface {
	Name() string
	// Available is false when a required credential is missing.
	Available() bool
	Fetch(ctx context.Context, symbol string, days int) ([]models.OHLCPoint, error)
}

// Option configures a source.
type Option func(*sourceConfig)

type sourceConfig struct {
	baseURL     string
	fallbackURL string
	apiKey      string
	client      *xhttp.Client
	now         func() time.Time
}

func newSourceConfig(baseURL string, timeout time.Duration, opts []Option) sourceConfig {
	cfg := sourceConfig{baseURL: baseURL, now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.client == nil {
		cfg.client = xhttp.NewClient(xhttp.WithTimeout(timeout), xhttp.WithUserAgent("kangbo-dashboard/1.0"))
	}
	cfg.baseURL = strings.TrimRight(cfg.baseURL, "/")
	cfg.fallbackURL = strings.TrimRight(cfg.fallbackURL, "/")
	return cfg
}

// WithBaseURL overrides the endpoint root.
func WithBaseURL(u string) Option {
	return func(c *sourceConfig) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithFallbackURL sets a secondary endpoint root tried after the base fails.
func WithFallbackURL(u string) Option {
	return func(c *sourceConfig) { c.fallbackURL = u }
}

// WithAPIKey sets the credential. An empty key makes the source unavailable.
func WithAPIKey(key string) Option {
	return func(c *sourceConfig) { c.apiKey = key }
}

// WithClient sets the HTTP client.
func WithClient(cl *xhttp.Client) Option {
	return func(c *sourceConfig) { c.client = cl }
}

// WithClock sets the time source used for request windows.
func WithClock(now func() time.Time) Option {
	return func(c *sourceConfig) { c.now = now }
}

// parseDay accepts ISO days and the US month-first form some CSV exports use.
func parseDay(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if d, err := models.ParseDay(s); err == nil {
		return d, true
	}
	if d, err := time.ParseInLocation("01/02/2006", s, time.UTC); err == nil {
		return d, true
	}
	return time.Time{}, false
}

// reason turns an attempt error into a short decline code.
func reason(err error) string {
	var se *xhttp.StatusError
	switch {
	case errors.As(err, &se):
		return "http_" + strconv.Itoa(se.Code)
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrNoData):
		return "empty"
	case errors.Is(err, ErrZeroClose):
		return "zero_close"
	case errors.Is(err, ErrPanic):
		return "panic"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "circuit_open"
	}
	msg := err.Error()
	if len(msg) > 120 {
		msg = msg[:120]
	}
	return "error: " + msg
}
