package providers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/seethefuture888888-creator/kangbo/internal/domain/models"
	"github.com/seethefuture888888-creator/kangbo/internal/domain/repository"
	"github.com/seethefuture888888-creator/kangbo/internal/service/ratelimit"
	"github.com/seethefuture888888-creator/kangbo/internal/services/features"
	"github.com/seethefuture888888-creator/kangbo/pkg/cache"
	"github.com/seethefuture888888-creator/kangbo/pkg/logger"
)

const (
	// ProviderFallback is reported when every step declined.
	ProviderFallback = "fallback"
	// ErrorAllSourcesFailed is the exhaustion reason.
	ErrorAllSourcesFailed = "all_sources_failed"

	reasonUnavailable = "unavailable"
)

// Route is how one step serves one ticker.
type Route struct {
	Symbol        string
	Provider      string
	IsProxy       bool
	ProxyFor      string
	PriceAdjusted bool
}

// Step is one rung of the chain. Route returns false when the step does not serve the ticker.
type Step struct {
	Source  Source
	Route   func(ticker string) (Route, bool)
	Timeout time.Duration
}

// SeriesCache stores accepted series between runs.
type SeriesCache interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
}

// Sources are the concrete providers the default chain is built from.
type Sources struct {
	Yahoo        Source
	Stooq        Source
	AlphaVantage Source
	MarketWatch  Source
	TwelveData   Source
	Binance      Source
}

// DefaultSteps orders the providers: yahoo, stooq, alphavantage, marketwatch,
// twelvedata, binance, then commodity ETFs through stooq and yahoo.
func DefaultSteps(s Sources) []Step {
	withProxy := func(r Route, ticker string) Route {
		if p, ok := ProxyFor(ticker); ok {
			r.IsProxy, r.ProxyFor = true, p
		}
		return r
	}
	etf := func(src Source, symbol func(string) string) Step {
		return Step{Source: src, Timeout: 20 * time.Second, Route: func(t string) (Route, bool) {
			e, ok := ETFFallback(t)
			if !ok {
				return Route{}, false
			}
			return Route{Symbol: symbol(e), Provider: "etf_fallback:" + e, IsProxy: true, ProxyFor: e}, true
		}}
	}

	return []Step{
		{Source: s.Yahoo, Timeout: 20 * time.Second, Route: func(t string) (Route, bool) {
			return Route{Symbol: t, Provider: "yahoo", PriceAdjusted: true}, true
		}},
		{Source: s.Stooq, Timeout: 20 * time.Second, Route: func(t string) (Route, bool) {
			return withProxy(Route{Symbol: StooqSymbol(t), Provider: "stooq"}, t), true
		}},
		{Source: s.AlphaVantage, Timeout: 15 * time.Second, Route: func(t string) (Route, bool) {
			sym, ok := AlphaVantageSymbol(t)
			return Route{Symbol: sym, Provider: "alphavantage"}, ok
		}},
		{Source: s.MarketWatch, Timeout: 15 * time.Second, Route: func(t string) (Route, bool) {
			sym, ok := MarketWatchSymbol(t)
			return Route{Symbol: sym, Provider: "marketwatch"}, ok
		}},
		{Source: s.TwelveData, Timeout: 20 * time.Second, Route: func(t string) (Route, bool) {
			return withProxy(Route{Symbol: TwelveDataSymbol(t), Provider: "twelvedata"}, t), true
		}},
		{Source: s.Binance, Timeout: 15 * time.Second, Route: func(t string) (Route, bool) {
			return Route{Symbol: binanceSymbol, Provider: "binance"}, t == tickerBTC
		}},
		etf(s.Stooq, StooqSymbol),
		etf(s.Yahoo, func(e string) string { return e }),
	}
}

// ChainOption configures Chain.
type ChainOption func(*Chain)

// Chain resolves a ticker by trying each step in order until one yields a usable series.
// Every call is rate limited, circuit broken and time bounded per source; failures are
// recorded as attempts and never returned.
type Chain struct {
	steps    []Step
	limiter  *ratelimit.Limiter
	rps      float64
	burst    float64
	cache    SeriesCache
	cacheTTL time.Duration
	metrics  repository.Metrics
	log      *logger.Logger
	now      func() time.Time

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

func NewChain(steps []Step, opts ...ChainOption) *Chain {
	c := &Chain{
		steps:    steps,
		limiter:  ratelimit.New(),
		rps:      2,
		burst:    2,
		cacheTTL: 30 * time.Minute,
		log:      logger.Nop(),
		now:      time.Now,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithRateLimit sets the per-source request rate.
func WithRateLimit(rps float64, burst int) ChainOption {
	return func(c *Chain) {
		c.rps, c.burst = rps, float64(burst)
	}
}

// WithLimiter shares a limiter with other clients.
func WithLimiter(l *ratelimit.Limiter) ChainOption {
	return func(c *Chain) { c.limiter = l }
}

// WithSeriesCache caches accepted series for ttl.
func WithSeriesCache(sc SeriesCache, ttl time.Duration) ChainOption {
	return func(c *Chain) {
		c.cache = sc
		if ttl > 0 {
			c.cacheTTL = ttl
		}
	}
}

func WithMetrics(m repository.Metrics) ChainOption {
	return func(c *Chain) { c.metrics = m }
}

func WithLogger(l *logger.Logger) ChainOption {
	return func(c *Chain) { c.log = l }
}

func WithChainClock(now func() time.Time) ChainOption {
	return func(c *Chain) { c.now = now }
}

// FetchSeries never fails: exhaustion yields an empty series with provider "fallback".
// A source is asked for a given symbol at most once per call.
func (c *Chain) FetchSeries(ctx context.Context, ticker string, lookbackDays int) models.ProviderResult {
	res := models.ProviderResult{Ticker: ticker}
	tried := make(map[string]bool, len(c.steps))
	for _, step := range c.steps {
		if step.Source == nil {
			continue
		}
		route, ok := step.Route(ticker)
		if !ok {
			continue
		}
		// HG=F maps to cper.us on both the stooq step and its ETF rung.
		seen := step.Source.Name() + ":" + route.Symbol
		if tried[seen] {
			continue
		}
		tried[seen] = true
		if !step.Source.Available() {
			res.Attempts = append(res.Attempts, models.ProviderAttempt{Provider: route.Provider, Symbol: route.Symbol, Reason: reasonUnavailable})
			c.record(step.Source.Name(), reasonUnavailable, 0)
			continue
		}

		series, err := c.attempt(ctx, step, route, lookbackDays)
		if err != nil {
			r := reason(err)
			res.Attempts = append(res.Attempts, models.ProviderAttempt{Provider: route.Provider, Symbol: route.Symbol, Reason: r})
			c.log.Debug("provider declined",
				logger.String("ticker", ticker),
				logger.String("provider", route.Provider),
				logger.String("symbol", route.Symbol),
				logger.String("reason", r))
			continue
		}

		last := series[len(series)-1]
		res.Series = series
		res.Provider = route.Provider
		res.LastObserved = last.Date
		res.RowCount = len(series)
		res.MappedSymbol = route.Symbol
		res.IsProxy = route.IsProxy
		res.ProxyFor = route.ProxyFor
		res.PriceAdjusted = route.PriceAdjusted
		c.log.Info("series resolved",
			logger.String("ticker", ticker),
			logger.String("provider", route.Provider),
			logger.Int("rows", res.RowCount),
			logger.Bool("proxy", route.IsProxy))
		return res
	}

	res.Provider = ProviderFallback
	res.ErrorReason = ErrorAllSourcesFailed
	c.log.Warn("all sources failed", logger.String("ticker", ticker), logger.Int("attempts", len(res.Attempts)))
	return res
}

func (c *Chain) attempt(ctx context.Context, step Step, route Route, days int) (series []models.OHLCPoint, err error) {
	name := step.Source.Name()
	start := c.now()
	defer func() {
		if r := recover(); r != nil {
			series, err = nil, fmt.Errorf("%w: %v", ErrPanic, r)
		}
		outcome := "ok"
		if err != nil {
			outcome = reason(err)
			if len(outcome) > 16 {
				outcome = "error"
			}
		}
		c.record(name, outcome, c.now().Sub(start))
	}()

	key := c.cacheKey(name, route.Symbol, days)
	if c.cache != nil {
		var cached []models.OHLCPoint
		if cerr := c.cache.Get(ctx, key, &cached); cerr == nil && acceptable(cached) == nil {
			return cached, nil
		}
	}

	timeout := step.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := c.limiter.Wait(callCtx, name, c.burst, c.rps); err != nil {
		return nil, err
	}

	out, err := c.breaker(name).Execute(func() (interface{}, error) {
		pts, err := step.Source.Fetch(callCtx, route.Symbol, days)
		if err != nil {
			return nil, err
		}
		pts = trimWindow(features.Normalize(pts), c.now(), days)
		if err := acceptable(pts); err != nil {
			return nil, err
		}
		return pts, nil
	})
	if err != nil {
		return nil, err
	}
	series = out.([]models.OHLCPoint)

	if c.cache != nil {
		if cerr := c.cache.Set(ctx, key, series, c.cacheTTL); cerr != nil {
			c.log.Warn("series cache set failed", logger.String("key", key), logger.Error(cerr))
		}
	}
	return series, nil
}

// breaker returns the per-source breaker. Empty or zero-close answers do not count as failures.
func (c *Chain) breaker(name string) *gobreaker.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cb, ok := c.breakers[name]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     name,
		Interval: 60 * time.Second,
		Timeout:  60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNoData) || errors.Is(err, ErrZeroClose)
		},
	})
	c.breakers[name] = cb
	return cb
}

func (c *Chain) record(provider, outcome string, d time.Duration) {
	if c.metrics != nil {
		c.metrics.RecordProviderAttempt(provider, outcome, d)
	}
}

func (c *Chain) cacheKey(source, symbol string, days int) string {
	return cache.Key("series", source, symbol, strconv.Itoa(days), c.now().UTC().Format(models.DateLayout))
}

func acceptable(pts []models.OHLCPoint) error {
	if len(pts) == 0 {
		return ErrNoData
	}
	if pts[len(pts)-1].Close == 0 {
		return ErrZeroClose
	}
	return nil
}

func trimWindow(pts []models.OHLCPoint, now time.Time, days int) []models.OHLCPoint {
	if days <= 0 {
		return pts
	}
	cutoff := models.Day(now).AddDate(0, 0, -days)
	for i, p := range pts {
		if !p.Date.Before(cutoff) {
			return pts[i:]
		}
	}
	return nil
}
