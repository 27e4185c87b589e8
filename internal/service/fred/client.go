// Package fred reads macro series from the St. Louis Fed and derives the indicators
// consumed by scoring and regime classification.
package fred

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/seethefuture888888-creator/kangbo/internal/domain/models"
	"github.com/seethefuture888888-creator/kangbo/internal/service/ratelimit"
	xhttp "github.com/seethefuture888888-creator/kangbo/pkg/http"
	"github.com/seethefuture888888-creator/kangbo/pkg/util"
)

const (
	defaultAPIURL    = "https://api.stlouisfed.org/fred/series/observations"
	defaultMirrorURL = "https://fred.stlouisfed.org/graph/fredgraph.csv"
)

// ErrUnavailable is returned when no API key is configured.
var ErrUnavailable = errors.New("fred: api key not configured")

// ClientOption configures Client.
type ClientOption func(*Client)

// Client fetches observations from the FRED API and its public CSV mirror.
type Client struct {
	apiKey    string
	apiURL    string
	mirrorURL string
	http      *xhttp.Client
	limiter   *ratelimit.Limiter
	breaker   *gobreaker.CircuitBreaker
}

func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:    apiKey,
		apiURL:    defaultAPIURL,
		mirrorURL: defaultMirrorURL,
		limiter:   ratelimit.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = xhttp.NewClient(xhttp.WithTimeout(30 * time.Second))
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     "fred",
		Interval: 60 * time.Second,
		Timeout:  60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	return c
}

func WithAPIURL(u string) ClientOption {
	return func(c *Client) {
		if u != "" {
			c.apiURL = u
		}
	}
}

func WithMirrorURL(u string) ClientOption {
	return func(c *Client) {
		if u != "" {
			c.mirrorURL = u
		}
	}
}

func WithLimiter(l *ratelimit.Limiter) ClientOption {
	return func(c *Client) { c.limiter = l }
}

// Available reports whether the API can be called.
func (c *Client) Available() bool { return c.apiKey != "" }

type observationsResponse struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
}

// Observations returns observations in [start, end] in the order FRED sends them. Missing values (".") are skipped.
func (c *Client) Observations(ctx context.Context, seriesID string, start, end time.Time) ([]models.Observation, error) {
	if !c.Available() {
		return nil, ErrUnavailable
	}
	if err := c.limiter.Wait(ctx, "fred", 2, 2); err != nil {
		return nil, err
	}
	out, err := c.breaker.Execute(func() (interface{}, error) {
		var body observationsResponse
		err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
			Method: xhttp.MethodGet,
			URL:    c.apiURL,
			QueryParams: map[string][]string{
				"series_id":         {seriesID},
				"api_key":           {c.apiKey},
				"file_type":         {"json"},
				"observation_start": {util.FormatDay(start)},
				"observation_end":   {util.FormatDay(end)},
				"sort_order":        {"asc"},
			},
		}, &body)
		if err != nil {
			return nil, err
		}
		obs := make([]models.Observation, 0, len(body.Observations))
		for _, o := range body.Observations {
			if obsv, ok := toObservation(o.Date, o.Value); ok {
				obs = append(obs, obsv)
			}
		}
		return obs, nil
	})
	if err != nil {
		return nil, fmt.Errorf("fred %s: %w", seriesID, err)
	}
	return out.([]models.Observation), nil
}

// MirrorObservations reads the keyless CSV export starting at start.
func (c *Client) MirrorObservations(ctx context.Context, seriesID string, start time.Time) ([]models.Observation, error) {
	var body []byte
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.mirrorURL,
		QueryParams: map[string][]string{
			"id":   {seriesID},
			"cosd": {util.FormatDay(start)},
		},
	}, &body)
	if err != nil {
		return nil, fmt.Errorf("fred mirror %s: %w", seriesID, err)
	}
	return parseMirrorCSV(body), nil
}

// parseMirrorCSV reads "DATE,SERIES" rows after a header line.
func parseMirrorCSV(body []byte) []models.Observation {
	_, rows, err := util.ReadCSV(bytes.NewReader(body))
	if err != nil {
		return nil
	}
	out := make([]models.Observation, 0, len(rows))
	for _, rec := range rows {
		if len(rec) < 2 {
			continue
		}
		if o, ok := toObservation(rec[0], rec[1]); ok {
			out = append(out, o)
		}
	}
	return out
}

func toObservation(date, value string) (models.Observation, bool) {
	value = strings.TrimSpace(value)
	if value == "None" {
		return models.Observation{}, false
	}
	v, ok := util.ParseFloat(value)
	if !ok || !util.Finite(v) {
		return models.Observation{}, false
	}
	d, err := models.ParseDay(strings.TrimSpace(date))
	if err != nil {
		return models.Observation{}, false
	}
	return models.Observation{Date: d, Value: v}, true
}
