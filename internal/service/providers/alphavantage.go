package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/seethefuture888888-creator/kangbo/internal/domain/models"
	xhttp "github.com/seethefuture888888-creator/kangbo/pkg/http"
	"github.com/seethefuture888888-creator/kangbo/pkg/util"
)

const alphaVantageBaseURL = "https://www.alphavantage.co"

// AlphaVantage is a quota-limited paid tier, placed after the free sources.
type AlphaVantage struct {
	cfg sourceConfig
}

func NewAlphaVantage(opts ...Option) *AlphaVantage {
	return &AlphaVantage{cfg: newSourceConfig(alphaVantageBaseURL, 15*time.Second, opts)}
}

func (a *AlphaVantage) Name() string    { return "alphavantage" }
func (a *AlphaVantage) Available() bool { return a.cfg.apiKey != "" }

type alphaVantageDaily struct {
	Series      map[string]map[string]string `json:"Time Series (Daily)"`
	Note        string                       `json:"Note"`
	Information string                       `json:"Information"`
	Error       string                       `json:"Error Message"`
}

func (a *AlphaVantage) Fetch(ctx context.Context, symbol string, days int) ([]models.OHLCPoint, error) {
	outputSize := "compact"
	if days > 100 {
		outputSize = "full"
	}
	var body alphaVantageDaily
	err := a.cfg.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    a.cfg.baseURL + "/query",
		QueryParams: map[string][]string{
			"function":   {"TIME_SERIES_DAILY"},
			"symbol":     {symbol},
			"apikey":     {a.cfg.apiKey},
			"outputsize": {outputSize},
		},
	}, &body)
	if err != nil {
		return nil, err
	}
	for _, msg := range []string{body.Error, body.Note, body.Information} {
		if msg != "" && len(body.Series) == 0 {
			return nil, fmt.Errorf("alphavantage: %s", msg)
		}
	}

	cutoff := models.Day(a.cfg.now()).AddDate(0, 0, -days)
	out := make([]models.OHLCPoint, 0, len(body.Series))
	for date, row := range body.Series {
		day, ok := parseDay(date)
		if !ok || day.Before(cutoff) {
			continue
		}
		c, ok := util.ParseFloat(row["4. close"])
		if !ok {
			continue
		}
		p := models.FlatPoint(day, c)
		if v, ok := util.ParseFloat(row["1. open"]); ok {
			p.Open = v
		}
		if v, ok := util.ParseFloat(row["2. high"]); ok {
			p.High = v
		}
		if v, ok := util.ParseFloat(row["3. low"]); ok {
			p.Low = v
		}
		if v, ok := util.ParseFloat(row["5. volume"]); ok {
			p.Volume = v
		}
		out = append(out, p)
	}
	return out, nil
}
