package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/seethefuture888888-creator/kangbo/internal/domain/models"
	xhttp "github.com/seethefuture888888-creator/kangbo/pkg/http"
)

const (
	binanceBaseURL     = "https://data-api.binance.vision"
	binanceFallbackURL = "https://api.binance.com"
	binanceKlineLimit  = 400
)

// Binance reads public daily klines. The public data mirror is tried before the trading API.
type Binance struct {
	cfg sourceConfig
}

func NewBinance(opts ...Option) *Binance {
	opts = append([]Option{WithFallbackURL(binanceFallbackURL)}, opts...)
	return &Binance{cfg: newSourceConfig(binanceBaseURL, 15*time.Second, opts)}
}

func (b *Binance) Name() string    { return "binance" }
func (b *Binance) Available() bool { return true }

func (b *Binance) Fetch(ctx context.Context, symbol string, days int) ([]models.OHLCPoint, error) {
	limit := binanceKlineLimit
	if days > 0 && days < limit {
		limit = days
	}
	out, err := b.klines(ctx, b.cfg.baseURL, symbol, limit)
	if err == nil || b.cfg.fallbackURL == "" || b.cfg.fallbackURL == b.cfg.baseURL || ctx.Err() != nil {
		return out, err
	}
	return b.klines(ctx, b.cfg.fallbackURL, symbol, limit)
}

func (b *Binance) klines(ctx context.Context, base, symbol string, limit int) ([]models.OHLCPoint, error) {
	var rows [][]json.RawMessage
	err := b.cfg.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    base + "/api/v3/klines",
		QueryParams: map[string][]string{
			"symbol":   {symbol},
			"interval": {"1d"},
			"limit":    {strconv.Itoa(limit)},
		},
	}, &rows)
	if err != nil {
		return nil, err
	}
	out := make([]models.OHLCPoint, 0, len(rows))
	for _, row := range rows {
		p, err := parseKline(row)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// parseKline decodes [openTimeMs, "open", "high", "low", "close", "volume", ...].
func parseKline(row []json.RawMessage) (models.OHLCPoint, error) {
	if len(row) < 6 {
		return models.OHLCPoint{}, fmt.Errorf("kline: %d fields", len(row))
	}
	var ts int64
	if err := json.Unmarshal(row[0], &ts); err != nil {
		return models.OHLCPoint{}, fmt.Errorf("kline time: %w", err)
	}
	var vals [5]float64
	for i := range vals {
		var s string
		if err := json.Unmarshal(row[i+1], &s); err != nil {
			return models.OHLCPoint{}, fmt.Errorf("kline field %d: %w", i+1, err)
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return models.OHLCPoint{}, fmt.Errorf("kline field %d: %w", i+1, err)
		}
		vals[i] = f
	}
	return models.OHLCPoint{
		Date:   models.Day(time.UnixMilli(ts)),
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, nil
}
