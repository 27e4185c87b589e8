package providers

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/seethefuture888888-creator/kangbo/internal/domain/models"
	xhttp "github.com/seethefuture888888-creator/kangbo/pkg/http"
)

const marketWatchBaseURL = "https://www.marketwatch.com"

// MarketWatch scrapes the download-data export for Hong Kong listings. The response may
// wrap the CSV in HTML, so parsing starts at the first line beginning with "Date".
type MarketWatch struct {
	cfg sourceConfig
}

func NewMarketWatch(opts ...Option) *MarketWatch {
	return &MarketWatch{cfg: newSourceConfig(marketWatchBaseURL, 15*time.Second, opts)}
}

func (m *MarketWatch) Name() string    { return "marketwatch" }
func (m *MarketWatch) Available() bool { return true }

func (m *MarketWatch) Fetch(ctx context.Context, symbol string, days int) ([]models.OHLCPoint, error) {
	var body []byte
	err := m.cfg.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         m.cfg.baseURL + "/investing/stock/" + url.PathEscape(symbol) + "/download-data",
		Headers:     map[string]string{"User-Agent": "Dashboard/1.0"},
		QueryParams: map[string][]string{"countrycode": {"hk"}},
	}, &body)
	if err != nil {
		return nil, err
	}

	text := string(body)
	start := -1
	for _, line := range strings.SplitAfter(text, "\n") {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), "date") {
			start = strings.Index(text, line)
			break
		}
	}
	if start < 0 {
		return nil, ErrNoData
	}
	pts, err := parseDailyCSV(strings.NewReader(text[start:]))
	if err != nil {
		return nil, err
	}
	cutoff := models.Day(m.cfg.now()).AddDate(0, 0, -days)
	out := pts[:0]
	for _, p := range pts {
		if !p.Date.Before(cutoff) {
			out = append(out, p)
		}
	}
	return out, nil
}
