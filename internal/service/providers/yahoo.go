package providers

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/seethefuture888888-creator/kangbo/internal/domain/models"
	xhttp "github.com/seethefuture888888-creator/kangbo/pkg/http"
)

const (
	yahooBaseURL   = "https://query1.finance.yahoo.com"
	yahooUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

// Yahoo reads the chart API and prefers split/dividend adjusted closes.
type Yahoo struct {
	cfg sourceConfig
}

func NewYahoo(opts ...Option) *Yahoo {
	return &Yahoo{cfg: newSourceConfig(yahooBaseURL, 20*time.Second, opts)}
}

func (y *Yahoo) Name() string    { return "yahoo" }
func (y *Yahoo) Available() bool { return true }

type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (y *Yahoo) Fetch(ctx context.Context, symbol string, days int) ([]models.OHLCPoint, error) {
	now := y.cfg.now().UTC()
	var body yahooChart
	err := y.cfg.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodGet,
		URL:     y.cfg.baseURL + "/v8/finance/chart/" + url.PathEscape(symbol),
		Headers: map[string]string{"User-Agent": yahooUserAgent},
		QueryParams: map[string][]string{
			"period1":  {strconv.FormatInt(now.AddDate(0, 0, -days).Unix(), 10)},
			"period2":  {strconv.FormatInt(now.Unix(), 10)},
			"interval": {"1d"},
			"events":   {"div,split"},
		},
	}, &body)
	if err != nil {
		return nil, err
	}
	if e := body.Chart.Error; e != nil {
		return nil, fmt.Errorf("yahoo %s: %s", e.Code, e.Description)
	}
	if len(body.Chart.Result) == 0 || len(body.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, ErrNoData
	}

	res := body.Chart.Result[0]
	q := res.Indicators.Quote[0]
	var adj []*float64
	if len(res.Indicators.AdjClose) > 0 {
		adj = res.Indicators.AdjClose[0].AdjClose
	}
	out := make([]models.OHLCPoint, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		c, ok := at(adj, i)
		if !ok {
			if c, ok = at(q.Close, i); !ok {
				continue
			}
		}
		p := models.FlatPoint(models.Day(time.Unix(ts, 0)), c)
		if v, ok := at(q.Open, i); ok {
			p.Open = v
		}
		if v, ok := at(q.High, i); ok {
			p.High = v
		}
		if v, ok := at(q.Low, i); ok {
			p.Low = v
		}
		if v, ok := at(q.Volume, i); ok {
			p.Volume = v
		}
		out = append(out, p)
	}
	return out, nil
}

func at(vals []*float64, i int) (float64, bool) {
	if i >= len(vals) || vals[i] == nil {
		return 0, false
	}
	return *vals[i], true
}
