package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/seethefuture888888-creator/kangbo/internal/domain/models"
	xhttp "github.com/seethefuture888888-creator/kangbo/pkg/http"
	"github.com/seethefuture888888-creator/kangbo/pkg/util"
)

const twelveDataBaseURL = "https://api.twelvedata.com"

// TwelveData is a paid tier; it also serves spot metals used as futures proxies.
type TwelveData struct {
	cfg sourceConfig
}

func NewTwelveData(opts ...Option) *TwelveData {
	return &TwelveData{cfg: newSourceConfig(twelveDataBaseURL, 20*time.Second, opts)}
}

func (t *TwelveData) Name() string    { return "twelvedata" }
func (t *TwelveData) Available() bool { return t.cfg.apiKey != "" }

type twelveDataSeries struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Values  []struct {
		Datetime string `json:"datetime"`
		Open     string `json:"open"`
		High     string `json:"high"`
		Low      string `json:"low"`
		Close    string `json:"close"`
		Volume   string `json:"volume"`
	} `json:"values"`
}

func (t *TwelveData) Fetch(ctx context.Context, symbol string, days int) ([]models.OHLCPoint, error) {
	from, to := util.LookbackRange(t.cfg.now(), days)
	var body twelveDataSeries
	err := t.cfg.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    t.cfg.baseURL + "/time_series",
		QueryParams: map[string][]string{
			"symbol":     {symbol},
			"interval":   {"1day"},
			"start_date": {util.FormatDay(from)},
			"end_date":   {util.FormatDay(to)},
			"apikey":     {t.cfg.apiKey},
		},
	}, &body)
	if err != nil {
		return nil, err
	}
	if body.Status == "error" {
		return nil, fmt.Errorf("twelvedata: %s", body.Message)
	}

	out := make([]models.OHLCPoint, 0, len(body.Values))
	for _, v := range body.Values {
		day, ok := parseDay(v.Datetime)
		if !ok {
			continue
		}
		c, ok := util.ParseFloat(v.Close)
		if !ok {
			continue
		}
		p := models.FlatPoint(day, c)
		if f, ok := util.ParseFloat(v.Open); ok {
			p.Open = f
		}
		if f, ok := util.ParseFloat(v.High); ok {
			p.High = f
		}
		if f, ok := util.ParseFloat(v.Low); ok {
			p.Low = f
		}
		if f, ok := util.ParseFloat(v.Volume); ok {
			p.Volume = f
		}
		out = append(out, p)
	}
	return out, nil
}
