package providers

import (
	"bytes"
	"context"
	"time"

	"github.com/seethefuture888888-creator/kangbo/internal/domain/models"
	xhttp "github.com/seethefuture888888-creator/kangbo/pkg/http"
	"github.com/seethefuture888888-creator/kangbo/pkg/util"
)

const stooqBaseURL = "https://stooq.com"

// stooq answers some agents with an empty body, so each is tried in turn.
var stooqUserAgents = []string{
	"Dashboard/1.0",
	"Mozilla/5.0 (Windows NT 10.0; rv:91.0) Gecko/20100101 Firefox/91.0",
}

// Stooq serves free daily CSV.
type Stooq struct {
	cfg sourceConfig
}

func NewStooq(opts ...Option) *Stooq {
	return &Stooq{cfg: newSourceConfig(stooqBaseURL, 20*time.Second, opts)}
}

func (s *Stooq) Name() string    { return "stooq" }
func (s *Stooq) Available() bool { return true }

func (s *Stooq) Fetch(ctx context.Context, symbol string, days int) ([]models.OHLCPoint, error) {
	from, to := util.LookbackRange(s.cfg.now(), days)
	lastErr := error(ErrNoData)
	for _, ua := range stooqUserAgents {
		var body []byte
		err := s.cfg.client.SendAndParse(ctx, &xhttp.RequestOptions{
			Method:  xhttp.MethodGet,
			URL:     s.cfg.baseURL + "/q/d/l/",
			Headers: map[string]string{"User-Agent": ua},
			QueryParams: map[string][]string{
				"s":  {symbol},
				"i":  {"d"},
				"d1": {util.FormatCompactDay(from)},
				"d2": {util.FormatCompactDay(to)},
			},
		}, &body)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			lastErr = err
			continue
		}
		out, err := parseDailyCSV(bytes.NewReader(body))
		if err != nil {
			lastErr = err
			continue
		}
		return out, nil
	}
	return nil, lastErr
}
