package fred

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/seethefuture888888-creator/kangbo/internal/domain/models"
	"github.com/seethefuture888888-creator/kangbo/internal/domain/repository"
	"github.com/seethefuture888888-creator/kangbo/pkg/logger"
)

// SeriesIDs maps indicator ids to FRED series.
var SeriesIDs = map[string]string{
	models.IndicatorHY:      "BAMLH0A0HYM2",
	models.IndicatorReal10Y: "DFII10",
	models.IndicatorDXY:     "DTWEXBGS",
	models.IndicatorCoreCPI: "CPILFESL",
	models.IndicatorPMI:     "AMTMNO",
}

var indicatorOrder = []string{
	models.IndicatorHY,
	models.IndicatorReal10Y,
	models.IndicatorDXY,
	models.IndicatorPMI,
	models.IndicatorCoreCPI,
}

// ordersHistoryStart covers enough monthly history for the widest z-score window.
var ordersHistoryStart = time.Date(1992, 2, 1, 0, 0, 0, 0, time.UTC)

// ObservationSource is the subset of Client the aggregator needs.
type ObservationSource interface {
	Available() bool
	Observations(ctx context.Context, seriesID string, start, end time.Time) ([]models.Observation, error)
	MirrorObservations(ctx context.Context, seriesID string, start time.Time) ([]models.Observation, error)
}

// AggregatorOption configures Aggregator.
type AggregatorOption func(*Aggregator)

// Aggregator derives the macro indicator set for one run.
type Aggregator struct {
	src      ObservationSource
	lookback int // years
	now      func() time.Time
	log      *logger.Logger
	metrics  repository.Metrics
}

func NewAggregator(src ObservationSource, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{src: src, lookback: 3, now: time.Now, log: logger.Nop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func WithClock(now func() time.Time) AggregatorOption {
	return func(a *Aggregator) { a.now = now }
}

func WithLogger(l *logger.Logger) AggregatorOption {
	return func(a *Aggregator) { a.log = l }
}

func WithMetrics(m repository.Metrics) AggregatorOption {
	return func(a *Aggregator) { a.metrics = m }
}

// WithLookbackYears sets the observation window for level series.
func WithLookbackYears(y int) AggregatorOption {
	return func(a *Aggregator) {
		if y > 0 {
			a.lookback = y
		}
	}
}

// FetchIndicator never fails: missing data yields a null indicator with freshness 999.
func (a *Aggregator) FetchIndicator(ctx context.Context, id string) models.MacroIndicator {
	now := a.now().UTC()
	switch id {
	case models.IndicatorPMI:
		return a.pmi(ctx, now)
	case models.IndicatorCoreCPI:
		return CoreInflation(a.observations(ctx, id, now.AddDate(-a.lookback, 0, 0), now), now)
	default:
		if _, ok := SeriesIDs[id]; !ok {
			return models.MissingIndicator(id)
		}
		return LevelIndicator(id, a.observations(ctx, id, now.AddDate(-a.lookback, 0, 0), now), now)
	}
}

func (a *Aggregator) observations(ctx context.Context, id string, start, end time.Time) []models.Observation {
	if !a.src.Available() {
		return nil
	}
	obs, err := a.src.Observations(ctx, SeriesIDs[id], start, end)
	if err != nil {
		a.log.Warn("macro series fetch failed", logger.String("indicator", id), logger.Error(err))
		return nil
	}
	return ascending(obs)
}

// ascending orders observations by date. Neither the API's sort_order nor the mirror's
// row order is relied on.
func ascending(obs []models.Observation) []models.Observation {
	sort.SliceStable(obs, func(i, j int) bool { return obs[i].Date.Before(obs[j].Date) })
	return obs
}

// pmi tries the API, then the CSV mirror, then the neutral fallback.
func (a *Aggregator) pmi(ctx context.Context, now time.Time) models.MacroIndicator {
	if ind, ok := PMIFromOrders(a.observations(ctx, models.IndicatorPMI, ordersHistoryStart, now), now); ok {
		return ind
	}
	obs, err := a.src.MirrorObservations(ctx, SeriesIDs[models.IndicatorPMI], ordersHistoryStart)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.log.Warn("pmi mirror fetch failed", logger.Error(err))
	}
	ind, ok := PMIFromOrders(ascending(obs), now)
	if !ok {
		a.log.Warn("pmi fallback", logger.Int("mirror_rows", len(obs)))
	}
	return ind
}

// FetchAll fetches every indicator concurrently; a single collector owns the result set.
func (a *Aggregator) FetchAll(ctx context.Context) models.MacroSet {
	if !a.src.Available() {
		a.log.Warn("FRED_API_KEY not set; macro api unavailable")
	}

	ch := make(chan models.MacroIndicator, len(indicatorOrder))
	var wg sync.WaitGroup
	for _, id := range indicatorOrder {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			ch <- a.FetchIndicator(ctx, id)
		}(id)
	}
	go func() { wg.Wait(); close(ch) }()

	set := models.EmptyMacroSet()
	for ind := range ch {
		set.Set(ind)
		if a.metrics != nil {
			a.metrics.RecordMacroFreshness(ind.ID, ind.FreshnessDays)
		}
	}
	return set
}
