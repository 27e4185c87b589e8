package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/seethefuture888888-creator/kangbo/internal/domain/models"
	"github.com/seethefuture888888-creator/kangbo/internal/domain/repository"
	"github.com/seethefuture888888-creator/kangbo/pkg/cache"
	"github.com/seethefuture888888-creator/kangbo/pkg/logger"
)

// ErrRunInProgress is returned when another replica holds the run lock.
var ErrRunInProgress = errors.New("usecase: pipeline run already in progress")

const (
	runKey            = "run"
	defaultLookback   = 400
	defaultRunTimeout = 10 * time.Minute
	runStatusOK       = "ok"
	runStatusFailed   = "failed"
	runStatusSkipped  = "skipped"
)

// RunLock is a cross-process mutex. pkg/cache backends satisfy it.
type RunLock interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// PipelineOption configures Pipeline.
type PipelineOption func(*Pipeline)

// Pipeline runs fetch, compute and publish. Concurrent callers share one in-flight run.
type Pipeline struct {
	prices  repository.PriceSource
	macro   repository.MacroSource
	builder *Builder
	store   repository.SnapshotStore
	sinks   []repository.SnapshotSink
	lock    RunLock
	metrics repository.Metrics
	log     *logger.Logger

	group      singleflight.Group
	workers    int
	lookback   int
	runTimeout time.Duration
	now        func() time.Time
}

func NewPipeline(prices repository.PriceSource, macro repository.MacroSource, builder *Builder, store repository.SnapshotStore, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		prices:     prices,
		macro:      macro,
		builder:    builder,
		store:      store,
		log:        logger.Nop(),
		workers:    4,
		lookback:   defaultLookback,
		runTimeout: defaultRunTimeout,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func WithSinks(sinks ...repository.SnapshotSink) PipelineOption {
	return func(p *Pipeline) { p.sinks = append(p.sinks, sinks...) }
}

func WithRunLock(l RunLock) PipelineOption {
	return func(p *Pipeline) { p.lock = l }
}

func WithPipelineMetrics(m repository.Metrics) PipelineOption {
	return func(p *Pipeline) { p.metrics = m }
}

func WithPipelineLogger(l *logger.Logger) PipelineOption {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

func WithWorkers(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

func WithLookback(days int) PipelineOption {
	return func(p *Pipeline) {
		if days > 0 {
			p.lookback = days
		}
	}
}

func WithRunTimeout(d time.Duration) PipelineOption {
	return func(p *Pipeline) {
		if d > 0 {
			p.runTimeout = d
		}
	}
}

func WithPipelineClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) { p.now = now }
}

// Store exposes the snapshot store the pipeline writes to.
func (p *Pipeline) Store() repository.SnapshotStore { return p.store }

// Run executes one pipeline run, or joins the one already in flight.
// On failure the previously written snapshot is left untouched.
func (p *Pipeline) Run(ctx context.Context) (*models.Snapshot, error) {
	ch := p.group.DoChan(runKey, func() (interface{}, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.runTimeout)
		defer cancel()
		return p.run(runCtx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*models.Snapshot), nil
	}
}

func (p *Pipeline) run(ctx context.Context) (*models.Snapshot, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := p.log.With(logger.String("run_id", runID))

	if p.lock != nil {
		key := cache.Key("lock", "pipeline")
		ok, err := p.lock.TryLock(ctx, key, p.runTimeout)
		switch {
		case err != nil:
			log.Warn("run lock unavailable, continuing without it", logger.Error(err))
		case !ok:
			p.recordRun(runStatusSkipped, time.Since(start))
			return nil, ErrRunInProgress
		default:
			defer func() {
				if err := p.lock.Unlock(context.WithoutCancel(ctx), key); err != nil {
					log.Warn("run lock release failed", logger.Error(err))
				}
			}()
		}
	}

	snap, err := p.execute(ctx, runID, log)
	if err != nil {
		p.recordRun(runStatusFailed, time.Since(start))
		log.Error("pipeline run failed", logger.Error(err), logger.Duration("duration_ms", time.Since(start)))
		return nil, err
	}
	p.recordRun(runStatusOK, time.Since(start))
	log.Info("pipeline run complete",
		logger.String("path", p.store.Path()),
		logger.Float("risk_score", snap.Payload.DailySignal.RiskScore),
		logger.String("regime", snap.Payload.DailySignal.RegimeLabel),
		logger.Duration("duration_ms", time.Since(start)),
	)
	return snap, nil
}

func (p *Pipeline) execute(ctx context.Context, runID string, log *logger.Logger) (*models.Snapshot, error) {
	assets := p.builder.Assets()
	tickers := models.Tickers(assets)

	macroCh := make(chan models.MacroSet, 1)
	go func() {
		macroCh <- p.macro.FetchAll(ctx)
	}()

	fetched := make([]models.ProviderResult, len(tickers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, ticker := range tickers {
		i, ticker := i, ticker
		g.Go(func() error {
			fetched[i] = p.prices.FetchSeries(gctx, ticker, p.lookback)
			return nil
		})
	}
	_ = g.Wait()
	macro := <-macroCh

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	results := make(map[string]models.ProviderResult, len(fetched))
	for _, res := range fetched {
		results[res.Ticker] = res
		if !res.OK() {
			log.Warn("price series unavailable",
				logger.String("ticker", res.Ticker),
				logger.String("reason", res.ErrorReason),
				logger.Int("attempts", len(res.Attempts)),
			)
			continue
		}
		if p.metrics != nil {
			p.metrics.RecordLastPrice(res.Ticker, res.Series[len(res.Series)-1].Close)
		}
	}

	payload, err := p.builder.Build(ctx, macro, results, p.now())
	if err != nil {
		return nil, fmt.Errorf("build payload: %w", err)
	}
	raw, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	if err := p.store.Write(ctx, raw); err != nil {
		return nil, fmt.Errorf("write snapshot: %w", err)
	}
	if p.metrics != nil {
		p.metrics.RecordRiskScore(payload.DailySignal.RiskScore, payload.DailySignal.RiskScoreConfidence)
	}

	snap := &models.Snapshot{RunID: runID, Payload: payload, Raw: raw}
	p.publish(ctx, snap, log)
	return snap, nil
}

func (p *Pipeline) publish(ctx context.Context, snap *models.Snapshot, log *logger.Logger) {
	for _, sink := range p.sinks {
		if err := sink.Publish(ctx, snap); err != nil {
			log.Warn("snapshot sink failed", logger.String("sink", sink.Name()), logger.Error(err))
		}
	}
}

func (p *Pipeline) recordRun(status string, d time.Duration) {
	if p.metrics != nil {
		p.metrics.RecordRun(status, d)
	}
}
