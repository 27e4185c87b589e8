package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/seethefuture888888-creator/kangbo/internal/domain/models"
	pkgch "github.com/seethefuture888888-creator/kangbo/pkg/clickhouse"
	applogger "github.com/seethefuture888888-creator/kangbo/pkg/logger"
)

// DefaultHistoryTable receives one row per asset per run.
const DefaultHistoryTable = "kangbo.signal_history"

// HistorySchema returns the idempotent DDL for the history table.
func HistorySchema(table string) []string {
	db := "kangbo"
	if i := strings.IndexByte(table, '.'); i > 0 {
		db = table[:i]
	}
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
            run_id String,
            generated_at DateTime('UTC'),
            asset_id LowCardinality(String),
            ticker String,
            provider LowCardinality(String),
            price Nullable(Float64),
            trend_light LowCardinality(String),
            risk_light LowCardinality(String),
            catalyst_light LowCardinality(String),
            action LowCardinality(String),
            suggested_max_weight Float64,
            regime LowCardinality(String),
            regime_label String,
            risk_score Float64,
            risk_confidence Float64
        ) ENGINE = MergeTree
        PARTITION BY toYYYYMM(generated_at)
        ORDER BY (asset_id, generated_at)`, table),
	}
}

// ClickHouseHistoryStore appends per-asset signal rows for external analysis.
type ClickHouseHistoryStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewClickHouseHistoryStore(ch *pkgch.Client, table string) *ClickHouseHistoryStore {
	return newHistoryStore(ch.DB(), table)
}

func newHistoryStore(db *sql.DB, table string) *ClickHouseHistoryStore {
	if table == "" {
		table = DefaultHistoryTable
	}
	return &ClickHouseHistoryStore{db: db, table: table, l: applogger.Nop()}
}

// SetLogger injects a structured logger.
func (s *ClickHouseHistoryStore) SetLogger(l *applogger.Logger) {
	if l != nil {
		s.l = l
	}
}

func (s *ClickHouseHistoryStore) Name() string { return "clickhouse" }

// Publish inserts one row per asset in a single multi-row statement.
func (s *ClickHouseHistoryStore) Publish(ctx context.Context, snap *models.Snapshot) error {
	p := snap.Payload
	if p == nil || p.DailySignal == nil || len(p.AssetSignals) == 0 {
		return nil
	}
	start := time.Now()
	generatedAt, err := time.Parse(time.RFC3339, p.GeneratedAt)
	if err != nil {
		return fmt.Errorf("history generated_at: %w", err)
	}

	rows := make(map[string]models.AssetRow, len(p.Assets))
	for _, r := range p.Assets {
		rows[r.ID] = r
	}

	const cols = 15
	values := make([]string, 0, len(p.AssetSignals))
	args := make([]interface{}, 0, len(p.AssetSignals)*cols)
	for _, sig := range p.AssetSignals {
		row := rows[sig.AssetID]
		var price *float64
		if row.Price.Valid {
			v := row.Price.Float64
			price = &v
		}
		provider := ""
		if st, ok := p.DataStatus[row.Ticker]; ok {
			provider = st.Provider
		}
		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			snap.RunID,
			generatedAt,
			sig.AssetID,
			row.Ticker,
			provider,
			price,
			string(sig.TrendLight),
			string(sig.RiskLight),
			string(sig.CatalystLight),
			string(sig.Action),
			sig.SuggestedMaxWeight,
			string(p.DailySignal.Regime),
			p.DailySignal.RegimeLabel,
			p.DailySignal.RiskScore,
			p.DailySignal.RiskScoreConfidence,
		)
	}

	q := fmt.Sprintf(`INSERT INTO %s (run_id, generated_at, asset_id, ticker, provider, price, trend_light, risk_light, catalyst_light, action, suggested_max_weight, regime, regime_label, risk_score, risk_confidence) VALUES %s`,
		s.table, strings.Join(values, ","))
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		s.l.Error("clickhouse history insert error",
			applogger.String("table", s.table),
			applogger.String("run_id", snap.RunID),
			applogger.Error(err),
		)
		return fmt.Errorf("insert history: %w", err)
	}
	s.l.Debug("clickhouse history insert ok",
		applogger.String("table", s.table),
		applogger.Int("rows", len(values)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}
