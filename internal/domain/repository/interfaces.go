package repository

import (
	"context"
	"errors"
	"time"

	"github.com/seethefuture888888-creator/kangbo/internal/domain/models"
)

var (
	// ErrSnapshotNotFound is returned when no snapshot has been written yet.
	ErrSnapshotNotFound = errors.New("snapshot not found")
	// ErrSnapshotInvalid is returned when the stored snapshot is not a valid payload.
	ErrSnapshotInvalid = errors.New("snapshot invalid")
)

// PriceSource resolves a daily series for one ticker. It never returns an error:
// exhaustion is reported through the result.
type PriceSource interface {
	FetchSeries(ctx context.Context, ticker string, lookbackDays int) models.ProviderResult
}

// MacroSource resolves the macro indicators for one run.
type MacroSource interface {
	FetchAll(ctx context.Context) models.MacroSet
}

// SnapshotStore persists the latest dashboard snapshot.
type SnapshotStore interface {
	// Write replaces the stored snapshot atomically. On failure the previous snapshot is kept.
	Write(ctx context.Context, raw []byte) error
	// Read returns the stored bytes. ErrSnapshotNotFound and ErrSnapshotInvalid are distinguished.
	Read(ctx context.Context) ([]byte, error)
	// Load is Read followed by decoding.
	Load(ctx context.Context) (*models.DashboardPayload, error)
	Path() string
}

// SnapshotSink receives every successfully written snapshot.
type SnapshotSink interface {
	Name() string
	Publish(ctx context.Context, snap *models.Snapshot) error
}

// Metrics records pipeline observations.
type Metrics interface {
	RecordProviderAttempt(provider, outcome string, d time.Duration)
	RecordRun(status string, d time.Duration)
	RecordLastPrice(ticker string, price float64)
	RecordMacroFreshness(indicator string, days int)
	RecordRiskScore(score, confidence float64)
}
