package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seethefuture888888-creator/kangbo/internal/domain/models"
)

func TestClickHouseHistoryStorePublish(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	snap := sampleSnapshot(t)
	mock.ExpectExec(`INSERT INTO kangbo\.signal_history \(run_id, generated_at`).
		WillReturnResult(sqlmock.NewResult(0, int64(len(snap.Payload.AssetSignals))))

	s := newHistoryStore(db, "")
	require.NoError(t, s.Publish(context.Background(), snap))
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, "clickhouse", s.Name())
}

func TestClickHouseHistoryStorePublishError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO analytics\.history`).WillReturnError(errors.New("table is read-only"))

	s := newHistoryStore(db, "analytics.history")
	err = s.Publish(context.Background(), sampleSnapshot(t))
	assert.ErrorContains(t, err, "read-only")
}

func TestClickHouseHistoryStoreSkipsEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := newHistoryStore(db, "")
	require.NoError(t, s.Publish(context.Background(), &models.Snapshot{Payload: &models.DashboardPayload{}}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistorySchema(t *testing.T) {
	stmts := HistorySchema("analytics.history")
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE DATABASE IF NOT EXISTS analytics", stmts[0])
	assert.Contains(t, stmts[1], "CREATE TABLE IF NOT EXISTS analytics.history")
}
