package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seethefuture888888-creator/kangbo/internal/domain/models"
	"github.com/seethefuture888888-creator/kangbo/internal/repository"
	"github.com/seethefuture888888-creator/kangbo/internal/usecase"
	xlogger "github.com/seethefuture888888-creator/kangbo/pkg/logger"
)

type stubRunner struct {
	snap *models.Snapshot
	err  error
}

func (r *stubRunner) Run(context.Context) (*models.Snapshot, error) {
	return r.snap, r.err
}

func buildRaw(t *testing.T) []byte {
	t.Helper()
	now := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)
	p, err := usecase.NewBuilder(models.DefaultAssets(), 2).Build(context.Background(), models.EmptyMacroSet(), nil, now)
	require.NoError(t, err)
	raw, err := json.MarshalIndent(p, "", "  ")
	require.NoError(t, err)
	return raw
}

func newTestServer(t *testing.T, runner Runner) (*echo.Echo, *repository.FileSnapshotStore) {
	t.Helper()
	store := repository.NewFileSnapshotStore(filepath.Join(t.TempDir(), "dashboard.json"))
	e := echo.New()
	NewDashboardEchoHandler(xlogger.Nop(), store, runner, nil).RegisterRoutes(e)
	return e, store
}

func get(e *echo.Echo, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	e, store := newTestServer(t, &stubRunner{})
	rec := get(e, "/api/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, store.Path(), body["dashboard_json_path"])
}

func TestDashboardNotFoundBeforeFirstRun(t *testing.T) {
	e, _ := newTestServer(t, &stubRunner{})
	assert.Equal(t, http.StatusNotFound, get(e, "/api/dashboard").Code)
	assert.Equal(t, http.StatusNotFound, get(e, "/data/dashboard.json").Code)
	assert.Equal(t, http.StatusNotFound, get(e, "/api/signals").Code)
}

func TestDashboardServesStoredBytes(t *testing.T) {
	e, store := newTestServer(t, &stubRunner{})
	raw := buildRaw(t)
	require.NoError(t, store.Write(context.Background(), raw))

	rec := get(e, "/api/dashboard")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, raw, rec.Body.Bytes())

	rec = get(e, "/data/dashboard.json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, raw, rec.Body.Bytes())
}

func TestDashboardInvalidSnapshot(t *testing.T) {
	e, store := newTestServer(t, &stubRunner{})
	require.NoError(t, os.WriteFile(store.Path(), []byte("{not json"), 0o644))
	assert.Equal(t, http.StatusBadRequest, get(e, "/api/dashboard").Code)
}

func TestLive(t *testing.T) {
	raw := buildRaw(t)
	e, _ := newTestServer(t, &stubRunner{snap: &models.Snapshot{RunID: "r1", Raw: raw}})
	rec := get(e, "/api/dashboard/live")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, raw, rec.Body.Bytes())
}

func TestLiveErrors(t *testing.T) {
	e, _ := newTestServer(t, &stubRunner{err: usecase.ErrRunInProgress})
	assert.Equal(t, http.StatusConflict, get(e, "/api/dashboard/live").Code)

	e, _ = newTestServer(t, &stubRunner{err: errors.New("disk full")})
	rec := get(e, "/api/dashboard/live")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Generate failed: disk full")
}

func TestSignals(t *testing.T) {
	e, store := newTestServer(t, &stubRunner{})
	require.NoError(t, store.Write(context.Background(), buildRaw(t)))

	decode := func(rec *httptest.ResponseRecorder) []models.AssetSignal {
		var body struct {
			Data []models.AssetSignal `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		return body.Data
	}

	rec := get(e, "/api/signals")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(rec), len(models.DefaultAssets()))

	rec = get(e, "/api/signals?asset=btc")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode(rec)
	require.Len(t, got, 1)
	assert.Equal(t, "BTC", got[0].AssetID)

	rec = get(e, "/api/signals?limit=3")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(rec), 3)

	assert.Equal(t, http.StatusNotFound, get(e, "/api/signals?asset=DOGE").Code)
	assert.Equal(t, http.StatusBadRequest, get(e, "/api/signals?limit=500").Code)
	assert.Equal(t, http.StatusBadRequest, get(e, "/api/signals?light=purple").Code)
}
