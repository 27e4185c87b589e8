package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	r := NewWithRegistry(prometheus.NewRegistry())

	r.RecordProviderAttempt("yahoo", "ok", 120*time.Millisecond)
	r.RecordProviderAttempt("yahoo", "ok", 80*time.Millisecond)
	r.RecordProviderAttempt("stooq", "http_404", 10*time.Millisecond)
	r.RecordRun("ok", 3*time.Second)
	r.RecordRun("failed", time.Second)
	r.RecordLastPrice("TSLA", 181.5)
	r.RecordMacroFreshness("HY", 2)
	r.RecordRiskScore(62.4, 0.8)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.providerAttempts.WithLabelValues("yahoo", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.providerAttempts.WithLabelValues("stooq", "http_404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runsTotal.WithLabelValues("failed")))
	assert.Equal(t, 181.5, testutil.ToFloat64(r.lastPrice.WithLabelValues("TSLA")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.macroFreshness.WithLabelValues("HY")))
	assert.Equal(t, 62.4, testutil.ToFloat64(r.riskScore))
	assert.Equal(t, 0.8, testutil.ToFloat64(r.riskConfidence))
	assert.Greater(t, testutil.ToFloat64(r.lastSuccess), 0.0)
}
