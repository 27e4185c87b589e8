package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	APILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kangbo",
			Subsystem: "api",
			Name:      "latency_seconds",
			Help:      "Latency of dashboard read endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	APIErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kangbo",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Errors by dashboard read endpoint and kind",
		},
		[]string{"endpoint", "kind"},
	)

	StreamClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "kangbo",
			Subsystem: "api",
			Name:      "stream_clients",
			Help:      "Connected dashboard stream clients",
		},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(APILatency, APIErrors, StreamClients)
	})
}
