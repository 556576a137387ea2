package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	APILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "coinscout",
			Subsystem: "api",
			Name:      "latency_seconds",
			Help:      "Latency of portfolio endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	APIErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coinscout",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Errors by portfolio endpoint",
		},
		[]string{"endpoint"},
	)

	WSClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "coinscout",
			Subsystem: "ws",
			Name:      "clients",
			Help:      "Connected WebSocket clients",
		},
	)

	WSBroadcasts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coinscout",
			Subsystem: "ws",
			Name:      "broadcasts_total",
			Help:      "Portfolio pushes by outcome",
		},
		[]string{"result"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(APILatency, APIErrors, WSClients, WSBroadcasts)
	})
}
