package loader

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "domforge_fetch_total",
		Help: "Outbound fetches by outcome.",
	}, []string{"outcome"})

	fetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "domforge_fetch_duration_seconds",
		Help:    "Outbound fetch latency including redirects and retries.",
		Buckets: prometheus.DefBuckets,
	})
)

func observeFetch(ok bool, d time.Duration) {
	outcome := "success"
	if !ok {
		outcome = "error"
	}
	fetchTotal.WithLabelValues(outcome).Inc()
	fetchDuration.Observe(d.Seconds())
}
