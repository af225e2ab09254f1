package adapter

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	framesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "framecast",
		Subsystem: "adapter",
		Name:      "frames_total",
		Help:      "Acquired frames by origin and fallback reason.",
	}, []string{"origin", "reason"})

	buildSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "framecast",
		Subsystem: "adapter",
		Name:      "build_seconds",
		Help:      "Time spent in the primary figure builder.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
	})
)
