package diag

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	samplesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "framecast",
		Subsystem: "diag",
		Name:      "samples_total",
		Help:      "Sampled frames by the save result.",
	}, []string{"result"})

	frameMean = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "framecast",
		Subsystem: "diag",
		Name:      "frame_mean",
		Help:      "Mean channel value of the last frame.",
	})

	frameStd = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "framecast",
		Subsystem: "diag",
		Name:      "frame_std",
		Help:      "Standard deviation of the channel values of the last frame.",
	})
)
