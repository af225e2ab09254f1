package stream

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	framesWritten = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "framecast",
		Subsystem: "stream",
		Name:      "frames_written_total",
		Help:      "The number of frames written into the encoder",
	})
	bytesWritten = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "framecast",
		Subsystem: "stream",
		Name:      "bytes_written_total",
		Help:      "The number of raw frame bytes written into the encoder",
	})
	tickSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "framecast",
		Subsystem: "stream",
		Name:      "tick_seconds",
		Help:      "Time spent on a single frame from acquire to the end of the write",
		Buckets:   []float64{.001, .005, .01, .025, .05, .066, .1, .25, .5, 1},
	})
	lateTicks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "framecast",
		Subsystem: "stream",
		Name:      "late_ticks_total",
		Help:      "The number of times the schedule was re-anchored after falling behind",
	})
	stateGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "framecast",
		Subsystem: "stream",
		Name:      "state",
		Help:      "Current loop state: 0 starting, 1 running, 2 draining, 3 stopped",
	})
)
