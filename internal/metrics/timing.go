// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TimingComputeSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rundownd_timing_compute_seconds",
		Help:    "Duration of one timing context recompute",
		Buckets: []float64{0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.017},
	})

	TimingTicksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rundownd_timing_ticks_total",
		Help: "Timing ticks by resolution",
	}, []string{"resolution"}) // resolution=high|low

	TimingOverrunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rundownd_timing_overruns_total",
		Help: "Ticks whose recompute took longer than the tick interval",
	})

	TimingPlaylists = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rundownd_timing_playlists",
		Help: "Playlists computed on the last tick",
	})
)

// RecordTimingCompute observes one recompute.
func RecordTimingCompute(d time.Duration) {
	TimingComputeSeconds.Observe(d.Seconds())
}

// RecordTick counts a tick; low-resolution ticks are counted under both labels.
func RecordTick(lowRes bool) {
	TimingTicksTotal.WithLabelValues("high").Inc()
	if lowRes {
		TimingTicksTotal.WithLabelValues("low").Inc()
	}
}

// RecordTickOverrun counts a tick that exceeded its budget.
func RecordTickOverrun() {
	TimingOverrunsTotal.Inc()
}

// SetTimingPlaylists records how many playlists the ticker computed.
func SetTimingPlaylists(n int) {
	TimingPlaylists.Set(float64(n))
}
