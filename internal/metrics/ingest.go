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
	IngestOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rundownd_ingest_operations_total",
		Help: "Ingest operations by operation and outcome",
	}, []string{"operation", "outcome"}) // outcome=committed|unchanged|rejected|deleted|error

	IngestOperationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rundownd_ingest_operation_seconds",
		Help:    "Wall time of ingest operations including lock waits",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	DiffSegmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rundownd_diff_segments_total",
		Help: "Segments classified by the ingest diff",
	}, []string{"class"}) // class=added|changed|removed|unchanged|rank_only|renamed

	LockWaitSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rundownd_lock_wait_seconds",
		Help:    "Time spent waiting for a serialization lock",
		Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
	}, []string{"kind"}) // kind=rundown|playlist

	SnapshotStoreOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rundownd_snapshot_store_ops_total",
		Help: "Snapshot store operations by backend, op and outcome",
	}, []string{"backend", "op", "outcome"})

	PlayoutOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rundownd_playout_operations_total",
		Help: "Playout operations by operation and outcome",
	}, []string{"operation", "outcome"})

	ConfigReloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rundownd_config_reloads_total",
		Help: "Configuration reloads by outcome",
	}, []string{"outcome"})
)

// RecordIngestOperation records the outcome and duration of one ingest operation.
func RecordIngestOperation(operation, outcome string, d time.Duration) {
	if operation == "" {
		operation = "unknown"
	}
	IngestOperationsTotal.WithLabelValues(operation, outcome).Inc()
	IngestOperationSeconds.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordDiff adds the classification counts of one diff.
func RecordDiff(added, changed, removed, unchanged, rankOnly, renamed int) {
	DiffSegmentsTotal.WithLabelValues("added").Add(float64(added))
	DiffSegmentsTotal.WithLabelValues("changed").Add(float64(changed))
	DiffSegmentsTotal.WithLabelValues("removed").Add(float64(removed))
	DiffSegmentsTotal.WithLabelValues("unchanged").Add(float64(unchanged))
	DiffSegmentsTotal.WithLabelValues("rank_only").Add(float64(rankOnly))
	DiffSegmentsTotal.WithLabelValues("renamed").Add(float64(renamed))
}

// ObserveLockWait records how long a caller queued for a lock.
func ObserveLockWait(kind string, d time.Duration) {
	LockWaitSeconds.WithLabelValues(kind).Observe(d.Seconds())
}

// RecordSnapshotOp records one snapshot store call.
func RecordSnapshotOp(backend, op string, err error) {
	SnapshotStoreOpsTotal.WithLabelValues(backend, op, outcomeOf(err)).Inc()
}

// RecordPlayoutOperation records one playout operation.
func RecordPlayoutOperation(operation string, err error) {
	PlayoutOperationsTotal.WithLabelValues(operation, outcomeOf(err)).Inc()
}

// RecordConfigReload records a configuration reload attempt.
func RecordConfigReload(err error) {
	ConfigReloadsTotal.WithLabelValues(outcomeOf(err)).Inc()
}

func outcomeOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
