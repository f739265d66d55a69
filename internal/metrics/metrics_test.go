// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordTickCountsLowResolutionUnderBothLabels(t *testing.T) {
	high := testutil.ToFloat64(TimingTicksTotal.WithLabelValues("high"))
	low := testutil.ToFloat64(TimingTicksTotal.WithLabelValues("low"))

	RecordTick(true)
	RecordTick(false)

	assert.Equal(t, high+2, testutil.ToFloat64(TimingTicksTotal.WithLabelValues("high")))
	assert.Equal(t, low+1, testutil.ToFloat64(TimingTicksTotal.WithLabelValues("low")))
}

func TestRecordIngestOperationDefaultsOperation(t *testing.T) {
	before := testutil.ToFloat64(IngestOperationsTotal.WithLabelValues("unknown", "error"))
	RecordIngestOperation("", "error", time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(IngestOperationsTotal.WithLabelValues("unknown", "error")))
}

func TestRecordSnapshotOpOutcome(t *testing.T) {
	ok := testutil.ToFloat64(SnapshotStoreOpsTotal.WithLabelValues("memory", "save", "success"))
	bad := testutil.ToFloat64(SnapshotStoreOpsTotal.WithLabelValues("memory", "save", "error"))

	RecordSnapshotOp("memory", "save", nil)
	RecordSnapshotOp("memory", "save", errors.New("boom"))

	assert.Equal(t, ok+1, testutil.ToFloat64(SnapshotStoreOpsTotal.WithLabelValues("memory", "save", "success")))
	assert.Equal(t, bad+1, testutil.ToFloat64(SnapshotStoreOpsTotal.WithLabelValues("memory", "save", "error")))
}

func TestIncBusDropReasonNormalisesEmptyLabels(t *testing.T) {
	before := testutil.ToFloat64(BusDroppedTotal.WithLabelValues("unknown", "unknown"))
	IncBusDropReason("", "")
	assert.Equal(t, before+1, testutil.ToFloat64(BusDroppedTotal.WithLabelValues("unknown", "unknown")))
}
