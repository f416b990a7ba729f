package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordRoute(t *testing.T) {
	before := testutil.ToFloat64(routeCounter.WithLabelValues("zones", "hybrid"))
	RecordRoute("zones", "hybrid")
	RecordRoute("zones", "hybrid")
	assert.Equal(t, before+2, testutil.ToFloat64(routeCounter.WithLabelValues("zones", "hybrid")))
}

func TestRecordFallback(t *testing.T) {
	before := testutil.ToFloat64(fallbackCounter.WithLabelValues("trend", "empty"))
	RecordFallback("trend", "empty")
	assert.Equal(t, before+1, testutil.ToFloat64(fallbackCounter.WithLabelValues("trend", "empty")))
}

func TestRecordIngestWatermark(t *testing.T) {
	start := time.Date(2026, 2, 13, 6, 30, 0, 0, time.UTC)
	RecordIngest("fit", "ok", start)
	assert.Equal(t, float64(start.Unix()), testutil.ToFloat64(lastIngestGauge))

	// Failures leave the watermark alone.
	RecordIngest("fit", "error", start.Add(time.Hour))
	assert.Equal(t, float64(start.Unix()), testutil.ToFloat64(lastIngestGauge))
}

func TestRecordRebuild(t *testing.T) {
	okBefore := testutil.ToFloat64(rebuildCounter.WithLabelValues("manual", "ok"))
	errBefore := testutil.ToFloat64(rebuildCounter.WithLabelValues("manual", "error"))

	RecordRebuild("manual", 150*time.Millisecond, nil)
	RecordRebuild("manual", 0, errors.New("boom"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(rebuildCounter.WithLabelValues("manual", "ok")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(rebuildCounter.WithLabelValues("manual", "error")))
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "2xx", statusLabel(200))
	assert.Equal(t, "3xx", statusLabel(304))
	assert.Equal(t, "4xx", statusLabel(404))
	assert.Equal(t, "5xx", statusLabel(503))
}
