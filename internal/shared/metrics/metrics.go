package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	callsClaimedTotal   atomic.Uint64
	callsCompletedTotal atomic.Uint64
	callsFailedTotal    atomic.Uint64
	pipelineInFlight    atomic.Int64

	pipelineDuration = newHistogram([]float64{1, 5, 15, 30, 60, 120, 300, 600, 1200})
)

// IncCallsClaimed increments the claimed counter by n.
func IncCallsClaimed(n int) {
	if n > 0 {
		callsClaimedTotal.Add(uint64(n))
	}
}

// IncCallsCompleted increments the completed counter.
func IncCallsCompleted() {
	callsCompletedTotal.Add(1)
}

// IncCallsFailed increments the failed counter.
func IncCallsFailed() {
	callsFailedTotal.Add(1)
}

// IncInFlight marks a pipeline run as started.
func IncInFlight() {
	pipelineInFlight.Add(1)
}

// DecInFlight marks a pipeline run as finished.
func DecInFlight() {
	pipelineInFlight.Add(-1)
}

// InFlight returns the number of pipeline runs currently executing.
func InFlight() int64 {
	return pipelineInFlight.Load()
}

// ObservePipelineDurationSeconds records one pipeline run duration.
func ObservePipelineDurationSeconds(value float64) {
	if value < 0 {
		value = 0
	}
	pipelineDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "calls_claimed_total", "Total calls claimed for processing", callsClaimedTotal.Load())
	writeCounter(&buf, "calls_completed_total", "Total calls completed", callsCompletedTotal.Load())
	writeCounter(&buf, "calls_failed_total", "Total calls failed", callsFailedTotal.Load())
	writeGauge(&buf, "pipeline_in_flight", "Pipeline runs currently executing", pipelineInFlight.Load())
	writeHistogram(&buf, "pipeline_duration_seconds", "Pipeline run duration in seconds", pipelineDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeGauge(buf *bytes.Buffer, name, help string, value int64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s gauge\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
