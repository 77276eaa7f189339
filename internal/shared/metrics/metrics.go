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
	attemptStartedTotal          atomic.Uint64
	attemptSubmittedManualTotal  atomic.Uint64
	attemptSubmittedTimeoutTotal atomic.Uint64
	attemptEvaluatedTotal        atomic.Uint64
	evaluationFailedTotal        atomic.Uint64
	evalJobsReceivedTotal        atomic.Uint64
	evalJobsCompletedTotal       atomic.Uint64
	evalJobsFailedTotal          atomic.Uint64
	evalJobsDroppedTotal         atomic.Uint64

	evaluationDuration = newHistogram([]float64{50, 100, 250, 500, 1000, 2000, 5000, 10000, 30000})
)

// IncAttemptStarted increments the started-attempts counter.
func IncAttemptStarted() {
	attemptStartedTotal.Add(1)
}

// IncAttemptSubmittedManual increments the manually-submitted counter.
func IncAttemptSubmittedManual() {
	attemptSubmittedManualTotal.Add(1)
}

// IncAttemptSubmittedTimeout increments the timeout-submitted counter.
func IncAttemptSubmittedTimeout() {
	attemptSubmittedTimeoutTotal.Add(1)
}

// IncAttemptEvaluated increments the evaluated-attempts counter.
func IncAttemptEvaluated() {
	attemptEvaluatedTotal.Add(1)
}

// IncEvaluationFailed increments the failed-evaluations counter.
func IncEvaluationFailed() {
	evaluationFailedTotal.Add(1)
}

// IncEvalJobsReceived increments the received-evaluation-jobs counter.
func IncEvalJobsReceived() {
	evalJobsReceivedTotal.Add(1)
}

// IncEvalJobsCompleted increments the completed-evaluation-jobs counter.
func IncEvalJobsCompleted() {
	evalJobsCompletedTotal.Add(1)
}

// IncEvalJobsFailed increments the failed-evaluation-jobs counter.
func IncEvalJobsFailed() {
	evalJobsFailedTotal.Add(1)
}

// IncEvalJobsDropped counts jobs deleted without processing, such as
// undecodable payloads.
func IncEvalJobsDropped() {
	evalJobsDroppedTotal.Add(1)
}

// ObserveEvaluationDurationMs records an evaluation round-trip in milliseconds.
func ObserveEvaluationDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	evaluationDuration.Observe(value)
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
	writeCounter(&buf, "attempt_started_total", "Total test attempts started", attemptStartedTotal.Load())
	writeCounter(&buf, "attempt_submitted_manual_total", "Total attempts submitted manually", attemptSubmittedManualTotal.Load())
	writeCounter(&buf, "attempt_submitted_timeout_total", "Total attempts submitted on timeout", attemptSubmittedTimeoutTotal.Load())
	writeCounter(&buf, "attempt_evaluated_total", "Total attempts evaluated", attemptEvaluatedTotal.Load())
	writeCounter(&buf, "evaluation_failed_total", "Total failed evaluations", evaluationFailedTotal.Load())
	writeCounter(&buf, "eval_jobs_received_total", "Total evaluation jobs received", evalJobsReceivedTotal.Load())
	writeCounter(&buf, "eval_jobs_completed_total", "Total evaluation jobs completed", evalJobsCompletedTotal.Load())
	writeCounter(&buf, "eval_jobs_failed_total", "Total evaluation jobs failed", evalJobsFailedTotal.Load())
	writeCounter(&buf, "eval_jobs_dropped_total", "Total evaluation jobs dropped as unprocessable", evalJobsDroppedTotal.Load())
	writeHistogram(&buf, "evaluation_duration_ms", "Evaluation duration in milliseconds", evaluationDuration.Snapshot())
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
			break
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
