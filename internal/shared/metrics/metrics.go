package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	resumeCreatedTotal        atomic.Uint64
	resumeUpdatedTotal        atomic.Uint64
	resumeDeletedTotal        atomic.Uint64
	imageTransformTotal       atomic.Uint64
	imageTransformFailedTotal atomic.Uint64
	publicCacheHitsTotal      atomic.Uint64
	publicCacheMissesTotal    atomic.Uint64

	imageTransformDuration = newHistogram([]float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000})
)

// IncResumeCreated increments the created counter.
func IncResumeCreated() {
	resumeCreatedTotal.Add(1)
}

// IncResumeUpdated increments the updated counter.
func IncResumeUpdated() {
	resumeUpdatedTotal.Add(1)
}

// IncResumeDeleted increments the deleted counter.
func IncResumeDeleted() {
	resumeDeletedTotal.Add(1)
}

// IncImageTransform increments the transformation attempt counter.
func IncImageTransform() {
	imageTransformTotal.Add(1)
}

// IncImageTransformFailed increments the failed transformation counter.
func IncImageTransformFailed() {
	imageTransformFailedTotal.Add(1)
}

// IncPublicCacheHit records a public read served from cache.
func IncPublicCacheHit() {
	publicCacheHitsTotal.Add(1)
}

// IncPublicCacheMiss records a public read that went to the store.
func IncPublicCacheMiss() {
	publicCacheMissesTotal.Add(1)
}

// ObserveImageTransformDuration records a transformation duration.
func ObserveImageTransformDuration(d time.Duration) {
	value := float64(d.Microseconds()) / 1000.0
	if value < 0 {
		value = 0
	}
	imageTransformDuration.Observe(value)
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
	writeCounter(&buf, "resume_created_total", "Total resumes created", resumeCreatedTotal.Load())
	writeCounter(&buf, "resume_updated_total", "Total resume updates applied", resumeUpdatedTotal.Load())
	writeCounter(&buf, "resume_deleted_total", "Total resumes deleted", resumeDeletedTotal.Load())
	writeCounter(&buf, "image_transform_total", "Total image transformations attempted", imageTransformTotal.Load())
	writeCounter(&buf, "image_transform_failed_total", "Total image transformations failed", imageTransformFailedTotal.Load())
	writeCounter(&buf, "public_resume_cache_hits_total", "Public resume reads served from cache", publicCacheHitsTotal.Load())
	writeCounter(&buf, "public_resume_cache_misses_total", "Public resume reads served from the store", publicCacheMissesTotal.Load())
	writeHistogram(&buf, "image_transform_duration_ms", "Image transformation duration in milliseconds", imageTransformDuration.Snapshot())
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
	out := histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
	return out
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
