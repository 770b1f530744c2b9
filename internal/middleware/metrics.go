package middleware

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"
)

// Metrics stores application counters
type Metrics struct {
	RequestsTotal      uint64
	RequestsInProgress uint64
	RequestsSuccess    uint64
	RequestsFailed     uint64
	UploadsTotal       uint64
	UploadsRejected    uint64
	FindingsTotal      uint64
	ThreatsRecorded    uint64
	StartTime          time.Time
}

var globalMetrics = &Metrics{
	StartTime: time.Now(),
}

// IncrementUploads counts one checked upload
func IncrementUploads() {
	atomic.AddUint64(&globalMetrics.UploadsTotal, 1)
}

// IncrementUploadsRejected counts one denied upload
func IncrementUploadsRejected() {
	atomic.AddUint64(&globalMetrics.UploadsRejected, 1)
}

// AddFindings counts anomaly findings returned to callers
func AddFindings(n int) {
	if n > 0 {
		atomic.AddUint64(&globalMetrics.FindingsTotal, uint64(n))
	}
}

// IncrementThreatsRecorded counts one escalated threat record
func IncrementThreatsRecorded() {
	atomic.AddUint64(&globalMetrics.ThreatsRecorded, 1)
}

// GetMetrics returns current counters plus runtime stats
func GetMetrics() map[string]interface{} {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return map[string]interface{}{
		"requests_total":       atomic.LoadUint64(&globalMetrics.RequestsTotal),
		"requests_in_progress": atomic.LoadUint64(&globalMetrics.RequestsInProgress),
		"requests_success":     atomic.LoadUint64(&globalMetrics.RequestsSuccess),
		"requests_failed":      atomic.LoadUint64(&globalMetrics.RequestsFailed),
		"uploads_total":        atomic.LoadUint64(&globalMetrics.UploadsTotal),
		"uploads_rejected":     atomic.LoadUint64(&globalMetrics.UploadsRejected),
		"findings_total":       atomic.LoadUint64(&globalMetrics.FindingsTotal),
		"threats_recorded":     atomic.LoadUint64(&globalMetrics.ThreatsRecorded),
		"uptime_seconds":       time.Since(globalMetrics.StartTime).Seconds(),
		"memory": map[string]interface{}{
			"alloc_bytes":       m.Alloc,
			"total_alloc_bytes": m.TotalAlloc,
			"sys_bytes":         m.Sys,
			"num_gc":            m.NumGC,
		},
		"goroutines": runtime.NumGoroutine(),
	}
}

// MetricsMiddleware tracks request counters
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddUint64(&globalMetrics.RequestsTotal, 1)
		atomic.AddUint64(&globalMetrics.RequestsInProgress, 1)
		defer atomic.AddUint64(&globalMetrics.RequestsInProgress, ^uint64(0))

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		if wrapped.statusCode >= 200 && wrapped.statusCode < 400 {
			atomic.AddUint64(&globalMetrics.RequestsSuccess, 1)
		} else {
			atomic.AddUint64(&globalMetrics.RequestsFailed, 1)
		}
	})
}

// MetricsHandler returns metrics as JSON
func MetricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(GetMetrics())
}
