package api

import (
	"context"
	"net/http"
	"runtime"
	"sort"
	"time"
)

// componentCheckTimeout bounds each component health check made by /metrics.
const componentCheckTimeout = 2 * time.Second

// SystemMetrics represents the complete system metrics response.
type SystemMetrics struct {
	Timestamp     string            `json:"timestamp"`
	Version       string            `json:"version"`
	StationID     string            `json:"station_id"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Runtime       RuntimeMetrics    `json:"runtime"`
	Stream        StreamMetrics     `json:"stream"`
	Loop          LoopMetrics       `json:"loop"`
	Components    []ComponentHealth `json:"components"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// StreamMetrics describes the cycle stream.
type StreamMetrics struct {
	Clients int `json:"clients"`
}

// LoopMetrics summarises sync loop activity.
type LoopMetrics struct {
	Cycles          uint64 `json:"cycles"`
	LastPublished   int    `json:"last_published"`
	LastFailed      int    `json:"last_failed"`
	LastDurationMS  int64  `json:"last_duration_ms"`
	LastError       string `json:"last_error,omitempty"`
	LastCompletedAt string `json:"last_completed_at,omitempty"`
}

// ComponentHealth is the health of one connected component.
type ComponentHealth struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// handleMetrics returns runtime, loop and component metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		StationID:     s.stationID,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		Stream: StreamMetrics{
			Clients: s.hub.ClientCount(),
		},
		Loop: LoopMetrics{
			Cycles: s.board.Cycles(),
		},
		Components: s.checkComponents(r.Context()),
	}

	if last, ok := s.board.Last(); ok {
		metrics.Loop.LastPublished = last.Published
		metrics.Loop.LastFailed = last.Failed
		metrics.Loop.LastDurationMS = last.DurationMS
		metrics.Loop.LastError = last.Error
		completed := last.StartedAt.Add(time.Duration(last.DurationMS) * time.Millisecond)
		metrics.Loop.LastCompletedAt = completed.UTC().Format(time.RFC3339)
	}

	respond(w, http.StatusOK, metrics)
}

// checkComponents runs each component health check, sorted by name.
func (s *Server) checkComponents(ctx context.Context) []ComponentHealth {
	names := make([]string, 0, len(s.components))
	for name := range s.components {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]ComponentHealth, 0, len(names))
	for _, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx, componentCheckTimeout)
		err := s.components[name].HealthCheck(checkCtx)
		cancel()

		h := ComponentHealth{Name: name, Healthy: err == nil}
		if err != nil {
			h.Error = err.Error()
		}
		out = append(out, h)
	}
	return out
}
