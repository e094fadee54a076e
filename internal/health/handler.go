package health

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"lv-paperledger/internal/httputil"
)

// Pinger is the store's reachability check.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	store     Pinger
	driver    string
	startedAt time.Time
	timeout   time.Duration
	now       func() time.Time
}

func NewHandler(store Pinger, driver string, startedAt time.Time) *Handler {
	start := startedAt.UTC()
	if start.IsZero() {
		start = time.Now().UTC()
	}
	return &Handler{
		store:     store,
		driver:    driver,
		startedAt: start,
		timeout:   time.Second,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type liveResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	UptimeSec int64  `json:"uptime_sec"`
	Uptime    string `json:"uptime"`
}

type readinessResponse struct {
	Status    string    `json:"status"`
	Timestamp string    `json:"timestamp"`
	UptimeSec int64     `json:"uptime_sec"`
	Uptime    string    `json:"uptime"`
	Store     storeStat `json:"store"`
}

type storeStat struct {
	Driver    string `json:"driver"`
	Reachable bool   `json:"reachable"`
	PingMs    int64  `json:"ping_ms"`
	Error     string `json:"error,omitempty"`
	CheckedAt string `json:"checked_at"`
}

func (h *Handler) uptime(now time.Time) time.Duration {
	uptime := now.Sub(h.startedAt)
	if uptime < 0 {
		return 0
	}
	return uptime
}

func (h *Handler) checkStore(ctx context.Context) storeStat {
	stat := storeStat{Driver: h.driver}
	if h.store == nil {
		stat.Error = "store is not configured"
		stat.CheckedAt = h.now().Format(time.RFC3339)
		return stat
	}
	start := time.Now()
	pingCtx, cancel := context.WithTimeout(ctx, h.timeout)
	err := h.store.Ping(pingCtx)
	cancel()
	stat.PingMs = time.Since(start).Milliseconds()
	stat.CheckedAt = h.now().Format(time.RFC3339)
	if err != nil {
		stat.Error = err.Error()
	} else {
		stat.Reachable = true
	}
	return stat
}

// Get is the readiness summary served at /health.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	h.Ready(w, r)
}

// Live does not touch the store.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	uptime := h.uptime(now)
	httputil.WriteJSON(w, http.StatusOK, liveResponse{
		Status:    "ok",
		Timestamp: now.Format(time.RFC3339),
		UptimeSec: int64(uptime.Seconds()),
		Uptime:    uptime.String(),
	})
}

// Ready returns 503 when the store does not answer a ping.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	uptime := h.uptime(now)
	stat := h.checkStore(r.Context())
	status, code := "ok", http.StatusOK
	if !stat.Reachable {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, code, readinessResponse{
		Status:    status,
		Timestamp: now.Format(time.RFC3339),
		UptimeSec: int64(uptime.Seconds()),
		Uptime:    uptime.String(),
		Store:     stat,
	})
}

// Metrics writes Prometheus text exposition.
func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	uptime := h.uptime(h.now())
	stat := h.checkStore(r.Context())
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	up := 0
	if stat.Reachable {
		up = 1
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "# HELP paperledger_uptime_seconds Service uptime in seconds.\n")
	_, _ = fmt.Fprintf(w, "# TYPE paperledger_uptime_seconds gauge\n")
	_, _ = fmt.Fprintf(w, "paperledger_uptime_seconds %d\n", int64(uptime.Seconds()))

	_, _ = fmt.Fprintf(w, "# HELP paperledger_store_up Store ping status (1=ok,0=down).\n")
	_, _ = fmt.Fprintf(w, "# TYPE paperledger_store_up gauge\n")
	_, _ = fmt.Fprintf(w, "paperledger_store_up{driver=%q} %d\n", h.driver, up)
	_, _ = fmt.Fprintf(w, "paperledger_store_ping_milliseconds %d\n", stat.PingMs)

	_, _ = fmt.Fprintf(w, "# HELP paperledger_go_goroutines Number of goroutines.\n")
	_, _ = fmt.Fprintf(w, "# TYPE paperledger_go_goroutines gauge\n")
	_, _ = fmt.Fprintf(w, "paperledger_go_goroutines %d\n", runtime.NumGoroutine())
	_, _ = fmt.Fprintf(w, "paperledger_go_mem_heap_alloc_bytes %d\n", mem.HeapAlloc)
	_, _ = fmt.Fprintf(w, "paperledger_go_gc_count %d\n", mem.NumGC)
}
