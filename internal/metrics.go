package internal

import (
	"net/http"
	"os"
	"sync/atomic"

	"github.com/shirou/gopsutil/process"
)

type Metrics struct {
	framesReceived atomic.Uint64
	filesReceived  atomic.Uint64
	filesDeleted   atomic.Uint64
	droppedEvents  atomic.Uint64
	activeConns    atomic.Int64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) IncFrame() {
	m.framesReceived.Add(1)
}

func (m *Metrics) IncFileReceived() {
	m.filesReceived.Add(1)
}

func (m *Metrics) IncFileDeleted() {
	m.filesDeleted.Add(1)
}

func (m *Metrics) IncDropped() {
	m.droppedEvents.Add(1)
}

func (m *Metrics) IncConn() {
	m.activeConns.Add(1)
}

func (m *Metrics) DecConn() {
	m.activeConns.Add(-1)
}

// Snapshot returns the counters keyed by their exported names.
func (m *Metrics) Snapshot() map[string]any {
	return map[string]any{
		"frames_received_total": m.framesReceived.Load(),
		"files_received_total":  m.filesReceived.Load(),
		"files_deleted_total":   m.filesDeleted.Load(),
		"dropped_events_total":  m.droppedEvents.Load(),
		"active_connections":    m.activeConns.Load(),
	}
}

// MetricsHandler serves the hub counters plus online users and process memory.
func (hub *Hub) MetricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		payload := hub.metrics.Snapshot()
		payload["online_users"] = hub.presence.ActiveCount()
		if rss, err := residentMemory(); err == nil {
			payload["process_rss_bytes"] = rss
		} else {
			hub.log.Debug("process memory unavailable", "error", err)
		}
		writeJSON(w, http.StatusOK, payload)
	}
}

func residentMemory() (uint64, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, err
	}
	info, err := proc.MemoryInfo()
	if err != nil {
		return 0, err
	}
	return info.RSS, nil
}
