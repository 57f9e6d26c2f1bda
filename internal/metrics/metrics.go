// Package metrics keeps lightweight per-mission execution metrics, recorded
// by the dispatcher and read by the stats surface.
package metrics

import (
	"sync"
	"time"
)

type MissionMetrics struct {
	MissionID  string    `json:"mission_id"`
	Intent     string    `json:"intent"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	DurationMs int64     `json:"duration_ms"`
	Succeeded  bool      `json:"succeeded"`
	Signals    int       `json:"signals"`
	Artifacts  int       `json:"artifacts"`
	Err        string    `json:"err,omitempty"`
}

// Finalize computes the derived duration field.
func (m *MissionMetrics) Finalize() {
	m.DurationMs = m.End.Sub(m.Start).Milliseconds()
}

// Recorder accumulates mission metrics in completion order.
type Recorder struct {
	mu      sync.Mutex
	records []MissionMetrics
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Record(m MissionMetrics) {
	m.Finalize()
	r.mu.Lock()
	r.records = append(r.records, m)
	r.mu.Unlock()
}

// All returns a copy of every recorded mission, oldest first.
func (r *Recorder) All() []MissionMetrics {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]MissionMetrics(nil), r.records...)
}

// Totals sums up executions, successes and signal/artifact volume.
func (r *Recorder) Totals() (executed, succeeded, signals, artifacts int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.records {
		executed++
		if m.Succeeded {
			succeeded++
		}
		signals += m.Signals
		artifacts += m.Artifacts
	}
	return
}
