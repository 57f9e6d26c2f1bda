// Package dispatch hands approved missions to the execution collaborator on
// a background worker. The core never blocks on execution: outcomes come
// back as appended signals, artifacts and one terminal status event.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"aide/internal/logger"
	"aide/internal/metrics"
	"aide/internal/mission"
	"aide/internal/store"
)

// Outcome is what one execution produced. IDs and mission linkage are
// stamped by the dispatcher, so executors only fill in content.
type Outcome struct {
	Signals   []mission.Signal
	Artifacts []mission.Artifact
}

// Executor is the external execution collaborator. Implementations do the
// actual navigation/extraction; this core only consumes their records.
type Executor interface {
	Execute(ctx context.Context, p mission.Proposal) (Outcome, error)
}

type Dispatcher struct {
	queue chan mission.Proposal
	log   *store.Log
	exec  Executor
	rec   *metrics.Recorder

	mu        sync.Mutex
	curID     string
	curCancel context.CancelFunc

	done chan struct{}
}

func New(log *store.Log, exec Executor, rec *metrics.Recorder) *Dispatcher {
	if rec == nil {
		rec = metrics.NewRecorder()
	}
	return &Dispatcher{
		queue: make(chan mission.Proposal, 100),
		log:   log,
		exec:  exec,
		rec:   rec,
		done:  make(chan struct{}),
	}
}

// Metrics exposes the per-mission execution records.
func (d *Dispatcher) Metrics() *metrics.Recorder {
	return d.rec
}

// Start launches the worker goroutine draining the mission queue.
func (d *Dispatcher) Start() {
	go func() {
		defer close(d.done)
		for p := range d.queue {
			logger.Log.Infof("[Dispatch] Starting mission %s (%s)", p.ID, p.Fields.Intent)
			d.run(p)
		}
	}()
}

// Enqueue submits an approved proposal for asynchronous execution.
func (d *Dispatcher) Enqueue(p mission.Proposal) {
	d.queue <- p
}

// Cancel aborts the currently executing mission. With an empty id any
// running mission is cancelled.
func (d *Dispatcher) Cancel(missionID string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.curID == "" {
		return "", fmt.Errorf("no mission is currently executing")
	}
	if missionID != "" && !strings.EqualFold(d.curID, missionID) {
		return "", fmt.Errorf("mission %s is not executing (current: %s)", missionID, d.curID)
	}
	id := d.curID
	d.curCancel()
	return id, nil
}

// Close stops accepting missions and waits for the worker to drain.
func (d *Dispatcher) Close() {
	close(d.queue)
	<-d.done
}

func (d *Dispatcher) run(p mission.Proposal) {
	started := time.Now()
	ctx, cancel := context.WithCancel(context.Background())
	d.mu.Lock()
	d.curID = p.ID
	d.curCancel = cancel
	d.mu.Unlock()
	defer func() {
		cancel()
		d.mu.Lock()
		if d.curID == p.ID {
			d.curID = ""
			d.curCancel = nil
		}
		d.mu.Unlock()
	}()

	outcome, err := d.exec.Execute(ctx, p)
	now := time.Now()

	for _, s := range outcome.Signals {
		s.MissionID = p.ID
		if s.ID == "" {
			s.ID = mission.NewID()
		}
		if s.At.IsZero() {
			s.At = now
		}
		d.log.AppendSignal(s)
	}
	for _, a := range outcome.Artifacts {
		a.MissionID = p.ID
		if a.ID == "" {
			a.ID = mission.NewID()
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		d.log.AppendArtifact(a)
	}

	m := metrics.MissionMetrics{
		MissionID: p.ID,
		Intent:    p.Fields.Intent,
		Start:     started,
		End:       now,
		Succeeded: err == nil,
		Signals:   len(outcome.Signals),
		Artifacts: len(outcome.Artifacts),
	}

	if err != nil {
		status := mission.StatusFailed
		note := err.Error()
		if errors.Is(err, context.Canceled) {
			note = "cancelled"
		}
		m.Err = note
		d.rec.Record(m)
		d.log.AppendEvent(mission.Event{MissionID: p.ID, Status: status, Note: note, At: now})
		logger.Log.Infof("[Dispatch] Mission %s FAILED: %v", p.ID, err)
		return
	}

	d.rec.Record(m)
	d.log.AppendEvent(mission.Event{MissionID: p.ID, Status: mission.StatusCompleted, At: now})
	logger.Log.Infof("[Dispatch] Mission %s COMPLETED (%d signals, %d artifacts)",
		p.ID, len(outcome.Signals), len(outcome.Artifacts))
}
