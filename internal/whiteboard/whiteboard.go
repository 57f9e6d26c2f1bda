// Package whiteboard reconstructs a mission's full state from the append-only
// logs, keyed solely by mission_id. Reconstruction is a read: it folds and
// sorts what execution already wrote, and never recomputes or re-executes.
package whiteboard

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"aide/internal/mission"
	"aide/internal/store"
)

// View is the derived whiteboard for one mission.
type View struct {
	MissionID string
	Proposal  mission.Proposal
	Status    string
	Events    []mission.Event
	// Timeline holds the mission's signals ordered by timestamp.
	Timeline  []mission.Signal
	Artifacts []mission.Artifact

	SignalCount   int
	ArtifactCount int
	// Duration spans first to last event; zero until two events exist.
	Duration time.Duration
}

type Engine struct {
	log *store.Log
}

func NewEngine(log *store.Log) *Engine {
	return &Engine{log: log}
}

// Reconstruct reads mission metadata, events, signals and artifacts for one
// mission_id. The three logs are read concurrently; each read takes an
// immutable snapshot, so no write coordination is needed and calling twice
// with no intervening writes yields identical views.
func (e *Engine) Reconstruct(ctx context.Context, missionID string) (View, error) {
	p, ok := e.log.Proposal(missionID)
	if !ok {
		return View{}, fmt.Errorf("unknown mission: %s", missionID)
	}

	v := View{MissionID: missionID, Proposal: p}

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		v.Events = e.log.Events(missionID)
		return nil
	})
	g.Go(func() error {
		v.Timeline = e.log.Signals(missionID)
		return nil
	})
	g.Go(func() error {
		v.Artifacts = e.log.Artifacts(missionID)
		return nil
	})
	if err := g.Wait(); err != nil {
		return View{}, err
	}

	sort.SliceStable(v.Timeline, func(i, j int) bool {
		return v.Timeline[i].At.Before(v.Timeline[j].At)
	})

	v.Status = mission.ReduceStatus(v.Events)
	v.SignalCount = len(v.Timeline)
	v.ArtifactCount = len(v.Artifacts)
	if n := len(v.Events); n >= 2 {
		v.Duration = v.Events[n-1].At.Sub(v.Events[0].At)
	}
	return v, nil
}
