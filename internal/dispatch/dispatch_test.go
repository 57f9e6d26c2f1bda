package dispatch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"aide/internal/mission"
	"aide/internal/store"
)

type fakeExecutor struct {
	outcome Outcome
	err     error
	block   chan struct{} // when set, Execute waits for ctx or close
	calls   atomic.Int32
}

func (f *fakeExecutor) Execute(ctx context.Context, p mission.Proposal) (Outcome, error) {
	f.calls.Add(1)
	if f.block != nil {
		select {
		case <-ctx.Done():
			return Outcome{}, ctx.Err()
		case <-f.block:
		}
	}
	return f.outcome, f.err
}

func waitForStatus(t *testing.T, log *store.Log, missionID, want string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if log.Status(missionID) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Status(%s) = %s, want %s", missionID, log.Status(missionID), want)
}

func proposed(log *store.Log, sessionID string) mission.Proposal {
	p := mission.Proposal{ID: mission.NewID(), SessionID: sessionID, Fields: mission.Fields{Intent: "extract"}, CreatedAt: time.Now()}
	log.PutProposal(p)
	log.AppendEvent(mission.Event{MissionID: p.ID, Status: mission.StatusProposed, At: p.CreatedAt})
	log.AppendEvent(mission.Event{MissionID: p.ID, Status: mission.StatusApproved, At: p.CreatedAt})
	log.AppendEvent(mission.Event{MissionID: p.ID, Status: mission.StatusExecuting, At: p.CreatedAt})
	return p
}

func TestSuccessfulExecution(t *testing.T) {
	log := store.NewLog()
	exec := &fakeExecutor{outcome: Outcome{
		Signals:   []mission.Signal{{Type: "navigation", Source: "browser", Summary: "opened linkedin.com"}},
		Artifacts: []mission.Artifact{{Type: "html", PayloadRef: "pages/1.html"}},
	}}
	d := New(log, exec, nil)
	d.Start()
	defer d.Close()

	p := proposed(log, "s1")
	d.Enqueue(p)
	waitForStatus(t, log, p.ID, mission.StatusCompleted)

	signals := log.Signals(p.ID)
	if len(signals) != 1 {
		t.Fatalf("Signals = %d, want 1", len(signals))
	}
	if signals[0].MissionID != p.ID || signals[0].ID == "" || signals[0].At.IsZero() {
		t.Errorf("Signal must be stamped with mission, ID and time: %+v", signals[0])
	}
	artifacts := log.Artifacts(p.ID)
	if len(artifacts) != 1 {
		t.Fatalf("Artifacts = %d, want 1", len(artifacts))
	}
	if artifacts[0].MissionID != p.ID || artifacts[0].ID == "" {
		t.Errorf("Artifact must be stamped with mission and ID: %+v", artifacts[0])
	}

	executed, succeeded, sigs, arts := d.Metrics().Totals()
	if executed != 1 || succeeded != 1 || sigs != 1 || arts != 1 {
		t.Errorf("Metrics totals = %d/%d/%d/%d, want 1/1/1/1", executed, succeeded, sigs, arts)
	}
}

func TestFailedExecution(t *testing.T) {
	log := store.NewLog()
	exec := &fakeExecutor{
		outcome: Outcome{Signals: []mission.Signal{{Type: "error", Source: "browser", Summary: "page not reachable"}}},
		err:     errors.New("page not reachable"),
	}
	d := New(log, exec, nil)
	d.Start()
	defer d.Close()

	p := proposed(log, "s1")
	d.Enqueue(p)
	waitForStatus(t, log, p.ID, mission.StatusFailed)

	// partial results survive a failure
	if len(log.Signals(p.ID)) != 1 {
		t.Error("Signals emitted before the failure must be kept")
	}
	events := log.Events(p.ID)
	last := events[len(events)-1]
	if last.Note != "page not reachable" {
		t.Errorf("Failure note = %q", last.Note)
	}
}

func TestCancelRunningMission(t *testing.T) {
	log := store.NewLog()
	exec := &fakeExecutor{block: make(chan struct{})}
	d := New(log, exec, nil)
	d.Start()
	defer d.Close()

	p := proposed(log, "s1")
	d.Enqueue(p)

	// wait for the worker to pick it up
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := d.Cancel(p.ID); err == nil {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	waitForStatus(t, log, p.ID, mission.StatusFailed)

	events := log.Events(p.ID)
	last := events[len(events)-1]
	if last.Note != "cancelled" {
		t.Errorf("Cancellation note = %q, want cancelled", last.Note)
	}
}

func TestCancelWithNothingRunning(t *testing.T) {
	d := New(store.NewLog(), &fakeExecutor{}, nil)
	d.Start()
	defer d.Close()
	if _, err := d.Cancel(""); err == nil {
		t.Error("Cancel with nothing executing must fail")
	}
}

func TestMissionsRunInOrder(t *testing.T) {
	log := store.NewLog()
	exec := &fakeExecutor{}
	d := New(log, exec, nil)
	d.Start()

	p1 := proposed(log, "s1")
	p2 := proposed(log, "s1")
	d.Enqueue(p1)
	d.Enqueue(p2)
	d.Close() // drains the queue

	if got := exec.calls.Load(); got != 2 {
		t.Fatalf("Execute calls = %d, want 2", got)
	}
	waitForStatus(t, log, p1.ID, mission.StatusCompleted)
	waitForStatus(t, log, p2.ID, mission.StatusCompleted)
}
