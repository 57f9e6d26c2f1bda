package whiteboard

import (
	"context"
	"reflect"
	"testing"
	"time"

	"aide/internal/mission"
	"aide/internal/store"
)

func seedMission(log *store.Log) mission.Proposal {
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	p := mission.Proposal{
		ID:        mission.NewID(),
		SessionID: "s1",
		Fields:    mission.Fields{Intent: "extract", ActionObject: "emails", SourceURL: "linkedin.com"},
		CreatedAt: base,
	}
	log.PutProposal(p)
	log.AppendEvent(mission.Event{MissionID: p.ID, Status: mission.StatusProposed, At: base})
	log.AppendEvent(mission.Event{MissionID: p.ID, Status: mission.StatusApproved, At: base.Add(10 * time.Second)})
	log.AppendEvent(mission.Event{MissionID: p.ID, Status: mission.StatusExecuting, At: base.Add(10 * time.Second)})
	log.AppendEvent(mission.Event{MissionID: p.ID, Status: mission.StatusCompleted, At: base.Add(40 * time.Second)})

	// signals appended out of timestamp order
	log.AppendSignal(mission.Signal{ID: "sig-c", MissionID: p.ID, Type: "extraction", Source: "browser", Summary: "collected 12 emails", At: base.Add(30 * time.Second)})
	log.AppendSignal(mission.Signal{ID: "sig-a", MissionID: p.ID, Type: "navigation", Source: "browser", Summary: "opened linkedin.com", At: base.Add(12 * time.Second)})
	log.AppendSignal(mission.Signal{ID: "sig-b", MissionID: p.ID, Type: "navigation", Source: "browser", Summary: "scrolled results", At: base.Add(20 * time.Second)})

	log.AppendArtifact(mission.Artifact{ID: "art-1", MissionID: p.ID, Type: "json", PayloadRef: "emails/1.json", CreatedAt: base.Add(35 * time.Second)})
	return p
}

func TestReconstruct(t *testing.T) {
	log := store.NewLog()
	p := seedMission(log)
	e := NewEngine(log)

	v, err := e.Reconstruct(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	if v.Status != mission.StatusCompleted {
		t.Errorf("Status = %s, want %s", v.Status, mission.StatusCompleted)
	}
	if v.Proposal.Fields.SourceURL != "linkedin.com" {
		t.Errorf("Proposal fields lost: %+v", v.Proposal.Fields)
	}
	if v.SignalCount != 3 || v.ArtifactCount != 1 {
		t.Errorf("Counts = %d signals, %d artifacts", v.SignalCount, v.ArtifactCount)
	}
	if v.Duration != 40*time.Second {
		t.Errorf("Duration = %s, want 40s", v.Duration)
	}

	var order []string
	for _, s := range v.Timeline {
		order = append(order, s.ID)
	}
	want := []string{"sig-a", "sig-b", "sig-c"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("Timeline order = %v, want %v", order, want)
	}
}

func TestReconstructUnknownMission(t *testing.T) {
	e := NewEngine(store.NewLog())
	if _, err := e.Reconstruct(context.Background(), "nope"); err == nil {
		t.Error("Unknown mission must return an error")
	}
}

func TestReconstructIsRepeatable(t *testing.T) {
	log := store.NewLog()
	p := seedMission(log)
	e := NewEngine(log)

	first, err := e.Reconstruct(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	second, err := e.Reconstruct(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("Reconstruction with no intervening writes must be identical")
	}
}

func TestReconstructMidExecution(t *testing.T) {
	log := store.NewLog()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	p := mission.Proposal{ID: mission.NewID(), SessionID: "s1", Fields: mission.Fields{Intent: "monitor", SourceURL: "github.com"}, CreatedAt: base}
	log.PutProposal(p)
	log.AppendEvent(mission.Event{MissionID: p.ID, Status: mission.StatusProposed, At: base})

	e := NewEngine(log)
	v, err := e.Reconstruct(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	if v.Status != mission.StatusProposed {
		t.Errorf("Status = %s, want %s", v.Status, mission.StatusProposed)
	}
	if v.Duration != 0 {
		t.Errorf("Duration with one event = %s, want 0", v.Duration)
	}
	if v.SignalCount != 0 || v.ArtifactCount != 0 {
		t.Errorf("Counts = %d, %d; want zero", v.SignalCount, v.ArtifactCount)
	}
}
