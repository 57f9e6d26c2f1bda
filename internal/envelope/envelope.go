// Package envelope assembles the typed, reference-only turn output. An
// envelope carries ids, statuses and short summaries, never artifact
// payloads.
package envelope

import (
	"time"

	"aide/internal/mission"
)

type MissionRef struct {
	ID      string `json:"mission_id"`
	Status  string `json:"status"`
	Summary string `json:"summary,omitempty"`
}

type ArtifactRef struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Summary string `json:"summary,omitempty"`
}

type SignalRef struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Summary string `json:"summary,omitempty"`
}

// Metadata carries machine-readable turn context next to the summary text.
type Metadata struct {
	Intent     string   `json:"intent,omitempty"`
	Confidence float64  `json:"confidence,omitempty"`
	Decision   string   `json:"decision,omitempty"`
	Status     string   `json:"status,omitempty"`
	Missing    []string `json:"missing_fields,omitempty"`
	// Outcome tags the error-taxonomy category of the turn, e.g.
	// "validation_incomplete" or "approval_mismatch". Empty means a clean turn.
	Outcome string `json:"outcome,omitempty"`
}

type Envelope struct {
	Summary   string        `json:"summary"`
	Missions  []MissionRef  `json:"missions,omitempty"`
	Artifacts []ArtifactRef `json:"artifacts,omitempty"`
	Signals   []SignalRef   `json:"signals,omitempty"`
	Meta      Metadata      `json:"metadata"`
	CreatedAt time.Time     `json:"created_at"`
}

func New(summary string, meta Metadata) *Envelope {
	return &Envelope{
		Summary:   summary,
		Meta:      meta,
		CreatedAt: time.Now(),
	}
}

func (e *Envelope) AddMission(p mission.Proposal, status string) *Envelope {
	e.Missions = append(e.Missions, MissionRef{
		ID:      p.ID,
		Status:  status,
		Summary: p.Fields.Intent,
	})
	return e
}

func (e *Envelope) AddArtifact(a mission.Artifact) *Envelope {
	e.Artifacts = append(e.Artifacts, ArtifactRef{ID: a.ID, Type: a.Type, Summary: a.PayloadRef})
	return e
}

func (e *Envelope) AddSignal(s mission.Signal) *Envelope {
	e.Signals = append(e.Signals, SignalRef{ID: s.ID, Type: s.Type, Summary: s.Summary})
	return e
}
