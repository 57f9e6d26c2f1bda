// Package mission holds the shared data model: objective fields, proposals,
// the status event log and the immutable signal/artifact records produced by
// execution. Everything is joined by MissionID.
package mission

import (
	"time"

	"github.com/google/uuid"
)

// Field names used across readiness, clarification and session resolution.
const (
	FieldIntent       = "intent"
	FieldActionObject = "action_object"
	FieldActionTarget = "action_target"
	FieldSourceURL    = "source_url"
	FieldPriorMission = "prior_mission"
)

// Mission statuses. Current status is always derived by folding the event
// log, never stored as a mutable column.
const (
	StatusProposed  = "proposed"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusTimedOut  = "timed_out"
	StatusExecuting = "executing"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Fields is the objective of one mission.
type Fields struct {
	Intent       string   `json:"intent"`
	ActionObject string   `json:"action_object,omitempty"`
	ActionTarget string   `json:"action_target,omitempty"`
	SourceURL    string   `json:"source_url,omitempty"`
	Constraints  []string `json:"constraints,omitempty"`
}

// Get returns the value of a named field ("" for constraints and unknown names).
func (f Fields) Get(name string) string {
	switch name {
	case FieldIntent:
		return f.Intent
	case FieldActionObject:
		return f.ActionObject
	case FieldActionTarget:
		return f.ActionTarget
	case FieldSourceURL:
		return f.SourceURL
	}
	return ""
}

// Set assigns a named field; unknown names are ignored.
func (f *Fields) Set(name, value string) {
	switch name {
	case FieldIntent:
		f.Intent = value
	case FieldActionObject:
		f.ActionObject = value
	case FieldActionTarget:
		f.ActionTarget = value
	case FieldSourceURL:
		f.SourceURL = value
	}
}

// Proposal identifies one unit of work awaiting (or past) approval.
// Its status lives in the event log, not here.
type Proposal struct {
	ID        string    `json:"mission_id"`
	SessionID string    `json:"session_id"`
	Fields    Fields    `json:"fields"`
	CreatedAt time.Time `json:"created_at"`
}

// Event is one append-only status change for a mission.
type Event struct {
	MissionID string    `json:"mission_id"`
	Status    string    `json:"status"`
	Note      string    `json:"note,omitempty"`
	At        time.Time `json:"at"`
}

// Signal is an immutable execution event observed for a mission.
type Signal struct {
	ID        string    `json:"id"`
	MissionID string    `json:"mission_id"`
	Type      string    `json:"type"`
	Source    string    `json:"source"`
	Summary   string    `json:"summary"`
	At        time.Time `json:"at"`
}

// Artifact is an immutable output record produced by mission execution.
// Payload is stored for interpretation but never embedded in envelopes.
type Artifact struct {
	ID         string    `json:"id"`
	MissionID  string    `json:"mission_id"`
	Type       string    `json:"type"`
	PayloadRef string    `json:"payload_ref"`
	Payload    string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

func NewID() string {
	return uuid.New().String()[:8]
}

// legal status transitions for the fold
var transitions = map[string][]string{
	"":              {StatusProposed},
	StatusProposed:  {StatusApproved, StatusRejected, StatusTimedOut},
	StatusApproved:  {StatusExecuting},
	StatusExecuting: {StatusCompleted, StatusFailed},
}

func canTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ReduceStatus folds an event log into the current status. Events that would
// make an illegal transition (stray approvals, doubled terminals) are ignored,
// which keeps the fold idempotent over replays.
func ReduceStatus(events []Event) string {
	status := ""
	for _, ev := range events {
		if canTransition(status, ev.Status) {
			status = ev.Status
		}
	}
	return status
}

// Terminal reports whether a status admits no further transitions.
func Terminal(status string) bool {
	switch status {
	case StatusRejected, StatusTimedOut, StatusCompleted, StatusFailed:
		return true
	}
	return false
}
