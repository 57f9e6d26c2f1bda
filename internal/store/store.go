// Package store keeps the three append-only, mission_id-keyed logs (status
// events, signals, artifacts) plus proposal metadata. Records are copied on
// the way in and on the way out, so appended history is immutable to callers
// and reads never need coordination beyond the snapshot copy.
package store

import (
	"sync"

	"aide/internal/mission"
)

type Log struct {
	mu        sync.RWMutex
	proposals map[string]mission.Proposal
	bySession map[string][]string // sessionID -> missionIDs in creation order
	events    map[string][]mission.Event
	signals   map[string][]mission.Signal
	artifacts map[string][]mission.Artifact
}

func NewLog() *Log {
	return &Log{
		proposals: make(map[string]mission.Proposal),
		bySession: make(map[string][]string),
		events:    make(map[string][]mission.Event),
		signals:   make(map[string][]mission.Signal),
		artifacts: make(map[string][]mission.Artifact),
	}
}

// PutProposal records proposal metadata once. Re-puts of the same ID are
// ignored; status history belongs to the event log.
func (l *Log) PutProposal(p mission.Proposal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.proposals[p.ID]; ok {
		return
	}
	l.proposals[p.ID] = p
	l.bySession[p.SessionID] = append(l.bySession[p.SessionID], p.ID)
}

func (l *Log) Proposal(missionID string) (mission.Proposal, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.proposals[missionID]
	return p, ok
}

// MissionsForSession returns the session's mission IDs in creation order.
func (l *Log) MissionsForSession(sessionID string) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]string, len(l.bySession[sessionID]))
	copy(ids, l.bySession[sessionID])
	return ids
}

func (l *Log) AppendEvent(ev mission.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events[ev.MissionID] = append(l.events[ev.MissionID], ev)
}

func (l *Log) AppendSignal(s mission.Signal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.signals[s.MissionID] = append(l.signals[s.MissionID], s)
}

func (l *Log) AppendArtifact(a mission.Artifact) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.artifacts[a.MissionID] = append(l.artifacts[a.MissionID], a)
}

func (l *Log) Events(missionID string) []mission.Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]mission.Event, len(l.events[missionID]))
	copy(out, l.events[missionID])
	return out
}

func (l *Log) Signals(missionID string) []mission.Signal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]mission.Signal, len(l.signals[missionID]))
	copy(out, l.signals[missionID])
	return out
}

func (l *Log) Artifacts(missionID string) []mission.Artifact {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]mission.Artifact, len(l.artifacts[missionID]))
	copy(out, l.artifacts[missionID])
	return out
}

// Status folds the mission's event log into its current status.
func (l *Log) Status(missionID string) string {
	return mission.ReduceStatus(l.Events(missionID))
}
