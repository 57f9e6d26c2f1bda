// Package approval gates execution behind an explicit human decision. Per
// session the state machine is no_pending -> awaiting_approval ->
// approved|rejected|timed_out; a decision only ever lands on the exact
// mission it was issued against.
package approval

import (
	"sync"
	"time"

	"aide/internal/logger"
	"aide/internal/mission"
	"aide/internal/store"
)

// Dispatcher receives approved proposals for asynchronous execution.
type Dispatcher interface {
	Enqueue(p mission.Proposal)
}

type pendingProposal struct {
	proposal mission.Proposal
	deadline time.Time
}

type Bridge struct {
	mu      sync.Mutex
	timeout time.Duration
	now     func() time.Time
	log     *store.Log
	disp    Dispatcher
	pending map[string]*pendingProposal // sessionID -> awaiting proposal
}

func NewBridge(log *store.Log, disp Dispatcher, timeout time.Duration) *Bridge {
	return &Bridge{
		timeout: timeout,
		now:     time.Now,
		log:     log,
		disp:    disp,
		pending: make(map[string]*pendingProposal),
	}
}

// Propose turns a READY result into a mission proposal awaiting approval.
// This is the only place missions come into existence. A proposal already
// pending for the session is superseded: it times out as rejected, it never
// silently executes.
func (b *Bridge) Propose(sessionID string, fields mission.Fields) mission.Proposal {
	now := b.now()
	p := mission.Proposal{
		ID:        mission.NewID(),
		SessionID: sessionID,
		Fields:    fields,
		CreatedAt: now,
	}

	b.mu.Lock()
	if old, ok := b.pending[sessionID]; ok {
		b.expireLocked(sessionID, old, "superseded by a newer proposal")
	}
	b.pending[sessionID] = &pendingProposal{proposal: p, deadline: now.Add(b.timeout)}
	b.mu.Unlock()

	b.log.PutProposal(p)
	b.log.AppendEvent(mission.Event{MissionID: p.ID, Status: mission.StatusProposed, At: now})
	logger.Log.Infof("mission %s proposed for session %s (%s)", p.ID, sessionID, fields.Intent)
	return p
}

// Pending returns the proposal awaiting approval for a session, lazily
// expiring it when its deadline passed. Expiry means rejection, never
// auto-approval.
func (b *Bridge) Pending(sessionID string) (mission.Proposal, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	pp, ok := b.pending[sessionID]
	if !ok {
		return mission.Proposal{}, false
	}
	if b.now().After(pp.deadline) {
		b.expireLocked(sessionID, pp, "approval window elapsed")
		return mission.Proposal{}, false
	}
	return pp.proposal, true
}

func (b *Bridge) expireLocked(sessionID string, pp *pendingProposal, note string) {
	delete(b.pending, sessionID)
	b.log.AppendEvent(mission.Event{
		MissionID: pp.proposal.ID,
		Status:    mission.StatusTimedOut,
		Note:      note,
		At:        b.now(),
	})
	logger.Log.Infof("mission %s timed out awaiting approval: %s", pp.proposal.ID, note)
}

// Decide applies a human yes/no to the pending mission. The decision sticks
// only when missionID matches the exact pending proposal; a stray "yes" for
// an unknown, stale or absent mission is a logged no-op, as is deciding
// twice. On approval the proposal is handed to the dispatcher and marked
// executing.
func (b *Bridge) Decide(sessionID, missionID string, approve bool) (mission.Proposal, string, bool) {
	b.mu.Lock()
	pp, ok := b.pending[sessionID]
	if !ok {
		b.mu.Unlock()
		logger.Log.Infof("approval ignored for session %s: nothing pending", sessionID)
		return mission.Proposal{}, "", false
	}
	if b.now().After(pp.deadline) {
		b.expireLocked(sessionID, pp, "approval window elapsed")
		b.mu.Unlock()
		return mission.Proposal{}, "", false
	}
	if missionID != "" && missionID != pp.proposal.ID {
		b.mu.Unlock()
		logger.Log.Infof("approval ignored: mission %s does not match pending %s", missionID, pp.proposal.ID)
		return mission.Proposal{}, "", false
	}
	delete(b.pending, sessionID)
	p := pp.proposal
	b.mu.Unlock()

	now := b.now()
	if !approve {
		b.log.AppendEvent(mission.Event{MissionID: p.ID, Status: mission.StatusRejected, At: now})
		logger.Log.Infof("mission %s rejected", p.ID)
		return p, mission.StatusRejected, true
	}

	b.log.AppendEvent(mission.Event{MissionID: p.ID, Status: mission.StatusApproved, At: now})
	b.log.AppendEvent(mission.Event{MissionID: p.ID, Status: mission.StatusExecuting, At: now})
	b.disp.Enqueue(p)
	logger.Log.Infof("mission %s approved, handed off for execution", p.ID)
	return p, mission.StatusExecuting, true
}
