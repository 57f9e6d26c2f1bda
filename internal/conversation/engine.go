// Package conversation wires the turn pipeline: pending-record expiry,
// chaining questions, approval replies, clarification resolution,
// normalization, classification, readiness and routing. Every turn comes
// back as a reference-only envelope; errors surface as conversational text,
// never as faults.
package conversation

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"aide/internal/approval"
	"aide/internal/clarify"
	"aide/internal/envelope"
	"aide/internal/intent"
	"aide/internal/interpreter"
	"aide/internal/logger"
	"aide/internal/mission"
	"aide/internal/normalizer"
	"aide/internal/readiness"
	"aide/internal/session"
	"aide/internal/store"
	"aide/internal/whiteboard"
)

// Error-taxonomy outcomes surfaced in envelope metadata.
const (
	OutcomeValidationIncomplete = "validation_incomplete"
	OutcomeAmbiguousReference   = "ambiguous_reference"
	OutcomeApprovalMismatch     = "approval_mismatch"
	OutcomeExecutionFailure     = "execution_failure"
)

// Canceller aborts an executing mission; satisfied by dispatch.Dispatcher.
type Canceller interface {
	Cancel(missionID string) (string, error)
}

type Engine struct {
	classifier *intent.Classifier
	norm       *normalizer.Normalizer
	ready      *readiness.Engine
	sessions   *session.Manager
	clarifier  *clarify.Manager
	bridge     *approval.Bridge
	interp     *interpreter.Interpreter
	board      *whiteboard.Engine
	log        *store.Log
	canceller  Canceller

	// one turn at a time per session; sessions run in parallel
	mu    sync.Mutex
	turns map[string]*sync.Mutex
	// failed missions already surfaced to the user
	reported map[string]bool
}

func NewEngine(
	classifier *intent.Classifier,
	norm *normalizer.Normalizer,
	ready *readiness.Engine,
	sessions *session.Manager,
	clarifier *clarify.Manager,
	bridge *approval.Bridge,
	interp *interpreter.Interpreter,
	board *whiteboard.Engine,
	log *store.Log,
	canceller Canceller,
) *Engine {
	return &Engine{
		classifier: classifier,
		norm:       norm,
		ready:      ready,
		sessions:   sessions,
		clarifier:  clarifier,
		bridge:     bridge,
		interp:     interp,
		board:      board,
		log:        log,
		canceller:  canceller,
		turns:      make(map[string]*sync.Mutex),
		reported:   make(map[string]bool),
	}
}

func (e *Engine) turnLock(sessionID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.turns[sessionID]
	if !ok {
		l = &sync.Mutex{}
		e.turns[sessionID] = l
	}
	return l
}

// ProcessMessage resolves one inbound turn for a session.
func (e *Engine) ProcessMessage(ctx context.Context, sessionID, text string) (*envelope.Envelope, error) {
	lock := e.turnLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	env, err := e.turn(ctx, sessionID, text)
	if err != nil || env == nil {
		return env, err
	}

	// Execution is asynchronous; a finished mission lands in the log and is
	// surfaced on the session's next turn, exactly once, with references to
	// what it produced.
	if id, status := e.unreportedTerminal(sessionID); id != "" {
		for _, s := range e.log.Signals(id) {
			env.AddSignal(s)
		}
		for _, a := range e.log.Artifacts(id) {
			env.AddArtifact(a)
		}
		if status == mission.StatusFailed {
			env.Summary = fmt.Sprintf("Heads up: mission %s failed during execution.\n", id) + env.Summary
			if env.Meta.Outcome == "" {
				env.Meta.Outcome = OutcomeExecutionFailure
			}
		} else {
			env.Summary = fmt.Sprintf("Mission %s finished; ask me to summarize what I found.\n", id) + env.Summary
		}
	}
	return env, nil
}

func (e *Engine) unreportedTerminal(sessionID string) (string, string) {
	for _, id := range e.log.MissionsForSession(sessionID) {
		status := e.log.Status(id)
		if status != mission.StatusFailed && status != mission.StatusCompleted {
			continue
		}
		e.mu.Lock()
		seen := e.reported[id]
		e.reported[id] = true
		e.mu.Unlock()
		if !seen {
			return id, status
		}
	}
	return "", ""
}

func (e *Engine) turn(ctx context.Context, sessionID, text string) (*envelope.Envelope, error) {
	sctx := e.sessions.Get(sessionID)

	// Lazy expiry: a proposal past its deadline is rejected here, before the
	// turn can be misread as an answer to it.
	pendingMission, hasPendingMission := e.bridge.Pending(sessionID)

	// Read-only chaining questions never reach the command pipeline.
	if e.interp.IsChainingQuestion(text) {
		answer, err := e.interp.Answer(text, sessionID)
		if err != nil {
			return nil, err
		}
		return envelope.New(answer, envelope.Metadata{Decision: "interpreted"}), nil
	}

	// Approval replies bind to the exact pending mission, or no-op.
	cls := e.classifier.Classify(ctx, text)
	if cls.Intent == "approve" || cls.Intent == "reject" {
		if hasPendingMission {
			return e.decide(sessionID, pendingMission.ID, cls.Intent == "approve"), nil
		}
		logger.Log.Infof("stray %s from session %s with nothing pending", cls.Intent, sessionID)
		return envelope.New(
			"There's nothing waiting for approval right now.",
			envelope.Metadata{Intent: cls.Intent, Outcome: OutcomeApprovalMismatch},
		), nil
	}

	if cls.Intent == "cancel" {
		return e.cancel(sessionID, hasPendingMission, pendingMission), nil
	}

	// An outstanding clarification is answered, re-asked, or superseded.
	if pending, ok := e.clarifier.Pending(sessionID); ok {
		if clarify.IsCommand(text) {
			e.clarifier.Clear(sessionID)
		} else if merged, answered := e.clarifier.Resolve(text, pending); answered {
			e.clarifier.Clear(sessionID)
			return e.route(e.ready.Evaluate(merged, sctx.Snapshot()), sctx, intent.Classification{Intent: merged.Intent, Confidence: 1}), nil
		} else {
			return envelope.New(pending.Question, envelope.Metadata{
				Decision: string(readiness.Clarifying),
				Missing:  pending.Missing,
				Outcome:  OutcomeValidationIncomplete,
			}), nil
		}
	}

	snap := sctx.Snapshot()

	// Hints reach the rewriter only when the utterance actually points at
	// prior context, so it has nothing extraneous to latch onto.
	var hints []string
	if session.HasPlaceReference(text) {
		hints = append(hints, snap.RecentURLs...)
	}
	if session.HasObjectReference(text) {
		hints = append(hints, snap.RecentObjects...)
	}
	normalized := e.norm.MaybeNormalize(ctx, text, hints)
	if normalized != text {
		logger.Log.Debugf("normalized %q -> %q", text, normalized)
		cls = e.classifier.Classify(ctx, normalized)
	}

	return e.route(e.ready.Validate(normalized, cls, snap), sctx, cls), nil
}

// route turns a readiness result into session mutation, a proposal, a
// clarification, or an incompleteness report.
func (e *Engine) route(res readiness.Result, sctx *session.Context, cls intent.Classification) *envelope.Envelope {
	meta := envelope.Metadata{
		Intent:     res.Fields.Intent,
		Confidence: cls.Confidence,
		Decision:   string(res.Decision),
		Missing:    res.Missing,
	}

	switch res.Decision {
	case readiness.Ready:
		// The only moment session memory moves: a mission reached READY.
		sctx.SetLastReadyMission(res.Fields)
		sctx.RememberURL(res.Fields.SourceURL)
		sctx.RememberObject(res.Fields.ActionObject)
		sctx.RememberIntent(res.Fields.Intent)

		p := e.bridge.Propose(sctx.SessionID(), res.Fields)
		meta.Status = mission.StatusProposed
		summary := fmt.Sprintf("Ready to go: %s. Mission %s is waiting for your approval: reply yes to run it or no to discard.",
			describeFields(res.Fields), p.ID)
		return envelope.New(summary, meta).AddMission(p, mission.StatusProposed)

	case readiness.Clarifying:
		pending := e.clarifier.Ask(sctx.SessionID(), res.Missing, res.Ambiguous, res.Fields)
		if len(res.Ambiguous) > 0 {
			meta.Outcome = OutcomeAmbiguousReference
		} else {
			meta.Outcome = OutcomeValidationIncomplete
		}
		return envelope.New(pending.Question, meta)

	default:
		meta.Outcome = OutcomeValidationIncomplete
		if len(res.Missing) == 1 && res.Missing[0] == mission.FieldPriorMission {
			return envelope.New("I don't have an earlier mission in this session to repeat.", meta)
		}
		if len(res.Missing) == 1 && res.Missing[0] == mission.FieldIntent {
			return envelope.New("I couldn't tell what you'd like me to do. Try something like \"extract emails from linkedin.com\".", meta)
		}
		return envelope.New("I'm missing some details: "+strings.Join(res.Missing, ", ")+".", meta)
	}
}

func (e *Engine) decide(sessionID, missionID string, approve bool) *envelope.Envelope {
	p, status, ok := e.bridge.Decide(sessionID, missionID, approve)
	if !ok {
		return envelope.New(
			"There's nothing waiting for approval right now.",
			envelope.Metadata{Outcome: OutcomeApprovalMismatch},
		)
	}
	if !approve {
		return envelope.New(
			fmt.Sprintf("Okay, mission %s is discarded. Nothing was executed.", p.ID),
			envelope.Metadata{Status: status},
		).AddMission(p, status)
	}
	return envelope.New(
		fmt.Sprintf("Approved: mission %s is executing. Ask me to summarize what I found once it finishes.", p.ID),
		envelope.Metadata{Status: status},
	).AddMission(p, status)
}

func (e *Engine) cancel(sessionID string, hasPending bool, pending mission.Proposal) *envelope.Envelope {
	if hasPending {
		p, status, ok := e.bridge.Decide(sessionID, pending.ID, false)
		if ok {
			return envelope.New(
				fmt.Sprintf("Cancelled: mission %s will not run.", p.ID),
				envelope.Metadata{Status: status},
			).AddMission(p, status)
		}
	}
	// Only this session's own executing mission may be aborted; another
	// session's work is out of reach from here.
	if e.canceller != nil {
		for _, missionID := range e.log.MissionsForSession(sessionID) {
			if e.log.Status(missionID) != mission.StatusExecuting {
				continue
			}
			if id, err := e.canceller.Cancel(missionID); err == nil {
				return envelope.New(fmt.Sprintf("Cancelling mission %s.", id), envelope.Metadata{})
			}
		}
	}
	return envelope.New("There's nothing to cancel right now.", envelope.Metadata{})
}

// Approve is the programmatic approval surface; the conversational "yes"
// path funnels into the same bridge.
func (e *Engine) Approve(ctx context.Context, sessionID, missionID string, approveIt bool) (*envelope.Envelope, error) {
	lock := e.turnLock(sessionID)
	lock.Lock()
	defer lock.Unlock()
	return e.decide(sessionID, missionID, approveIt), nil
}

// MissionView reconstructs the whiteboard for one mission.
func (e *Engine) MissionView(ctx context.Context, missionID string) (whiteboard.View, error) {
	return e.board.Reconstruct(ctx, missionID)
}

// PendingClarification exposes the session's outstanding question, if any.
func (e *Engine) PendingClarification(sessionID string) (*clarify.Pending, bool) {
	return e.clarifier.Pending(sessionID)
}

// DropSession tears down a session's memory and pending records.
func (e *Engine) DropSession(sessionID string) {
	e.clarifier.Clear(sessionID)
	e.sessions.Drop(sessionID)
	e.mu.Lock()
	delete(e.turns, sessionID)
	e.mu.Unlock()
}

func describeFields(f mission.Fields) string {
	var parts []string
	parts = append(parts, f.Intent)
	if f.ActionObject != "" {
		parts = append(parts, f.ActionObject)
	}
	if f.ActionTarget != "" {
		parts = append(parts, "to "+f.ActionTarget)
	}
	if f.SourceURL != "" {
		parts = append(parts, "from "+f.SourceURL)
	}
	if len(f.Constraints) > 0 {
		parts = append(parts, "("+strings.Join(f.Constraints, "; ")+")")
	}
	return strings.Join(parts, " ")
}
