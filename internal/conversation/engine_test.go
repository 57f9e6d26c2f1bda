package conversation

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"aide/internal/approval"
	"aide/internal/clarify"
	"aide/internal/intent"
	"aide/internal/interpreter"
	"aide/internal/mission"
	"aide/internal/normalizer"
	"aide/internal/readiness"
	"aide/internal/session"
	"aide/internal/store"
	"aide/internal/whiteboard"
)

type recordingDispatcher struct {
	mu       sync.Mutex
	enqueued []mission.Proposal
}

func (d *recordingDispatcher) Enqueue(p mission.Proposal) {
	d.mu.Lock()
	d.enqueued = append(d.enqueued, p)
	d.mu.Unlock()
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.enqueued)
}

type fakeCanceller struct {
	cancelled []string
}

func (f *fakeCanceller) Cancel(missionID string) (string, error) {
	f.cancelled = append(f.cancelled, missionID)
	return missionID, nil
}

func newTestEngine(t require.TestingT) (*Engine, *store.Log, *recordingDispatcher) {
	return newTestEngineWithCanceller(t, nil)
}

func newTestEngineWithCanceller(t require.TestingT, canceller Canceller) (*Engine, *store.Log, *recordingDispatcher) {
	classifier, err := intent.NewClassifier(nil)
	require.NoError(t, err)

	log := store.NewLog()
	disp := &recordingDispatcher{}
	e := NewEngine(
		classifier,
		normalizer.New(nil, 0.6),
		readiness.NewEngine(classifier),
		session.NewManager(10),
		clarify.NewManager(time.Minute),
		approval.NewBridge(log, disp, time.Minute),
		interpreter.New(log),
		whiteboard.NewEngine(log),
		log,
		canceller,
	)
	return e, log, disp
}

func TestReadyThenApprove(t *testing.T) {
	e, log, disp := newTestEngine(t)
	ctx := context.Background()

	env, err := e.ProcessMessage(ctx, "s1", "Extract emails from linkedin.com")
	require.NoError(t, err)
	require.Equal(t, string(readiness.Ready), env.Meta.Decision)
	require.Len(t, env.Missions, 1)
	assert.Equal(t, mission.StatusProposed, env.Missions[0].Status)
	assert.Zero(t, disp.count(), "nothing may execute before approval")

	missionID := env.Missions[0].ID
	env, err = e.ProcessMessage(ctx, "s1", "yes")
	require.NoError(t, err)
	require.Len(t, env.Missions, 1)
	assert.Equal(t, missionID, env.Missions[0].ID)
	assert.Equal(t, mission.StatusExecuting, env.Missions[0].Status)
	assert.Equal(t, 1, disp.count())
	assert.Equal(t, mission.StatusExecuting, log.Status(missionID))
}

func TestRejectDiscards(t *testing.T) {
	e, log, disp := newTestEngine(t)
	ctx := context.Background()

	env, err := e.ProcessMessage(ctx, "s1", "extract emails from linkedin.com")
	require.NoError(t, err)
	missionID := env.Missions[0].ID

	env, err = e.ProcessMessage(ctx, "s1", "no")
	require.NoError(t, err)
	assert.Equal(t, mission.StatusRejected, env.Missions[0].Status)
	assert.Zero(t, disp.count())
	assert.Equal(t, mission.StatusRejected, log.Status(missionID))
}

func TestStrayApprovalIsNoOp(t *testing.T) {
	e, log, _ := newTestEngine(t)

	env, err := e.ProcessMessage(context.Background(), "s1", "yes")
	require.NoError(t, err)
	assert.Equal(t, OutcomeApprovalMismatch, env.Meta.Outcome)
	assert.Empty(t, env.Missions)
	assert.Empty(t, log.MissionsForSession("s1"))
}

func TestClarifyThenAnswer(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	env, err := e.ProcessMessage(ctx, "s1", "extract emails")
	require.NoError(t, err)
	require.Equal(t, string(readiness.Clarifying), env.Meta.Decision)
	assert.Equal(t, OutcomeValidationIncomplete, env.Meta.Outcome)
	assert.Contains(t, env.Meta.Missing, mission.FieldSourceURL)

	_, ok := e.PendingClarification("s1")
	require.True(t, ok)

	// a bare URL answers the open question and completes the draft
	env, err = e.ProcessMessage(ctx, "s1", "linkedin.com/company/acme")
	require.NoError(t, err)
	require.Equal(t, string(readiness.Ready), env.Meta.Decision)
	require.Len(t, env.Missions, 1)

	_, ok = e.PendingClarification("s1")
	assert.False(t, ok, "an answered question must be cleared")
}

func TestClarifySupersededByCommand(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.ProcessMessage(ctx, "s1", "extract emails")
	require.NoError(t, err)

	env, err := e.ProcessMessage(ctx, "s1", "navigate to github.com")
	require.NoError(t, err)
	assert.Equal(t, string(readiness.Ready), env.Meta.Decision)
	require.Len(t, env.Missions, 1)
	assert.Equal(t, "navigate", env.Meta.Intent)
}

func TestClarifyReasksOnUnusableAnswer(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	first, err := e.ProcessMessage(ctx, "s1", "extract emails")
	require.NoError(t, err)

	env, err := e.ProcessMessage(ctx, "s1", "hmm, not sure really")
	require.NoError(t, err)
	assert.Equal(t, first.Summary, env.Summary, "the open question is asked again")
	if p, ok := e.PendingClarification("s1"); assert.True(t, ok) {
		assert.Contains(t, p.Missing, mission.FieldSourceURL)
	}
}

func TestAmbiguousReference(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.ProcessMessage(ctx, "s1", "extract emails from linkedin.com")
	require.NoError(t, err)
	_, err = e.ProcessMessage(ctx, "s1", "extract titles from github.com")
	require.NoError(t, err)

	env, err := e.ProcessMessage(ctx, "s1", "extract phone numbers from there")
	require.NoError(t, err)
	assert.Equal(t, string(readiness.Clarifying), env.Meta.Decision)
	assert.Equal(t, OutcomeAmbiguousReference, env.Meta.Outcome)
	assert.Empty(t, env.Missions, "an ambiguous reference never guesses a mission into existence")
}

func TestPronounResolution(t *testing.T) {
	e, log, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.ProcessMessage(ctx, "s1", "extract emails from linkedin.com")
	require.NoError(t, err)

	env, err := e.ProcessMessage(ctx, "s1", "extract phone numbers from there")
	require.NoError(t, err)
	require.Equal(t, string(readiness.Ready), env.Meta.Decision)

	p, ok := log.Proposal(env.Missions[0].ID)
	require.True(t, ok)
	assert.Equal(t, "linkedin.com", p.Fields.SourceURL)
}

func TestRepeatLastMission(t *testing.T) {
	e, log, _ := newTestEngine(t)
	ctx := context.Background()

	first, err := e.ProcessMessage(ctx, "s1", "extract emails from linkedin.com")
	require.NoError(t, err)
	_, err = e.ProcessMessage(ctx, "s1", "yes")
	require.NoError(t, err)

	env, err := e.ProcessMessage(ctx, "s1", "do it again")
	require.NoError(t, err)
	require.Equal(t, string(readiness.Ready), env.Meta.Decision)
	require.Len(t, env.Missions, 1)
	assert.NotEqual(t, first.Missions[0].ID, env.Missions[0].ID, "a repeat is a fresh mission")

	p, ok := log.Proposal(env.Missions[0].ID)
	require.True(t, ok)
	assert.Equal(t, "linkedin.com", p.Fields.SourceURL)
	assert.Equal(t, "emails", p.Fields.ActionObject)
}

func TestRepeatWithoutHistory(t *testing.T) {
	e, _, _ := newTestEngine(t)

	env, err := e.ProcessMessage(context.Background(), "s1", "do it again")
	require.NoError(t, err)
	assert.Equal(t, string(readiness.Incomplete), env.Meta.Decision)
	assert.Contains(t, env.Summary, "earlier mission")
}

func TestUnknownIntent(t *testing.T) {
	e, log, _ := newTestEngine(t)

	env, err := e.ProcessMessage(context.Background(), "s1", "the weather is nice today")
	require.NoError(t, err)
	assert.Equal(t, string(readiness.Incomplete), env.Meta.Decision)
	assert.Equal(t, OutcomeValidationIncomplete, env.Meta.Outcome)
	assert.Empty(t, log.MissionsForSession("s1"))
}

func TestCancelPendingProposal(t *testing.T) {
	e, log, disp := newTestEngine(t)
	ctx := context.Background()

	env, err := e.ProcessMessage(ctx, "s1", "extract emails from linkedin.com")
	require.NoError(t, err)
	missionID := env.Missions[0].ID

	env, err = e.ProcessMessage(ctx, "s1", "cancel that")
	require.NoError(t, err)
	assert.Equal(t, mission.StatusRejected, env.Missions[0].Status)
	assert.Equal(t, mission.StatusRejected, log.Status(missionID))
	assert.Zero(t, disp.count())
}

func TestChainingQuestionNeverProposes(t *testing.T) {
	e, log, _ := newTestEngine(t)

	env, err := e.ProcessMessage(context.Background(), "s1", "summarize what you found")
	require.NoError(t, err)
	assert.Equal(t, "interpreted", env.Meta.Decision)
	assert.Empty(t, env.Missions)
	assert.Empty(t, log.MissionsForSession("s1"))
}

func TestSessionsDoNotShareMemory(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.ProcessMessage(ctx, "s1", "extract emails from linkedin.com")
	require.NoError(t, err)

	// s2 has no URL history, so the pronoun cannot resolve there
	env, err := e.ProcessMessage(ctx, "s2", "extract phone numbers from there")
	require.NoError(t, err)
	assert.NotEqual(t, string(readiness.Ready), env.Meta.Decision)
}

func TestExplicitCommandWinsOverRepeatPhrasing(t *testing.T) {
	e, log, _ := newTestEngine(t)
	ctx := context.Background()

	// no history: the command stands entirely on its own fields
	env, err := e.ProcessMessage(ctx, "s1", "extract phone numbers from acme.com again")
	require.NoError(t, err)
	require.Equal(t, string(readiness.Ready), env.Meta.Decision)
	p, ok := log.Proposal(env.Missions[0].ID)
	require.True(t, ok)
	assert.Equal(t, "acme.com", p.Fields.SourceURL)
	assert.Equal(t, "phone numbers", p.Fields.ActionObject)

	// with history: the stated fields still win over the prior snapshot
	_, err = e.ProcessMessage(ctx, "s2", "extract emails from linkedin.com")
	require.NoError(t, err)
	_, err = e.ProcessMessage(ctx, "s2", "yes")
	require.NoError(t, err)

	env, err = e.ProcessMessage(ctx, "s2", "extract phone numbers from acme.com again")
	require.NoError(t, err)
	require.Equal(t, string(readiness.Ready), env.Meta.Decision)
	p, ok = log.Proposal(env.Missions[0].ID)
	require.True(t, ok)
	assert.Equal(t, "acme.com", p.Fields.SourceURL)
	assert.Equal(t, "phone numbers", p.Fields.ActionObject)
}

func TestBareRepeatWord(t *testing.T) {
	e, log, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.ProcessMessage(ctx, "s1", "extract emails from linkedin.com")
	require.NoError(t, err)
	_, err = e.ProcessMessage(ctx, "s1", "yes")
	require.NoError(t, err)

	env, err := e.ProcessMessage(ctx, "s1", "again")
	require.NoError(t, err)
	require.Equal(t, string(readiness.Ready), env.Meta.Decision)
	p, ok := log.Proposal(env.Missions[0].ID)
	require.True(t, ok)
	assert.Equal(t, "linkedin.com", p.Fields.SourceURL)
	assert.Equal(t, "emails", p.Fields.ActionObject)
}

func TestPronounWithNoHistoryAsks(t *testing.T) {
	e, log, _ := newTestEngine(t)

	env, err := e.ProcessMessage(context.Background(), "s1", "extract phone numbers from there")
	require.NoError(t, err)
	assert.Equal(t, string(readiness.Clarifying), env.Meta.Decision)
	assert.Contains(t, env.Meta.Missing, mission.FieldSourceURL)
	assert.Empty(t, env.Missions)
	assert.Empty(t, log.MissionsForSession("s1"))
}

func TestCancelIsSessionScoped(t *testing.T) {
	canceller := &fakeCanceller{}
	e, log, _ := newTestEngineWithCanceller(t, canceller)
	ctx := context.Background()

	env, err := e.ProcessMessage(ctx, "s1", "extract emails from linkedin.com")
	require.NoError(t, err)
	missionID := env.Missions[0].ID
	_, err = e.ProcessMessage(ctx, "s1", "yes")
	require.NoError(t, err)
	require.Equal(t, mission.StatusExecuting, log.Status(missionID))

	// another session's cancel must not reach s1's executing mission
	env, err = e.ProcessMessage(ctx, "s2", "cancel")
	require.NoError(t, err)
	assert.Contains(t, env.Summary, "nothing to cancel")
	assert.Empty(t, canceller.cancelled)

	// the owning session can abort it
	env, err = e.ProcessMessage(ctx, "s1", "cancel")
	require.NoError(t, err)
	assert.Contains(t, env.Summary, "Cancelling mission "+missionID)
	assert.Equal(t, []string{missionID}, canceller.cancelled)
}

func TestCompletedMissionNoticeCarriesRefs(t *testing.T) {
	e, log, _ := newTestEngine(t)
	ctx := context.Background()

	env, err := e.ProcessMessage(ctx, "s1", "extract emails from linkedin.com")
	require.NoError(t, err)
	missionID := env.Missions[0].ID
	_, err = e.ProcessMessage(ctx, "s1", "yes")
	require.NoError(t, err)

	// the execution collaborator reports back through the log
	now := time.Now()
	log.AppendSignal(mission.Signal{ID: "sig-1", MissionID: missionID, Type: "extraction", Source: "browser", Summary: "collected 2 emails", At: now})
	log.AppendArtifact(mission.Artifact{ID: "art-1", MissionID: missionID, Type: "json", PayloadRef: "emails/1.json", CreatedAt: now})
	log.AppendEvent(mission.Event{MissionID: missionID, Status: mission.StatusCompleted, At: now})

	env, err = e.ProcessMessage(ctx, "s1", "summarize what you found")
	require.NoError(t, err)
	assert.Contains(t, env.Summary, "Mission "+missionID+" finished")
	require.Len(t, env.Signals, 1)
	require.Len(t, env.Artifacts, 1)

	// every reference must be recoverable from the whiteboard
	view, err := e.MissionView(ctx, missionID)
	require.NoError(t, err)
	assert.Equal(t, view.Timeline[0].ID, env.Signals[0].ID)
	assert.Equal(t, view.Artifacts[0].ID, env.Artifacts[0].ID)

	// surfaced once, not on every turn
	env, err = e.ProcessMessage(ctx, "s1", "summarize what you found")
	require.NoError(t, err)
	assert.NotContains(t, env.Summary, "finished")
	assert.Empty(t, env.Signals)
}

func TestExecutionFailureSurfacesOnce(t *testing.T) {
	e, log, _ := newTestEngine(t)
	ctx := context.Background()

	env, err := e.ProcessMessage(ctx, "s1", "extract emails from linkedin.com")
	require.NoError(t, err)
	missionID := env.Missions[0].ID
	_, err = e.ProcessMessage(ctx, "s1", "yes")
	require.NoError(t, err)

	// the execution collaborator reports back through the log
	log.AppendEvent(mission.Event{MissionID: missionID, Status: mission.StatusFailed, Note: "page not reachable", At: time.Now()})

	env, err = e.ProcessMessage(ctx, "s1", "summarize what you found")
	require.NoError(t, err)
	assert.Contains(t, env.Summary, "failed during execution")
	assert.Equal(t, OutcomeExecutionFailure, env.Meta.Outcome)

	env, err = e.ProcessMessage(ctx, "s1", "summarize what you found")
	require.NoError(t, err)
	assert.NotContains(t, env.Summary, "failed during execution")
}

// Missions come into existence exactly on READY turns, whatever the user says
// in whatever order.
func TestMissionsOnlyFromReadyTurns(t *testing.T) {
	utterances := []string{
		"extract emails from linkedin.com",
		"extract phone numbers from there",
		"navigate to github.com",
		"extract",
		"yes",
		"no",
		"cancel",
		"do it again",
		"summarize what you found",
		"the weather is nice",
		"hmm, not sure really",
		"linkedin.com/company/acme",
	}

	rapid.Check(t, func(rt *rapid.T) {
		e, log, _ := newTestEngine(rt)
		ctx := context.Background()
		sessionID := "prop"

		n := rapid.IntRange(1, 20).Draw(rt, "turns")
		readyTurns := 0
		for i := 0; i < n; i++ {
			text := rapid.SampledFrom(utterances).Draw(rt, fmt.Sprintf("u%d", i))
			env, err := e.ProcessMessage(ctx, sessionID, text)
			if err != nil {
				rt.Fatalf("ProcessMessage(%q): %v", text, err)
			}
			if env.Meta.Decision == string(readiness.Ready) {
				readyTurns++
			}
		}

		if got := len(log.MissionsForSession(sessionID)); got != readyTurns {
			rt.Fatalf("missions = %d, READY turns = %d", got, readyTurns)
		}
	})
}
