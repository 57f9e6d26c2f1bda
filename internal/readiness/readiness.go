// Package readiness decides whether an utterance carries enough information
// to become an executable mission. Validate is a pure function over the
// utterance, its classification and a session snapshot; it is the only gate
// in front of mission creation.
package readiness

import (
	"aide/internal/intent"
	"aide/internal/mission"
	"aide/internal/session"
)

type Decision string

const (
	Ready      Decision = "READY"
	Clarifying Decision = "CLARIFYING"
	Incomplete Decision = "INCOMPLETE"
)

// Result is the per-turn readiness verdict.
type Result struct {
	Decision Decision
	Fields   mission.Fields
	// Missing lists required field names that are neither stated nor
	// unambiguously resolvable.
	Missing []string
	// Ambiguous lists the subset of Missing where the session history held
	// two or more distinct candidates (clarification should say so).
	Ambiguous []string
}

// Requirements is the slice of the intent classifier the engine needs.
type Requirements interface {
	Required(intentName string) []string
	Known(intentName string) bool
}

type Engine struct {
	reqs Requirements
}

func NewEngine(reqs Requirements) *Engine {
	return &Engine{reqs: reqs}
}

// decision intents that carry no mission of their own
func isConversational(name string) bool {
	switch name {
	case "approve", "reject", "cancel":
		return true
	}
	return false
}

// Validate extracts intent-specific fields from the utterance, fills gaps via
// session resolution, and decides READY/CLARIFYING/INCOMPLETE. It never
// mutates the session; callers pass a snapshot.
func (e *Engine) Validate(utterance string, cls intent.Classification, snap session.Snapshot) Result {
	if isConversational(cls.Intent) {
		return Result{
			Decision: Incomplete,
			Fields:   mission.Fields{Intent: intent.Unknown},
			Missing:  []string{mission.FieldIntent},
		}
	}

	// Phrasings like "same as last time" read as repeats even when the rule
	// table put no intent on them. An utterance that classified as a real
	// command stays one: repeat never overrides an explicit intent.
	if cls.Intent == "repeat" || (!e.reqs.Known(cls.Intent) && session.IsRepeatCommand(utterance)) {
		if fields, ok := snap.RepeatedMissionFields(); ok {
			return Result{Decision: Ready, Fields: fields}
		}
		return Result{
			Decision: Incomplete,
			Fields:   mission.Fields{Intent: "repeat"},
			Missing:  []string{mission.FieldPriorMission},
		}
	}

	if cls.Intent == intent.Unknown || !e.reqs.Known(cls.Intent) {
		return Result{
			Decision: Incomplete,
			Fields:   mission.Fields{Intent: intent.Unknown},
			Missing:  []string{mission.FieldIntent},
		}
	}

	fields := mission.Fields{
		Intent:       cls.Intent,
		ActionObject: extractObject(utterance),
		ActionTarget: extractTarget(utterance),
		SourceURL:    extractURL(utterance),
		Constraints:  extractConstraints(utterance),
	}
	// "navigate to linkedin.com": the URL is the target, not a source.
	if fields.ActionTarget == "" && cls.Intent == "navigate" && fields.SourceURL != "" {
		fields.ActionTarget = fields.SourceURL
	}

	return e.Evaluate(fields, snap)
}

// Evaluate applies session resolution and the decision rule to an already
// extracted (or clarification-merged) field set.
func (e *Engine) Evaluate(fields mission.Fields, snap session.Snapshot) Result {
	res := Result{Fields: fields}

	for _, name := range e.reqs.Required(fields.Intent) {
		if res.Fields.Get(name) != "" {
			continue
		}
		value, candidates := resolveField(name, snap)
		if value != "" {
			res.Fields.Set(name, value)
			continue
		}
		res.Missing = append(res.Missing, name)
		if candidates > 1 {
			res.Ambiguous = append(res.Ambiguous, name)
		}
	}

	switch {
	case len(res.Missing) == 0:
		res.Decision = Ready
	case len(res.Missing) <= 2:
		res.Decision = Clarifying
	default:
		res.Decision = Incomplete
	}
	return res
}

// resolveField applies the exactly-one rule: a value is returned only when
// the bounded history holds a single distinct candidate. The candidate count
// comes back either way so ambiguity can be surfaced instead of guessed.
func resolveField(name string, snap session.Snapshot) (string, int) {
	switch name {
	case mission.FieldSourceURL, mission.FieldActionTarget:
		v, ok := snap.ResolveSourceURL()
		if !ok {
			return "", snap.URLCandidates()
		}
		return v, 1
	case mission.FieldActionObject:
		v, ok := snap.ResolveActionObject()
		if !ok {
			return "", snap.ObjectCandidates()
		}
		return v, 1
	}
	return "", 0
}
