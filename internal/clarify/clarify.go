// Package clarify asks for the fields a mission draft is missing and binds
// the expected answer to one pending record per session. A new full command
// always supersedes a pending question.
package clarify

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"aide/internal/logger"
	"aide/internal/mission"
)

// Pending is the single outstanding question for a session, bound to the
// mission draft it was raised for.
type Pending struct {
	ID        string
	SessionID string
	Missing   []string
	Question  string
	Draft     mission.Fields
	ExpiresAt time.Time
}

type Manager struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	pending map[string]*Pending
}

func NewManager(ttl time.Duration) *Manager {
	return &Manager{
		ttl:     ttl,
		now:     time.Now,
		pending: make(map[string]*Pending),
	}
}

var fieldExamples = map[string]string{
	mission.FieldSourceURL:    "e.g. linkedin.com/company/acme",
	mission.FieldActionObject: "e.g. email addresses",
	mission.FieldActionTarget: "e.g. the pricing page, or bob@acme.com",
	mission.FieldIntent:       "e.g. extract, navigate, monitor",
	mission.FieldPriorMission: "no earlier mission exists to repeat",
}

var fieldQuestions = map[string]string{
	mission.FieldSourceURL:    "which site or URL should I work from",
	mission.FieldActionObject: "what exactly should I collect",
	mission.FieldActionTarget: "where should this go",
	mission.FieldIntent:       "what you'd like me to do",
	mission.FieldPriorMission: "which earlier mission to repeat",
}

func buildQuestion(missing, ambiguous []string) string {
	ambiguousSet := map[string]bool{}
	for _, f := range ambiguous {
		ambiguousSet[f] = true
	}
	parts := make([]string, 0, len(missing))
	for _, f := range missing {
		q, ok := fieldQuestions[f]
		if !ok {
			q = strings.ReplaceAll(f, "_", " ")
		}
		if ambiguousSet[f] {
			q += " (you've mentioned several, so I don't want to guess)"
		}
		if ex, ok := fieldExamples[f]; ok {
			q += " (" + ex + ")"
		}
		parts = append(parts, q)
	}
	return fmt.Sprintf("I'm missing some details: %s?", strings.Join(parts, "; and "))
}

// Ask replaces any previous pending question for the session with one bound
// to the given draft.
func (m *Manager) Ask(sessionID string, missing, ambiguous []string, draft mission.Fields) *Pending {
	p := &Pending{
		ID:        mission.NewID(),
		SessionID: sessionID,
		Missing:   append([]string(nil), missing...),
		Question:  buildQuestion(missing, ambiguous),
		Draft:     draft,
		ExpiresAt: m.now().Add(m.ttl),
	}
	m.mu.Lock()
	m.pending[sessionID] = p
	m.mu.Unlock()
	return p
}

// Pending returns the live question for a session. Expired records are
// dropped on sight and treated as if they never existed.
func (m *Manager) Pending(sessionID string) (*Pending, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pending[sessionID]
	if !ok {
		return nil, false
	}
	if m.now().After(p.ExpiresAt) {
		logger.Log.Infof("clarification %s for session %s expired unanswered", p.ID, sessionID)
		delete(m.pending, sessionID)
		return nil, false
	}
	return p, true
}

func (m *Manager) Clear(sessionID string) {
	m.mu.Lock()
	delete(m.pending, sessionID)
	m.mu.Unlock()
}

// Verb-anchored texts are commands, not answers.
var commandRe = regexp.MustCompile(`(?i)\b(extract|scrape|collect|grab|pull|harvest|navigate|go to|open|visit|browse|send|email|message|monitor|watch|track|cancel|repeat|summarize|compare)\b`)

// IsCommand reports whether text reads as a new full command rather than a
// short answer. Explicit commands always win over follow-up resolution.
func IsCommand(text string) bool {
	return commandRe.MatchString(text)
}

var urlAnswerRe = regexp.MustCompile(`(?i)\b(?:https?://)?(?:www\.)?[a-z0-9][a-z0-9-]*(?:\.[a-z0-9-]+)+(?:/[^\s"']*)?`)

// Resolve interprets text as an answer to the pending question. It returns
// the draft merged with whatever the answer supplied, and false when the text
// is a new full command (explicit commands always win over implicit
// follow-up resolution).
func (m *Manager) Resolve(text string, p *Pending) (mission.Fields, bool) {
	if commandRe.MatchString(text) {
		return mission.Fields{}, false
	}
	answer := strings.TrimSpace(text)
	if answer == "" {
		return mission.Fields{}, false
	}

	merged := p.Draft
	merged.Constraints = append([]string(nil), p.Draft.Constraints...)
	filled := false

	for _, f := range p.Missing {
		switch f {
		case mission.FieldSourceURL, mission.FieldActionTarget:
			if u := urlAnswerRe.FindString(answer); u != "" {
				merged.Set(f, u)
				filled = true
			}
		case mission.FieldActionObject:
			// A short noun phrase with no URL in it reads as the object.
			if urlAnswerRe.MatchString(answer) {
				continue
			}
			obj := strings.TrimPrefix(strings.ToLower(answer), "the ")
			if n := len(strings.Fields(obj)); n >= 1 && n <= 5 {
				merged.Set(f, obj)
				filled = true
			}
		}
	}

	if !filled {
		return mission.Fields{}, false
	}
	return merged, true
}
