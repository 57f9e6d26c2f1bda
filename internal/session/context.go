// Package session keeps the bounded per-session memory used to resolve
// pronouns and repeat commands. A Context is exclusively owned by one
// session_id; readers work on Snapshot copies so nothing downstream can
// mutate history.
package session

import (
	"aide/internal/mission"
)

// Context is the mutable per-session memory. It is not safe for concurrent
// use on its own; the conversation engine serializes turns per session.
type Context struct {
	sessionID string
	maxItems  int

	recentURLs    []string
	recentObjects []string
	recentIntents []string
	lastReady     *mission.Fields
}

func newContext(sessionID string, maxItems int) *Context {
	if maxItems < 1 {
		maxItems = 10
	}
	return &Context{sessionID: sessionID, maxItems: maxItems}
}

func (c *Context) SessionID() string { return c.sessionID }

// push appends keeping recency order (newest last) and the bounded size.
// A re-mention moves the value to the newest slot instead of duplicating it.
func (c *Context) push(list []string, value string) []string {
	if value == "" {
		return list
	}
	for i, v := range list {
		if v == value {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	list = append(list, value)
	if len(list) > c.maxItems {
		list = list[1:]
	}
	return list
}

func (c *Context) RememberURL(url string)       { c.recentURLs = c.push(c.recentURLs, url) }
func (c *Context) RememberObject(obj string)    { c.recentObjects = c.push(c.recentObjects, obj) }
func (c *Context) RememberIntent(intent string) { c.recentIntents = c.push(c.recentIntents, intent) }

// SetLastReadyMission snapshots the fields of a mission that reached READY.
// Callers must only invoke it at that moment, never speculatively.
func (c *Context) SetLastReadyMission(f mission.Fields) {
	cp := f
	cp.Constraints = append([]string(nil), f.Constraints...)
	c.lastReady = &cp
}

// Snapshot returns an immutable copy for readiness validation and tests.
func (c *Context) Snapshot() Snapshot {
	s := Snapshot{
		SessionID:     c.sessionID,
		RecentURLs:    append([]string(nil), c.recentURLs...),
		RecentObjects: append([]string(nil), c.recentObjects...),
		RecentIntents: append([]string(nil), c.recentIntents...),
	}
	if c.lastReady != nil {
		cp := *c.lastReady
		cp.Constraints = append([]string(nil), c.lastReady.Constraints...)
		s.LastReady = &cp
	}
	return s
}

// Snapshot is a read-only view of one session's memory.
type Snapshot struct {
	SessionID     string
	RecentURLs    []string
	RecentObjects []string
	RecentIntents []string
	LastReady     *mission.Fields
}

// soleDistinct returns the single distinct value in list, or false when the
// list holds zero or two-plus distinct values. This is the never-guess rule:
// an ambiguous history resolves nothing.
func soleDistinct(list []string) (string, bool) {
	distinct := ""
	for _, v := range list {
		if v == "" {
			continue
		}
		if distinct == "" {
			distinct = v
		} else if distinct != v {
			return "", false
		}
	}
	return distinct, distinct != ""
}

// ResolveSourceURL resolves a pronoun reference like "from there" to the one
// distinct URL in recent history, if there is exactly one.
func (s Snapshot) ResolveSourceURL() (string, bool) {
	return soleDistinct(s.RecentURLs)
}

// ResolveActionObject resolves "it"/"them" to the one distinct prior object.
func (s Snapshot) ResolveActionObject() (string, bool) {
	return soleDistinct(s.RecentObjects)
}

// URLCandidates counts distinct URLs; readiness uses it to tell "nothing to
// resolve" apart from "ambiguous".
func (s Snapshot) URLCandidates() int {
	return countDistinct(s.RecentURLs)
}

func (s Snapshot) ObjectCandidates() int {
	return countDistinct(s.RecentObjects)
}

func countDistinct(list []string) int {
	seen := map[string]struct{}{}
	for _, v := range list {
		if v != "" {
			seen[v] = struct{}{}
		}
	}
	return len(seen)
}

// CanRepeatLastMission reports whether "do it again" has anything to repeat.
func (s Snapshot) CanRepeatLastMission() bool {
	return s.LastReady != nil
}

// RepeatedMissionFields returns a copy of the last READY mission's full field
// set, or false when no mission has reached READY in this session.
func (s Snapshot) RepeatedMissionFields() (mission.Fields, bool) {
	if s.LastReady == nil {
		return mission.Fields{}, false
	}
	cp := *s.LastReady
	cp.Constraints = append([]string(nil), s.LastReady.Constraints...)
	return cp, true
}
