// Package interpreter answers read-only questions over already-stored
// artifacts ("summarize what you found", "what changed"). It works on copies
// scoped to one session and guarantees it never proposes a mission, never
// touches approval and never mutates session state.
package interpreter

import (
	"fmt"
	"regexp"
	"strings"

	"aide/internal/mission"
	"aide/internal/store"
)

var (
	chainRe = regexp.MustCompile(`(?i)\b(summari[sz]e|summary|recap|what (?:did|have) (?:you|we) (?:find|found|get|got)|what changed|what's (?:new|different)|compare|difference|diff)\b`)

	// Execution verbs and approval words must fall through to the command
	// pipeline, never be swallowed as chaining questions.
	executionRe = regexp.MustCompile(`(?i)\b(extract|scrape|collect|grab|pull|harvest|navigate|go to|open|visit|browse|send|email|monitor|watch|track|cancel|repeat|again)\b`)
	approvalRe  = regexp.MustCompile(`(?i)\b(yes|no|approve|reject|confirm|go ahead|proceed)\b`)

	compareRe = regexp.MustCompile(`(?i)\b(compare|difference|diff|what changed|what's (?:new|different))\b`)
	rollupRe  = regexp.MustCompile(`(?i)\b(all|everything|so far|this session)\b`)
)

type Interpreter struct {
	log *store.Log
}

func New(log *store.Log) *Interpreter {
	return &Interpreter{log: log}
}

// IsChainingQuestion reports whether text asks about prior artifacts rather
// than requesting work or answering an approval.
func (i *Interpreter) IsChainingQuestion(text string) bool {
	if executionRe.MatchString(text) || approvalRe.MatchString(text) {
		return false
	}
	return chainRe.MatchString(text)
}

// Answer formats a summary, rollup or pairwise diff over copies of the
// session's stored artifacts. It performs no writes of any kind.
func (i *Interpreter) Answer(text, sessionID string) (string, error) {
	artifacts := i.sessionArtifacts(sessionID)
	if len(artifacts) == 0 {
		return "I haven't produced any artifacts in this session yet. Approve a mission first and ask me again.", nil
	}

	switch {
	case compareRe.MatchString(text) && len(artifacts) >= 2:
		return i.diff(artifacts[len(artifacts)-2], artifacts[len(artifacts)-1]), nil
	case compareRe.MatchString(text):
		return "I only have one artifact in this session, so there is nothing to compare it against yet.", nil
	case rollupRe.MatchString(text) && len(artifacts) > 1:
		return i.rollup(artifacts), nil
	default:
		return i.summary(artifacts[len(artifacts)-1]), nil
	}
}

// sessionArtifacts gathers copies of every artifact this session's missions
// produced, oldest first. Other sessions' artifacts are unreachable from
// here by construction.
func (i *Interpreter) sessionArtifacts(sessionID string) []mission.Artifact {
	var out []mission.Artifact
	for _, missionID := range i.log.MissionsForSession(sessionID) {
		out = append(out, i.log.Artifacts(missionID)...)
	}
	return out
}

func (i *Interpreter) summary(a mission.Artifact) string {
	d := digest(a)
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Latest artifact %s (%s, mission %s):\n", a.ID, a.Type, a.MissionID))
	sb.WriteString("  " + d.headline + "\n")
	if d.excerpt != "" {
		sb.WriteString("  " + d.excerpt + "\n")
	}
	if d.linkCount > 0 {
		sb.WriteString(fmt.Sprintf("  Contains %d links.\n", d.linkCount))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (i *Interpreter) rollup(artifacts []mission.Artifact) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("You have %d artifacts in this session:\n", len(artifacts)))
	for _, a := range artifacts {
		d := digest(a)
		sb.WriteString(fmt.Sprintf("  - %s (%s, mission %s): %s\n", a.ID, a.Type, a.MissionID, d.headline))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (i *Interpreter) diff(prev, cur mission.Artifact) string {
	dp, dc := digest(prev), digest(cur)
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Comparing %s (mission %s) with %s (mission %s):\n",
		prev.ID, prev.MissionID, cur.ID, cur.MissionID))

	prevLines := lineSet(dp.lines)
	curLines := lineSet(dc.lines)

	added, removed := 0, 0
	for line := range curLines {
		if _, ok := prevLines[line]; !ok {
			added++
		}
	}
	for line := range prevLines {
		if _, ok := curLines[line]; !ok {
			removed++
		}
	}

	if added == 0 && removed == 0 {
		sb.WriteString("  No content changes between the two.\n")
	} else {
		sb.WriteString(fmt.Sprintf("  %d entries are new, %d entries are gone.\n", added, removed))
	}
	if dp.linkCount != dc.linkCount {
		sb.WriteString(fmt.Sprintf("  Link count went from %d to %d.\n", dp.linkCount, dc.linkCount))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func lineSet(lines []string) map[string]struct{} {
	set := make(map[string]struct{}, len(lines))
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l != "" {
			set[l] = struct{}{}
		}
	}
	return set
}
