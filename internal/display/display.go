package display

import (
	"fmt"
	"strings"
	"time"

	"aide/internal/clarify"
	"aide/internal/envelope"
	"aide/internal/whiteboard"
)

const maxSummaryLength = 100

func truncateForDisplay(s string) string {
	s = strings.ReplaceAll(s, "\n", "\\n")
	if len(s) > maxSummaryLength {
		return s[:maxSummaryLength] + "..."
	}
	return s
}

// FormatEnvelope renders a turn's envelope for the terminal.
func FormatEnvelope(env *envelope.Envelope) string {
	var sb strings.Builder
	sb.WriteString(env.Summary)

	for _, m := range env.Missions {
		sb.WriteString(fmt.Sprintf("\n  Mission %s [%s]", m.ID, m.Status))
	}
	for _, a := range env.Artifacts {
		sb.WriteString(fmt.Sprintf("\n  Artifact %s (%s) %s", a.ID, a.Type, truncateForDisplay(a.Summary)))
	}
	for _, s := range env.Signals {
		sb.WriteString(fmt.Sprintf("\n  Signal %s (%s) %s", s.ID, s.Type, truncateForDisplay(s.Summary)))
	}
	if env.Meta.Outcome != "" {
		sb.WriteString(fmt.Sprintf("\n  [%s]", env.Meta.Outcome))
	}
	return sb.String()
}

// FormatMissionView renders a reconstructed whiteboard view.
func FormatMissionView(v whiteboard.View) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Mission %s [%s]\n", v.MissionID, v.Status))
	sb.WriteString("--------------------------------------------------\n")
	sb.WriteString(fmt.Sprintf("Objective: %s", v.Proposal.Fields.Intent))
	if v.Proposal.Fields.ActionObject != "" {
		sb.WriteString(" " + v.Proposal.Fields.ActionObject)
	}
	if v.Proposal.Fields.SourceURL != "" {
		sb.WriteString(" from " + v.Proposal.Fields.SourceURL)
	}
	if v.Proposal.Fields.ActionTarget != "" {
		sb.WriteString(" to " + v.Proposal.Fields.ActionTarget)
	}
	sb.WriteString("\n")

	sb.WriteString("History:\n")
	for _, ev := range v.Events {
		line := fmt.Sprintf("  %s  %s", ev.At.Format("15:04:05"), ev.Status)
		if ev.Note != "" {
			line += " (" + truncateForDisplay(ev.Note) + ")"
		}
		sb.WriteString(line + "\n")
	}

	if len(v.Timeline) > 0 {
		sb.WriteString("Timeline:\n")
		for _, s := range v.Timeline {
			sb.WriteString(fmt.Sprintf("  %s  [%s] %s\n", s.At.Format("15:04:05"), s.Type, truncateForDisplay(s.Summary)))
		}
	}
	if len(v.Artifacts) > 0 {
		sb.WriteString("Artifacts:\n")
		for _, a := range v.Artifacts {
			sb.WriteString(fmt.Sprintf("  %s (%s) %s\n", a.ID, a.Type, truncateForDisplay(a.PayloadRef)))
		}
	}
	sb.WriteString(fmt.Sprintf("Signals: %d, Artifacts: %d", v.SignalCount, v.ArtifactCount))
	if v.Duration > 0 {
		sb.WriteString(fmt.Sprintf(", span %s", v.Duration.Round(time.Millisecond)))
	}
	sb.WriteString("\n--------------------------------------------------")
	return sb.String()
}

// FormatPendingClarification renders the outstanding question for a session.
func FormatPendingClarification(p *clarify.Pending) string {
	if p == nil {
		return "No clarification is pending."
	}
	return fmt.Sprintf("Pending clarification %s (missing: %s)\n  %s",
		p.ID, strings.Join(p.Missing, ", "), p.Question)
}
