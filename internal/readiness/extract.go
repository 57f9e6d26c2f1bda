package readiness

import (
	"regexp"
	"strings"
)

// Field extraction is deliberately literal: only what the user actually said
// lands in the mission fields. Gaps are filled later by session resolution,
// never invented here.

var (
	urlRe = regexp.MustCompile(`(?i)\b(?:https?://)?(?:www\.)?[a-z0-9][a-z0-9-]*(?:\.[a-z0-9-]+)+(?:/[^\s"']*)?`)

	objectRe = regexp.MustCompile(`(?i)\b(?:extract|scrape|collect|grab|pull|harvest|get(?:\s+me)?|find\s+me|send|email|monitor|watch|track)\s+(?:all\s+|the\s+|some\s+|an\s+|a\s+)?([a-z0-9][a-z0-9' -]*?)(?:\s+(?:from|on|at|in|of|to|for)\b|\s*$)`)

	targetRe = regexp.MustCompile(`(?i)\b(?:navigate\s+to|go\s+to|open|visit|browse(?:\s+to)?|write\s+to|(?:send|email|message)(?:\s+\S+)*?\s+to)\s+(?:the\s+)?([a-z0-9][a-z0-9 ._/:@-]*?)(?:\s+(?:and|then)\b|[,;!?]|\s*$)`)

	constraintRe = regexp.MustCompile(`(?i)\b(only [^,.;]+|first \d+[^,.;]*|last \d+[^,.;]*|latest[^,.;]*|newest[^,.;]*|where [^,.;]+|without [^,.;]+)`)

	// tokens that must never pass as extracted values
	stopTokens = map[string]struct{}{
		"there": {}, "here": {}, "it": {}, "them": {}, "that": {}, "those": {},
		"same": {}, "the": {}, "a": {}, "an": {}, "all": {}, "some": {},
		"this": {}, "these": {}, "from": {}, "on": {}, "at": {}, "in": {},
		"of": {}, "to": {}, "for": {},
	}
)

// cleanValue trims quoting and trailing punctuation and rejects values that
// begin with a pronoun or function word. Those are references to resolve,
// not literal field values.
func cleanValue(v string) string {
	v = strings.TrimSpace(strings.Trim(v, `"'`))
	v = strings.TrimRight(v, ".")
	words := strings.Fields(strings.ToLower(v))
	if len(words) == 0 {
		return ""
	}
	if _, stop := stopTokens[words[0]]; stop {
		return ""
	}
	return v
}

func extractURL(text string) string {
	return cleanValue(urlRe.FindString(text))
}

func extractObject(text string) string {
	m := objectRe.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return cleanValue(m[1])
}

func extractTarget(text string) string {
	m := targetRe.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return cleanValue(m[1])
}

func extractConstraints(text string) []string {
	var out []string
	for _, m := range constraintRe.FindAllString(text, -1) {
		out = append(out, strings.TrimSpace(m))
	}
	return out
}
