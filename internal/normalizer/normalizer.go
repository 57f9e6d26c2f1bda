// Package normalizer optionally rewrites an utterance into canonical
// verb-object-target phrasing before classification. A rewrite is accepted
// only when the scorer is confident AND it adds no fact (URL, quoted object)
// absent from the input, so normalization can sharpen pattern matching but
// can never invent fields or bypass readiness.
package normalizer

import (
	"context"
	"regexp"
	"strings"

	"aide/internal/logger"
)

// Rewriter is the external semantic-rewrite scorer.
type Rewriter interface {
	Rewrite(ctx context.Context, text string, hints []string) (rewritten string, confidence float64, err error)
}

type Normalizer struct {
	rw        Rewriter
	threshold float64
}

// New builds a normalizer. rw may be nil, which disables rewriting entirely.
func New(rw Rewriter, threshold float64) *Normalizer {
	return &Normalizer{rw: rw, threshold: threshold}
}

// MaybeNormalize returns the rewritten text when it passes both gates, and
// the original text otherwise. Rejection is non-fatal and only logged.
func (n *Normalizer) MaybeNormalize(ctx context.Context, text string, hints []string) string {
	if n.rw == nil || strings.TrimSpace(text) == "" {
		return text
	}
	out, conf, err := n.rw.Rewrite(ctx, text, hints)
	if err != nil {
		logger.Log.Debugf("normalizer rewrite failed, keeping original: %v", err)
		return text
	}
	if conf < n.threshold {
		logger.Log.Debugf("normalizer rejected rewrite (confidence %.2f < %.2f)", conf, n.threshold)
		return text
	}
	if introducesNewFacts(text, out) {
		logger.Log.Infof("normalizer rejected rewrite that invents facts: %q -> %q", text, out)
		return text
	}
	return out
}

var (
	factURLRe    = regexp.MustCompile(`(?i)\b(?:https?://)?(?:www\.)?[a-z0-9][a-z0-9-]*(?:\.[a-z0-9-]+)+(?:/[^\s"']*)?`)
	factQuotedRe = regexp.MustCompile(`"([^"]+)"|'([^']+)'`)
)

// introducesNewFacts reports whether the rewrite contains a URL or quoted
// phrase the input did not. Paraphrasing is fine; inventing is not.
func introducesNewFacts(input, rewrite string) bool {
	in := strings.ToLower(input)
	for _, u := range factURLRe.FindAllString(rewrite, -1) {
		if !strings.Contains(in, strings.ToLower(strings.TrimPrefix(strings.TrimPrefix(u, "https://"), "http://"))) {
			return true
		}
	}
	for _, m := range factQuotedRe.FindAllStringSubmatch(rewrite, -1) {
		phrase := m[1]
		if phrase == "" {
			phrase = m[2]
		}
		if !strings.Contains(in, strings.ToLower(phrase)) {
			return true
		}
	}
	return false
}
