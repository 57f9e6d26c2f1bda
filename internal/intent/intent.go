// Package intent scores an utterance into an intent category. Classification
// is rule-first: a small declarative table (pattern -> category) is evaluated
// deterministically, with an optional LLM scorer consulted only for texts no
// rule matches.
package intent

import (
	"context"
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"aide/internal/logger"
)

const Unknown = "unknown"

// Classification is the scored intent for one utterance.
type Classification struct {
	Intent     string
	Confidence float64
}

// Scorer is the external collaborator consulted when the rule table has no
// opinion. Implementations may be LLM-backed; tests stub it.
type Scorer interface {
	Score(ctx context.Context, text string) (intent string, confidence float64, err error)
}

type rule struct {
	Name       string   `yaml:"name"`
	Confidence float64  `yaml:"confidence"`
	Patterns   []string `yaml:"patterns"`
	Required   []string `yaml:"required"`
	// Anchored patterns must make up the whole utterance (bar politeness),
	// so "again" tacked onto a full command never reroutes it.
	Anchored bool `yaml:"anchored"`
	res      []*regexp.Regexp
}

type ruleTable struct {
	Intents []rule `yaml:"intents"`
}

//go:embed rules.yaml
var rulesYAML []byte

// Classifier evaluates the embedded rule table, then the optional scorer.
type Classifier struct {
	rules    []rule
	required map[string][]string
	scorer   Scorer
}

// NewClassifier builds a classifier from the embedded rule table. scorer may
// be nil, in which case unmatched texts classify as unknown.
func NewClassifier(scorer Scorer) (*Classifier, error) {
	var table ruleTable
	if err := yaml.Unmarshal(rulesYAML, &table); err != nil {
		return nil, fmt.Errorf("parse intent rules: %w", err)
	}
	required := make(map[string][]string, len(table.Intents))
	for i := range table.Intents {
		r := &table.Intents[i]
		if r.Name == "" || len(r.Patterns) == 0 {
			return nil, fmt.Errorf("intent rule %d is missing name or patterns", i)
		}
		for _, p := range r.Patterns {
			if r.Anchored {
				r.res = append(r.res, regexp.MustCompile(`(?i)^\s*(?:please\s+)?`+regexp.QuoteMeta(p)+`(?:[,\s]+please)?[\s.!?]*$`))
				continue
			}
			// Whole-word anchors so "get" never fires inside "target".
			r.res = append(r.res, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(p)+`\b`))
		}
		required[r.Name] = r.Required
	}
	return &Classifier{rules: table.Intents, required: required, scorer: scorer}, nil
}

// Classify scores one utterance. Rule hits win over the scorer; a scorer
// failure degrades to unknown rather than propagating.
func (c *Classifier) Classify(ctx context.Context, text string) Classification {
	t := strings.TrimSpace(text)
	if t == "" {
		return Classification{Intent: Unknown}
	}
	for _, r := range c.rules {
		for _, re := range r.res {
			if re.MatchString(t) {
				return Classification{Intent: r.Name, Confidence: r.Confidence}
			}
		}
	}
	if c.scorer != nil {
		name, conf, err := c.scorer.Score(ctx, t)
		if err != nil {
			logger.Log.Warnf("intent scorer failed, falling back to unknown: %v", err)
		} else if _, known := c.required[name]; known && conf > 0 {
			return Classification{Intent: name, Confidence: conf}
		}
	}
	return Classification{Intent: Unknown}
}

// Required returns the field names a mission of the given intent must resolve.
// Unknown intents require the intent itself.
func (c *Classifier) Required(intentName string) []string {
	if req, ok := c.required[intentName]; ok {
		out := make([]string, len(req))
		copy(out, req)
		return out
	}
	return []string{"intent"}
}

// Known reports whether a category exists in the rule table.
func (c *Classifier) Known(intentName string) bool {
	_, ok := c.required[intentName]
	return ok
}
