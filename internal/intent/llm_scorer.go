package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"aide/internal/llm_client"
)

// LLMScorer asks the configured LLM backend to categorize texts the rule
// table could not. It never sees rule hits, so it cannot override them.
type LLMScorer struct {
	Model string
}

func buildScorePrompt(text string, categories []string) string {
	var sb strings.Builder
	sb.WriteString("You are an intent classifier for a web-automation assistant. Respond ONLY with this JSON (no extra text):\n")
	sb.WriteString(`{"intent": "<one of the categories>", "confidence": <0.0-1.0>}` + "\n\n")
	sb.WriteString("Categories: " + strings.Join(categories, ", ") + ".\n")
	sb.WriteString("Use \"unknown\" with confidence 0 if none fits. Never invent a category.\n\n")
	sb.WriteString(fmt.Sprintf("User text: %q\nAssistant JSON response: ", text))
	return sb.String()
}

func (s *LLMScorer) Score(ctx context.Context, text string) (string, float64, error) {
	categories := []string{"extract", "navigate", "message", "monitor", "repeat", "cancel", Unknown}
	raw, err := llm_client.GenerateJSON(ctx, buildScorePrompt(text, categories), s.Model, nil)
	if err != nil {
		return "", 0, fmt.Errorf("score intent: %w", err)
	}
	var out struct {
		Intent     string  `json:"intent"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return "", 0, fmt.Errorf("parse intent score JSON: %v\nRaw Response: %s", err, raw)
	}
	return strings.ToLower(strings.TrimSpace(out.Intent)), out.Confidence, nil
}
