package normalizer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"aide/internal/llm_client"
)

// LLMRewriter scores rewrites with the configured LLM backend.
type LLMRewriter struct {
	Model string
}

func buildRewritePrompt(text string, hints []string) string {
	var sb strings.Builder
	sb.WriteString("You rewrite user requests for a web-automation assistant into canonical verb-object-target phrasing.\n")
	sb.WriteString("Respond ONLY with this JSON (no extra text):\n")
	sb.WriteString(`{"text": "<rewritten request>", "confidence": <0.0-1.0>}` + "\n\n")
	sb.WriteString("Rules:\n")
	sb.WriteString("- Keep every URL, name and object EXACTLY as the user wrote it.\n")
	sb.WriteString("- NEVER add a URL, object or constraint the user did not state.\n")
	sb.WriteString("- If the request is already canonical or you are unsure, return it unchanged with low confidence.\n\n")
	if len(hints) > 0 {
		sb.WriteString("Recently discussed (context only, do NOT copy into the rewrite): " + strings.Join(hints, ", ") + "\n\n")
	}
	sb.WriteString(fmt.Sprintf("User request: %q\nAssistant JSON response: ", text))
	return sb.String()
}

func (r *LLMRewriter) Rewrite(ctx context.Context, text string, hints []string) (string, float64, error) {
	raw, err := llm_client.GenerateJSON(ctx, buildRewritePrompt(text, hints), r.Model, nil)
	if err != nil {
		return "", 0, fmt.Errorf("rewrite: %w", err)
	}
	var out struct {
		Text       string  `json:"text"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return "", 0, fmt.Errorf("parse rewrite JSON: %v\nRaw Response: %s", err, raw)
	}
	if strings.TrimSpace(out.Text) == "" {
		return text, 0, nil
	}
	return out.Text, out.Confidence, nil
}
