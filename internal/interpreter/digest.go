package interpreter

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"aide/internal/mission"
)

const excerptLength = 200

type artifactDigest struct {
	headline  string
	excerpt   string
	lines     []string
	linkCount int
}

// digest reduces an artifact payload to comparable text. HTML is parsed
// properly; JSON is flattened to its top-level entries; anything else is
// treated as plain text.
func digest(a mission.Artifact) artifactDigest {
	payload := a.Payload
	if strings.TrimSpace(payload) == "" {
		return artifactDigest{headline: "referenced payload at " + a.PayloadRef}
	}

	if a.Type == "html" || strings.HasPrefix(strings.TrimSpace(payload), "<") {
		if d, ok := digestHTML(payload); ok {
			return d
		}
	}
	if a.Type == "json" || looksLikeJSON(payload) {
		if d, ok := digestJSON(payload); ok {
			return d
		}
	}
	return digestText(payload)
}

func digestHTML(payload string) (artifactDigest, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(payload))
	if err != nil {
		return artifactDigest{}, false
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}
	headline := "page"
	if title != "" {
		headline = fmt.Sprintf("page %q", title)
	}

	text := strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	var lines []string
	doc.Find("li, p, td").Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			lines = append(lines, t)
		}
	})
	return artifactDigest{
		headline:  headline,
		excerpt:   truncate(text, excerptLength),
		lines:     lines,
		linkCount: doc.Find("a[href]").Length(),
	}, true
}

func digestJSON(payload string) (artifactDigest, bool) {
	var asList []any
	if err := json.Unmarshal([]byte(payload), &asList); err == nil {
		lines := make([]string, 0, len(asList))
		for _, item := range asList {
			lines = append(lines, fmt.Sprintf("%v", item))
		}
		return artifactDigest{
			headline: fmt.Sprintf("list of %d entries", len(asList)),
			excerpt:  truncate(strings.Join(lines, "; "), excerptLength),
			lines:    lines,
		}, true
	}

	var asMap map[string]any
	if err := json.Unmarshal([]byte(payload), &asMap); err == nil {
		lines := make([]string, 0, len(asMap))
		for k, v := range asMap {
			lines = append(lines, fmt.Sprintf("%s: %v", k, v))
		}
		return artifactDigest{
			headline: fmt.Sprintf("record with %d fields", len(asMap)),
			excerpt:  truncate(strings.Join(lines, "; "), excerptLength),
			lines:    lines,
		}, true
	}
	return artifactDigest{}, false
}

func digestText(payload string) artifactDigest {
	lines := strings.Split(payload, "\n")
	return artifactDigest{
		headline: fmt.Sprintf("text, %d lines", len(lines)),
		excerpt:  truncate(strings.Join(strings.Fields(payload), " "), excerptLength),
		lines:    lines,
	}
}

func looksLikeJSON(s string) bool {
	t := strings.TrimSpace(s)
	return strings.HasPrefix(t, "{") || strings.HasPrefix(t, "[")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
