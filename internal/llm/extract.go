// Package llm recovers structured analysis data from freeform model
// output. Backends that ask for JSON rarely get only JSON back; the
// object is usually buried in narration.
package llm

import (
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/lindesk/pkg/models"
)

// AnalysisPayload is the JSON object the analysis prompt asks for.
type AnalysisPayload struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    string   `json:"priority"`
	Complexity  float64  `json:"complexity"`
	Components  []string `json:"components"`
}

// ToAnalysis maps the payload onto a canonical Analysis, applying the
// backend defaults for missing fields: the original subject as title,
// normal priority, complexity 3, a General component.
func (p *AnalysisPayload) ToAnalysis(thread *models.Thread) *models.Analysis {
	analysis := &models.Analysis{
		Title:               p.Title,
		Description:         p.Description,
		Priority:            models.ParsePriority(p.Priority),
		EstimatedComplexity: int(p.Complexity),
		Components:          p.Components,
		OriginalSubject:     thread.Subject,
		Thread:              thread,
	}
	if analysis.Title == "" {
		analysis.Title = thread.Subject
	}
	if analysis.Description == "" {
		analysis.Description = "No detailed analysis provided"
	}
	if analysis.EstimatedComplexity < 1 || analysis.EstimatedComplexity > 5 {
		analysis.EstimatedComplexity = 3
	}
	if len(analysis.Components) == 0 {
		analysis.Components = []string{"General"}
	}
	return analysis
}

// ExtractJSON locates and parses a JSON object embedded anywhere in
// freeform output. Strategies in order: a brace-matching scan from the
// first '{', a line-range scan between the first line starting with '{'
// and the first subsequent line ending with '}', and finally repair of
// the brace-scan candidate. Returns false when nothing parseable is
// found; callers then fall back to treating the output as prose.
func ExtractJSON(output string) (*AnalysisPayload, bool) {
	if candidate, ok := braceScan(output); ok {
		if payload, ok := parse(candidate); ok {
			return payload, true
		}
		if repaired, err := jsonrepair.JSONRepair(candidate); err == nil {
			if payload, ok := parse(repaired); ok {
				return payload, true
			}
		}
	}

	if candidate, ok := lineScan(output); ok {
		if payload, ok := parse(candidate); ok {
			return payload, true
		}
		if repaired, err := jsonrepair.JSONRepair(candidate); err == nil {
			if payload, ok := parse(repaired); ok {
				return payload, true
			}
		}
	}

	return nil, false
}

func parse(candidate string) (*AnalysisPayload, bool) {
	var payload AnalysisPayload
	if err := json.Unmarshal([]byte(candidate), &payload); err != nil {
		return nil, false
	}
	if payload.Title == "" && payload.Description == "" {
		return nil, false
	}
	return &payload, true
}

// braceScan returns the first balanced {...} region, tracking string
// literals and escapes so braces inside values don't end the object
// early.
func braceScan(output string) (string, bool) {
	start := strings.IndexByte(output, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(output); i++ {
		c := output[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return output[start : i+1], true
				}
			}
		}
	}

	// Unbalanced: return the tail so the repair pass can complete it.
	return output[start:], true
}

// lineScan collects the lines between the first line starting with '{'
// and the first subsequent line ending with '}'.
func lineScan(output string) (string, bool) {
	lines := strings.Split(output, "\n")
	start := -1
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if start == -1 && strings.HasPrefix(trimmed, "{") {
			start = i
		}
		if start != -1 && strings.HasSuffix(trimmed, "}") {
			return strings.Join(lines[start:i+1], "\n"), true
		}
	}
	return "", false
}
