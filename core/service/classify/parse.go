package classify

import (
	"regexp"
	"strings"

	"inboxpilot/core/domain"
)

// Defaults applied when a section is missing or outside the enumerated sets.
const (
	defaultCategory  = domain.CategoryReference
	defaultPriority  = domain.PriorityLow
	defaultReasoning = "Unable to determine classification"
)

var defaultActions = []string{"Review email content"}

// confidenceRefLength normalizes response length in the confidence blend.
const confidenceRefLength = 100

var (
	categoryRe  = regexp.MustCompile(`(?i)Category:\s*([A-Z_]+)`)
	priorityRe  = regexp.MustCompile(`(?i)Priority:\s*([a-z]+)`)
	reasoningRe = regexp.MustCompile(`(?i)Reasoning:([\s\S]*?)(?:\n\w[\w ]*:|$)`)
	actionsRe   = regexp.MustCompile(`(?i)Suggested Actions:([\s\S]*?)(?:\n\w[\w ]*:|$)`)
	bulletRe    = regexp.MustCompile(`^\s*-\s*`)
)

// ParsedResponse is the structured form of one LLM completion. Parsed is false
// when none of the expected sections matched; all fields carry defaults in
// that case rather than an error, so callers never throw on model output.
type ParsedResponse struct {
	Parsed           bool
	Category         domain.Category
	Priority         domain.Priority
	Reasoning        string
	SuggestedActions []string
	Confidence       float64
}

// ParseResponse extracts the classification sections from a free-text
// completion with tolerant line-prefix matching. Sections may appear in any
// order and may be surrounded by extra prose; an individual section that fails
// to parse falls back to its default without affecting the others.
func ParseResponse(content string) ParsedResponse {
	result := ParsedResponse{
		Category:         defaultCategory,
		Priority:         defaultPriority,
		Reasoning:        defaultReasoning,
		SuggestedActions: defaultActions,
	}

	sections := 0

	if m := categoryRe.FindStringSubmatch(content); m != nil {
		sections++
		if c := domain.Category(strings.ToUpper(m[1])); c.Valid() {
			result.Category = c
		}
	}

	if m := priorityRe.FindStringSubmatch(content); m != nil {
		sections++
		if p := domain.Priority(strings.ToLower(m[1])); p.Valid() {
			result.Priority = p
		}
	}

	if m := reasoningRe.FindStringSubmatch(content); m != nil {
		sections++
		if reasoning := strings.TrimSpace(m[1]); reasoning != "" {
			result.Reasoning = reasoning
		}
	}

	if m := actionsRe.FindStringSubmatch(content); m != nil {
		sections++
		var actions []string
		for _, line := range strings.Split(m[1], "\n") {
			action := strings.TrimSpace(bulletRe.ReplaceAllString(line, ""))
			if action != "" {
				actions = append(actions, action)
			}
		}
		if len(actions) > 0 {
			result.SuggestedActions = actions
		}
	}

	result.Parsed = sections > 0
	result.Confidence = confidenceScore(content, sections)
	return result
}

// confidenceScore blends section completeness (70%) with response length
// against a 100-character reference (30%), capped at 1.0.
func confidenceScore(content string, sectionsPresent int) float64 {
	baseScore := float64(sectionsPresent) / 4.0
	lengthScore := float64(len(content)) / confidenceRefLength
	if lengthScore > 1 {
		lengthScore = 1
	}
	score := baseScore*0.7 + lengthScore*0.3
	if score > 1 {
		score = 1
	}
	return score
}
