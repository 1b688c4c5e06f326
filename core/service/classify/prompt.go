// Package classify implements LLM email classification with a deterministic
// keyword fallback.
package classify

import (
	"fmt"
	"strings"
	"time"

	"inboxpilot/core/domain"
)

// bodyPromptLimit caps how much body text goes into the user prompt. Longer
// bodies are hard-truncated, not summarized.
const bodyPromptLimit = 2000

// systemPrompt is invariant across calls; it enumerates the category and
// priority sets and pins the response template the parser expects.
var systemPrompt = buildSystemPrompt()

func buildSystemPrompt() string {
	var categories strings.Builder
	for _, c := range domain.Categories {
		fmt.Fprintf(&categories, "- %s: %s\n", c, domain.CategoryDescriptions[c])
	}

	var priorities strings.Builder
	for _, p := range domain.Priorities {
		fmt.Fprintf(&priorities, "- %s: %s\n", p, domain.PriorityDescriptions[p])
	}

	return fmt.Sprintf(`You are an AI email assistant that helps users manage their inbox by classifying emails.

Available categories:
%s
Priority levels:
%s
For each email, provide:
1. Category: The most appropriate category from the list above
2. Priority: The priority level (high, medium, low)
3. Reasoning: A brief explanation of your classification
4. Suggested Actions: 1-3 actions the user might want to take

Format your response like this:
Category: [CATEGORY]
Priority: [PRIORITY]
Reasoning: [YOUR_REASONING]
Suggested Actions:
- [ACTION 1]
- [ACTION 2]`, categories.String(), priorities.String())
}

// buildUserPrompt renders one email for classification.
func buildUserPrompt(email *domain.Email) string {
	subject := email.Subject
	if subject == "" {
		subject = "(No subject)"
	}
	from := email.From
	if from == "" {
		from = "Unknown sender"
	}
	to := email.To
	if to == "" {
		to = "Unknown recipient"
	}
	date := "Unknown date"
	if !email.Date.IsZero() {
		date = email.Date.Format(time.RFC3339)
	}
	labels := "None"
	if len(email.Labels) > 0 {
		labels = strings.Join(email.Labels, ", ")
	}
	body := email.Body
	if body == "" {
		body = "(No body content)"
	}
	if len(body) > bodyPromptLimit {
		body = body[:bodyPromptLimit]
	}

	return fmt.Sprintf("Subject: %s\nFrom: %s\nTo: %s\nDate: %s\nLabels: %s\n\n%s",
		subject, from, to, date, labels, body)
}
