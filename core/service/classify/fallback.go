package classify

import (
	"strings"

	"inboxpilot/core/domain"
)

// fallbackConfidence is the fixed score for keyword-based classification.
const fallbackConfidence = 0.7

// fallbackRule is one entry of the keyword decision list.
type fallbackRule struct {
	match            func(subject, body, sender string, email *domain.Email) bool
	category         domain.Category
	priority         domain.Priority
	reasoning        string
	suggestedActions []string
}

// fallbackRules is an ordered decision list; the first matching rule wins.
// The order is a priority cascade: a message matching both the urgent and
// follow-up rules must classify as URGENT. Do not reorder.
var fallbackRules = []fallbackRule{
	{
		match: func(subject, body, _ string, _ *domain.Email) bool {
			return strings.Contains(subject, "urgent") || strings.Contains(body, "urgent") ||
				strings.Contains(subject, "asap")
		},
		category:  domain.CategoryUrgent,
		priority:  domain.PriorityHigh,
		reasoning: "Email contains urgent keywords",
		suggestedActions: []string{
			"Respond as soon as possible",
			"Mark as done when complete",
		},
	},
	{
		match: func(subject, body, _ string, _ *domain.Email) bool {
			return strings.Contains(subject, "action required") || strings.Contains(body, "please respond") ||
				strings.Contains(body, "let me know") || strings.Contains(body, "need your input")
		},
		category:  domain.CategoryActionRequired,
		priority:  domain.PriorityMedium,
		reasoning: "Email requires a response or action",
		suggestedActions: []string{
			"Respond within 24 hours",
			"Add to task list if needed",
		},
	},
	{
		match: func(subject, body, _ string, _ *domain.Email) bool {
			return strings.Contains(subject, "follow up") || strings.Contains(body, "follow up") ||
				strings.Contains(subject, "following up") || strings.Contains(body, "following up")
		},
		category:  domain.CategoryFollowUp,
		priority:  domain.PriorityMedium,
		reasoning: "Email is a follow-up to a previous conversation",
		suggestedActions: []string{
			"Check previous conversation",
			"Respond with update",
		},
	},
	{
		match: func(subject, body, sender string, _ *domain.Email) bool {
			return strings.Contains(sender, "newsletter") || strings.Contains(sender, "promo") ||
				strings.Contains(subject, "sale") || strings.Contains(subject, "discount") ||
				strings.Contains(subject, "offer") || strings.Contains(body, "unsubscribe")
		},
		category:  domain.CategoryPromotional,
		priority:  domain.PriorityLow,
		reasoning: "Email appears to be promotional",
		suggestedActions: []string{
			"Unsubscribe if not interested",
			"Move to promotions folder",
		},
	},
	{
		match: func(subject, _, sender string, _ *domain.Email) bool {
			return strings.Contains(sender, "linkedin") || strings.Contains(sender, "twitter") ||
				strings.Contains(sender, "facebook") || strings.Contains(sender, "instagram") ||
				strings.Contains(sender, "social") || strings.Contains(subject, "connection")
		},
		category:         domain.CategorySocial,
		priority:         domain.PriorityLow,
		reasoning:        "Email is a social media notification",
		suggestedActions: []string{"Review when you have free time"},
	},
	{
		match: func(subject, body, _ string, email *domain.Email) bool {
			return email.HasLabel("SPAM") || email.HasLabel("JUNK") ||
				strings.Contains(subject, "viagra") || strings.Contains(subject, "lottery") ||
				strings.Contains(subject, "$$$") || strings.Contains(body, "$$$")
		},
		category:         domain.CategorySpam,
		priority:         domain.PriorityLow,
		reasoning:        "Email appears to be spam",
		suggestedActions: []string{"Mark as spam", "Delete"},
	},
}

// FallbackClassify classifies one email with the keyword decision list. It is
// pure over lowercased subject/body/sender text and never fails.
func FallbackClassify(email *domain.Email) domain.Classification {
	subject := strings.ToLower(email.Subject)
	body := strings.ToLower(email.Body)
	sender := strings.ToLower(email.From)

	result := domain.Classification{
		EmailID:          email.ID,
		GmailID:          email.GmailID,
		UserID:           email.UserID,
		Category:         defaultCategory,
		Priority:         defaultPriority,
		ConfidenceScore:  fallbackConfidence,
		Reasoning:        "Basic classification based on keywords",
		SuggestedActions: []string{"Review when you have time"},
	}

	for _, rule := range fallbackRules {
		if rule.match(subject, body, sender, email) {
			result.Category = rule.category
			result.Priority = rule.priority
			result.Reasoning = rule.reasoning
			result.SuggestedActions = rule.suggestedActions
			break
		}
	}

	return result
}
