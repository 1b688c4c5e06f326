package classify

import (
	"testing"

	"inboxpilot/core/domain"
)

func TestFallbackClassify(t *testing.T) {
	tests := []struct {
		name     string
		email    domain.Email
		category domain.Category
		priority domain.Priority
	}{
		{
			name:     "urgent keyword in subject",
			email:    domain.Email{Subject: "URGENT: server down"},
			category: domain.CategoryUrgent,
			priority: domain.PriorityHigh,
		},
		{
			name:     "asap in subject",
			email:    domain.Email{Subject: "need this ASAP"},
			category: domain.CategoryUrgent,
			priority: domain.PriorityHigh,
		},
		{
			name:     "urgent keyword in body",
			email:    domain.Email{Subject: "status", Body: "this is urgent, please look"},
			category: domain.CategoryUrgent,
			priority: domain.PriorityHigh,
		},
		{
			name:     "action required in subject",
			email:    domain.Email{Subject: "Action Required: confirm your account"},
			category: domain.CategoryActionRequired,
			priority: domain.PriorityMedium,
		},
		{
			name:     "please respond in body",
			email:    domain.Email{Subject: "question", Body: "Please respond by Friday"},
			category: domain.CategoryActionRequired,
			priority: domain.PriorityMedium,
		},
		{
			name:     "following up",
			email:    domain.Email{Subject: "Following up on our call"},
			category: domain.CategoryFollowUp,
			priority: domain.PriorityMedium,
		},
		{
			name:     "newsletter sender",
			email:    domain.Email{From: "newsletter@shop.example.com", Subject: "This week's picks"},
			category: domain.CategoryPromotional,
			priority: domain.PriorityLow,
		},
		{
			name:     "unsubscribe footer",
			email:    domain.Email{Subject: "Weekly digest", Body: "Click here to unsubscribe"},
			category: domain.CategoryPromotional,
			priority: domain.PriorityLow,
		},
		{
			name:     "linkedin sender",
			email:    domain.Email{From: "notifications@linkedin.com", Subject: "You appeared in searches"},
			category: domain.CategorySocial,
			priority: domain.PriorityLow,
		},
		{
			name:     "spam label",
			email:    domain.Email{Subject: "hello", Labels: []string{"SPAM"}},
			category: domain.CategorySpam,
			priority: domain.PriorityLow,
		},
		{
			name:     "money spam in body",
			email:    domain.Email{Subject: "hi", Body: "win $$$ today"},
			category: domain.CategorySpam,
			priority: domain.PriorityLow,
		},
		{
			name:     "no keywords",
			email:    domain.Email{Subject: "Meeting notes", Body: "Attached are the notes from today."},
			category: domain.CategoryReference,
			priority: domain.PriorityLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FallbackClassify(&tt.email)
			if got.Category != tt.category {
				t.Errorf("Category = %s, want %s", got.Category, tt.category)
			}
			if got.Priority != tt.priority {
				t.Errorf("Priority = %s, want %s", got.Priority, tt.priority)
			}
			if got.ConfidenceScore != fallbackConfidence {
				t.Errorf("ConfidenceScore = %v, want %v", got.ConfidenceScore, fallbackConfidence)
			}
			if got.Reasoning == "" || len(got.SuggestedActions) == 0 {
				t.Errorf("missing reasoning or actions: %+v", got)
			}
		})
	}
}

// A message matching several rules must take the earliest one.
func TestFallbackClassifyCascadeOrder(t *testing.T) {
	email := domain.Email{
		Subject: "Urgent: following up on the discount offer",
		Body:    "Please respond, or unsubscribe below.",
		From:    "newsletter@promo.example.com",
	}
	got := FallbackClassify(&email)
	if got.Category != domain.CategoryUrgent {
		t.Errorf("Category = %s, want %s", got.Category, domain.CategoryUrgent)
	}
	if got.Priority != domain.PriorityHigh {
		t.Errorf("Priority = %s, want %s", got.Priority, domain.PriorityHigh)
	}
}

func TestFallbackClassifyCarriesIdentity(t *testing.T) {
	email := domain.Email{ID: 42, GmailID: "msg-42", Subject: "notes"}
	got := FallbackClassify(&email)
	if got.EmailID != 42 || got.GmailID != "msg-42" {
		t.Errorf("identity not carried: %+v", got)
	}
}
