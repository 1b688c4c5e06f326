package domain

import (
	"time"

	"github.com/google/uuid"
)

// Category is the fixed classification category set.
type Category string

const (
	CategoryUrgent         Category = "URGENT"
	CategoryActionRequired Category = "ACTION_REQUIRED"
	CategoryFollowUp       Category = "FOLLOW_UP"
	CategoryReference      Category = "REFERENCE"
	CategoryPromotional    Category = "PROMOTIONAL"
	CategorySocial         Category = "SOCIAL"
	CategorySpam           Category = "SPAM"
)

// Categories lists every category in prompt order.
var Categories = []Category{
	CategoryUrgent,
	CategoryActionRequired,
	CategoryFollowUp,
	CategoryReference,
	CategoryPromotional,
	CategorySocial,
	CategorySpam,
}

// CategoryDescriptions feed the classifier system prompt.
var CategoryDescriptions = map[Category]string{
	CategoryUrgent:         "Requires immediate attention (e.g., time-sensitive requests, critical issues)",
	CategoryActionRequired: "Needs a response or action (e.g., questions, requests, tasks)",
	CategoryFollowUp:       "Follow-up required (e.g., waiting for response, pending actions)",
	CategoryReference:      "For reference only (e.g., newsletters, updates, notifications)",
	CategoryPromotional:    "Promotional content (e.g., marketing, sales, offers)",
	CategorySocial:         "Social updates (e.g., social media, personal updates)",
	CategorySpam:           "Unwanted or unsolicited emails",
}

// Valid reports whether c is a member of the fixed category set.
func (c Category) Valid() bool {
	_, ok := CategoryDescriptions[c]
	return ok
}

// Priority is the three-level priority scale.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Priorities lists every priority in prompt order.
var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

// PriorityDescriptions feed the classifier system prompt.
var PriorityDescriptions = map[Priority]string{
	PriorityHigh:   "Requires immediate attention",
	PriorityMedium: "Important but not urgent",
	PriorityLow:    "Can be addressed later",
}

// Valid reports whether p is one of high/medium/low.
func (p Priority) Valid() bool {
	_, ok := PriorityDescriptions[p]
	return ok
}

// Classification is the current classification of one email. At most one row
// exists per email; re-classification overwrites only with a strictly newer
// ProcessedAt.
type Classification struct {
	ID               int64     `json:"id" db:"id"`
	EmailID          int64     `json:"email_id" db:"email_id"`
	GmailID          string    `json:"gmail_id" db:"gmail_id"`
	UserID           uuid.UUID `json:"user_id" db:"user_id"`
	Category         Category  `json:"category" db:"category"`
	Priority         Priority  `json:"priority" db:"priority"`
	ConfidenceScore  float64   `json:"confidence_score" db:"confidence_score"`
	Reasoning        string    `json:"reasoning" db:"reasoning"`
	SuggestedActions []string  `json:"suggested_actions" db:"suggested_actions"`
	ProcessedAt      time.Time `json:"processed_at" db:"processed_at"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}
