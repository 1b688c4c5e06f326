package domain

import (
	"time"

	"github.com/google/uuid"
)

// QueueJob hands one scan's output to the asynchronous consumer. Timestamp is
// the job identity and the dedup key for the processing-set lock. Emails and
// Classifications are index-aligned.
type QueueJob struct {
	UserID          uuid.UUID        `json:"user_id"`
	Emails          []Email          `json:"emails"`
	Classifications []Classification `json:"classifications"`
	Timestamp       string           `json:"timestamp"`
}

// NewQueueJob stamps a job with its identity.
func NewQueueJob(userID uuid.UUID, emails []Email, classifications []Classification) *QueueJob {
	return &QueueJob{
		UserID:          userID,
		Emails:          emails,
		Classifications: classifications,
		Timestamp:       time.Now().UTC().Format(time.RFC3339Nano),
	}
}
