// Package domain holds the core entities of the ingestion pipeline.
package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound marks an empty query result. Callers treat this as a normal
// terminal state, unlike a connection-level error.
var ErrNotFound = errors.New("not found")

// Email is the canonical representation of one mailbox message for one user.
// (UserID, GmailID) is unique; re-ingesting the same provider id updates the
// stored row instead of duplicating it.
type Email struct {
	ID       int64     `json:"id" db:"id"`
	UserID   uuid.UUID `json:"user_id" db:"user_id"`
	GmailID  string    `json:"gmail_id" db:"gmail_id"`
	ThreadID string    `json:"thread_id" db:"thread_id"`

	Subject string `json:"subject" db:"subject"`
	From    string `json:"from" db:"from_address"`
	To      string `json:"to" db:"to_address"`
	Cc      string `json:"cc,omitempty" db:"cc_address"`
	Bcc     string `json:"bcc,omitempty" db:"bcc_address"`

	Date    time.Time `json:"date" db:"email_date"`
	Snippet string    `json:"snippet" db:"snippet"`
	Body    string    `json:"body" db:"body"`

	Labels []string `json:"labels" db:"labels"`

	// Flags derived from label membership at normalization time.
	IsRead    bool `json:"is_read" db:"is_read"`
	IsStarred bool `json:"is_starred" db:"is_starred"`
	IsDraft   bool `json:"is_draft" db:"is_draft"`
	IsSpam    bool `json:"is_spam" db:"is_spam"`
	IsTrash   bool `json:"is_trash" db:"is_trash"`

	Attachments []Attachment `json:"attachments,omitempty" db:"-"`

	ProcessedAt time.Time `json:"processed_at" db:"processed_at"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// HasLabel reports label membership.
func (e *Email) HasLabel(label string) bool {
	for _, l := range e.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// Attachment is a reference to a provider-held attachment. It is owned by its
// email and removed with it (ON DELETE CASCADE).
type Attachment struct {
	ID           int64     `json:"id" db:"id"`
	EmailID      int64     `json:"email_id" db:"email_id"`
	AttachmentID string    `json:"attachment_id" db:"attachment_id"`
	FileName     string    `json:"file_name" db:"file_name"`
	MimeType     string    `json:"mime_type" db:"mime_type"`
	SizeBytes    int64     `json:"size_bytes" db:"size_bytes"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// ProcessedEmail is the denormalized record the queue consumer writes into the
// fast-store mirror for dashboard reads.
type ProcessedEmail struct {
	GmailID     string    `json:"gmail_id"`
	UserID      uuid.UUID `json:"user_id"`
	ThreadID    string    `json:"thread_id"`
	Subject     string    `json:"subject"`
	Sender      string    `json:"sender"`
	To          string    `json:"to"`
	Date        time.Time `json:"date"`
	Body        string    `json:"body"`
	Preview     string    `json:"preview"`
	Unread      bool      `json:"unread"`
	Category    Category  `json:"category"`
	Priority    Priority  `json:"priority"`
	Confidence  float64   `json:"confidence"`
	Reasoning   string    `json:"reasoning"`
	ProcessedAt time.Time `json:"processed_at"`
}

// EmailFilter narrows dashboard list queries.
type EmailFilter struct {
	Category Category
	Search   string
}

// EmailPage is a pagination window, 1-based.
type EmailPage struct {
	Page     int
	PageSize int
}

// Offset returns the row offset for the window.
func (p EmailPage) Offset() int {
	page := p.Page
	if page < 1 {
		page = 1
	}
	return (page - 1) * p.PageSize
}
