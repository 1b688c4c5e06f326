package out

import (
	"context"

	"github.com/google/uuid"

	"inboxpilot/core/domain"
)

// EmailRepository is the persistence gateway for emails and classifications.
//
// List calls return domain.ErrNotFound-free empty slices for empty results;
// a non-nil error always means the store itself failed.
type EmailRepository interface {
	// UpsertEmails bulk-upserts by (user_id, gmail_id) and returns the stored
	// row ids, index-aligned with the input.
	UpsertEmails(ctx context.Context, emails []domain.Email) ([]int64, error)

	// UpsertClassifications bulk-upserts by email_id, overwriting only when
	// the incoming processed_at is strictly newer.
	UpsertClassifications(ctx context.Context, classifications []domain.Classification) ([]int64, error)

	// GetByGmailID returns domain.ErrNotFound when no row matches.
	GetByGmailID(ctx context.Context, userID uuid.UUID, gmailID string) (*domain.Email, error)

	// ListEmails returns one page ordered by processed_at descending, plus
	// the unpaginated total.
	ListEmails(ctx context.Context, userID uuid.UUID, filter domain.EmailFilter, page domain.EmailPage) ([]domain.Email, int, error)
}

// ProgressRepository tracks per-step onboarding status.
type ProgressRepository interface {
	// Init creates one pending record per onboarding step. Re-initializing an
	// already-onboarded user is a no-op.
	Init(ctx context.Context, userID uuid.UUID) error

	Update(ctx context.Context, userID uuid.UUID, step domain.StepName, status domain.StepStatus, percent int, errMsg string, metadata map[string]any) error

	Get(ctx context.Context, userID uuid.UUID) ([]domain.ProgressRecord, error)
}

// WorkQueue is the durable at-least-once FIFO between the orchestrator and the
// background consumer. The processing-set lock is the only cross-consumer
// concurrency control: a consumer that crashes while holding a lock strands
// that job until an operator clears the set.
type WorkQueue interface {
	Enqueue(ctx context.Context, job *domain.QueueJob) error

	// Dequeue pops the oldest job, or (nil, nil) when the queue is empty.
	Dequeue(ctx context.Context) (*domain.QueueJob, error)

	IsLocked(ctx context.Context, jobID string) (bool, error)
	Lock(ctx context.Context, jobID string) error
	Unlock(ctx context.Context, jobID string) error
}

// ProcessedStore is the fast-store mirror the dashboard reads from. Reads
// degrade to empty results at the service layer when the store is down.
type ProcessedStore interface {
	Put(ctx context.Context, email *domain.ProcessedEmail) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.ProcessedEmail, error)
}
