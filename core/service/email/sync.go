package email

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"inboxpilot/core/domain"
	"inboxpilot/core/port/out"
	"inboxpilot/pkg/logger"
)

// SyncService reconciles the fast-store mirror back into Postgres. The mirror
// can run ahead of the canonical store when a scan crashed between the mirror
// write and the Postgres commit; sync closes that gap.
type SyncService struct {
	repo      out.EmailRepository
	processed out.ProcessedStore
	log       *logger.Logger
}

func NewSyncService(repo out.EmailRepository, processed out.ProcessedStore, log *logger.Logger) *SyncService {
	return &SyncService{
		repo:      repo,
		processed: processed,
		log:       log,
	}
}

// SyncResult reports what one reconciliation pass did.
type SyncResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
}

// Sync walks the user's mirror and writes each record into Postgres: inserted
// when absent, updated when the mirror's processed_at is strictly newer, and
// skipped otherwise. A per-record failure is logged and counted as skipped.
func (s *SyncService) Sync(ctx context.Context, userID uuid.UUID) (*SyncResult, error) {
	mirrored, err := s.processed.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{}
	for i := range mirrored {
		m := &mirrored[i]

		existing, err := s.repo.GetByGmailID(ctx, userID, m.GmailID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			if err := s.upsert(ctx, m); err != nil {
				s.log.WithError(err).WithField("gmail_id", m.GmailID).Warn("sync insert failed")
				result.Skipped++
				continue
			}
			result.Inserted++
		case err != nil:
			return nil, err
		case m.ProcessedAt.After(existing.ProcessedAt):
			if err := s.upsert(ctx, m); err != nil {
				s.log.WithError(err).WithField("gmail_id", m.GmailID).Warn("sync update failed")
				result.Skipped++
				continue
			}
			result.Updated++
		default:
			result.Skipped++
		}
	}

	s.log.WithFields(map[string]any{
		"user_id":  userID.String(),
		"inserted": result.Inserted,
		"updated":  result.Updated,
		"skipped":  result.Skipped,
	}).Info("mirror sync completed")
	return result, nil
}

func (s *SyncService) upsert(ctx context.Context, m *domain.ProcessedEmail) error {
	_, err := s.repo.UpsertEmails(ctx, []domain.Email{{
		UserID:      m.UserID,
		GmailID:     m.GmailID,
		ThreadID:    m.ThreadID,
		Subject:     m.Subject,
		From:        m.Sender,
		To:          m.To,
		Date:        m.Date,
		Body:        m.Body,
		Snippet:     m.Preview,
		IsRead:      !m.Unread,
		ProcessedAt: m.ProcessedAt,
	}})
	return err
}
