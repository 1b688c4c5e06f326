// Package email serves dashboard read paths over the canonical store and the
// fast-store mirror.
package email

import (
	"context"

	"github.com/google/uuid"

	"inboxpilot/core/domain"
	"inboxpilot/core/port/out"
	"inboxpilot/pkg/logger"
)

// Service answers dashboard queries. Canonical reads go to Postgres;
// processed reads go to the Redis mirror and degrade to empty results when
// the mirror is unreachable, keeping the dashboard up during a Redis outage.
type Service struct {
	repo      out.EmailRepository
	processed out.ProcessedStore
	log       *logger.Logger
}

func NewService(repo out.EmailRepository, processed out.ProcessedStore, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		processed: processed,
		log:       log,
	}
}

// ListEmails returns one page from the canonical store plus the unpaginated
// total.
func (s *Service) ListEmails(ctx context.Context, userID uuid.UUID, filter domain.EmailFilter, page domain.EmailPage) ([]domain.Email, int, error) {
	if page.Page < 1 {
		page.Page = 1
	}
	if page.PageSize < 1 || page.PageSize > 100 {
		page.PageSize = 20
	}
	return s.repo.ListEmails(ctx, userID, filter, page)
}

// GetProcessedEmails reads the mirror. A mirror failure is logged and
// reported as an empty result, never as an error; the caller cannot tell an
// idle user from a down mirror, which is the accepted cost of the fast path.
func (s *Service) GetProcessedEmails(ctx context.Context, userID uuid.UUID) []domain.ProcessedEmail {
	emails, err := s.processed.ListByUser(ctx, userID)
	if err != nil {
		s.log.WithError(err).WithField("user_id", userID.String()).
			Warn("mirror read failed, serving empty result")
		return []domain.ProcessedEmail{}
	}
	if emails == nil {
		return []domain.ProcessedEmail{}
	}
	return emails
}
