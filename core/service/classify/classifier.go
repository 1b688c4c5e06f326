package classify

import (
	"context"
	"sync"
	"time"

	"inboxpilot/core/domain"
	"inboxpilot/core/llm"
	"inboxpilot/pkg/logger"
)

const (
	defaultBatchSize = 5
	defaultParallel  = 5
)

// Classifier assigns a category and priority to scanned emails. The LLM is
// the primary path; any per-message completion or parse failure degrades to
// the keyword fallback, so a batch always yields one classification per
// input email.
type Classifier struct {
	client    llm.CompletionClient
	batchSize int
	parallel  int
	log       *logger.Logger
	now       func() time.Time
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithBatchSize sets the number of emails per sub-batch.
func WithBatchSize(n int) Option {
	return func(c *Classifier) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithParallel caps concurrent completion calls within a sub-batch.
func WithParallel(n int) Option {
	return func(c *Classifier) {
		if n > 0 {
			c.parallel = n
		}
	}
}

// WithClock overrides the processed-at timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Classifier) { c.now = now }
}

func NewClassifier(client llm.CompletionClient, log *logger.Logger, opts ...Option) *Classifier {
	c := &Classifier{
		client:    client,
		batchSize: defaultBatchSize,
		parallel:  defaultParallel,
		log:       log,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ClassifyBatch classifies every email and returns results in input order.
// Each sub-batch runs its completion calls concurrently; results are written
// back by index so an out-of-order finish cannot mismatch email and verdict.
func (c *Classifier) ClassifyBatch(ctx context.Context, emails []*domain.Email) []domain.Classification {
	results := make([]domain.Classification, len(emails))

	for start := 0; start < len(emails); start += c.batchSize {
		end := start + c.batchSize
		if end > len(emails) {
			end = len(emails)
		}

		var wg sync.WaitGroup
		sem := make(chan struct{}, c.parallel)
		for i := start; i < end; i++ {
			wg.Add(1)
			sem <- struct{}{}
			go func(i int) {
				defer wg.Done()
				defer func() { <-sem }()
				results[i] = c.classifyOne(ctx, emails[i])
			}(i)
		}
		wg.Wait()
	}

	return results
}

// classifyOne runs the LLM path for a single email, degrading to the keyword
// fallback when the completion call fails.
func (c *Classifier) classifyOne(ctx context.Context, email *domain.Email) domain.Classification {
	content, err := c.client.CompleteWithSystem(ctx, systemPrompt, buildUserPrompt(email))
	if err != nil {
		c.log.WithError(err).WithField("gmail_id", email.GmailID).
			Warn("completion failed, using keyword fallback")
		result := FallbackClassify(email)
		result.ProcessedAt = c.now().UTC()
		return result
	}

	parsed := ParseResponse(content)
	return domain.Classification{
		EmailID:          email.ID,
		GmailID:          email.GmailID,
		UserID:           email.UserID,
		Category:         parsed.Category,
		Priority:         parsed.Priority,
		ConfidenceScore:  parsed.Confidence,
		Reasoning:        parsed.Reasoning,
		SuggestedActions: parsed.SuggestedActions,
		ProcessedAt:      c.now().UTC(),
	}
}
