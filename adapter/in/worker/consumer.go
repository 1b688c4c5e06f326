// Package worker runs the background queue consumer.
package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"inboxpilot/core/domain"
	"inboxpilot/core/port/out"
)

const (
	defaultIdleSleep = time.Second
	previewLength    = 100
)

// Consumer drains the work queue and materializes each job into the fast-store
// mirror. Delivery is at-least-once: the processing-set lock keeps two
// consumers off the same job, and a re-delivered job under the same identity
// is skipped while its lock is held.
type Consumer struct {
	queue     out.WorkQueue
	processed out.ProcessedStore
	log       zerolog.Logger

	consumerID string
	idleSleep  time.Duration
}

// ConsumerConfig holds consumer configuration.
type ConsumerConfig struct {
	ConsumerID string
	IdleSleep  time.Duration
	Logger     zerolog.Logger
}

func NewConsumer(queue out.WorkQueue, processed out.ProcessedStore, cfg *ConsumerConfig) *Consumer {
	idleSleep := cfg.IdleSleep
	if idleSleep == 0 {
		idleSleep = defaultIdleSleep
	}

	return &Consumer{
		queue:      queue,
		processed:  processed,
		log:        cfg.Logger,
		consumerID: cfg.ConsumerID,
		idleSleep:  idleSleep,
	}
}

// Run polls the queue until the context is cancelled. Job failures are logged
// and do not stop the loop.
func (c *Consumer) Run(ctx context.Context) error {
	c.log.Info().
		Str("consumer", c.consumerID).
		Msg("starting queue consumer")

	for {
		select {
		case <-ctx.Done():
			c.log.Info().Str("consumer", c.consumerID).Msg("consumer stopping")
			return ctx.Err()
		default:
		}

		job, err := c.queue.Dequeue(ctx)
		if err != nil {
			c.log.Error().Err(err).Msg("error dequeuing job")
			c.sleep(ctx)
			continue
		}
		if job == nil {
			c.sleep(ctx)
			continue
		}

		if err := c.processJob(ctx, job); err != nil {
			c.log.Error().
				Err(err).
				Str("job", job.Timestamp).
				Str("user_id", job.UserID.String()).
				Msg("error processing job")
		}
	}
}

func (c *Consumer) sleep(ctx context.Context) {
	select {
	case <-time.After(c.idleSleep):
	case <-ctx.Done():
	}
}

func (c *Consumer) processJob(ctx context.Context, job *domain.QueueJob) error {
	locked, err := c.queue.IsLocked(ctx, job.Timestamp)
	if err != nil {
		return err
	}
	if locked {
		c.log.Warn().
			Str("job", job.Timestamp).
			Msg("job already being processed, skipping")
		return nil
	}

	if err := c.queue.Lock(ctx, job.Timestamp); err != nil {
		return err
	}
	defer func() {
		if err := c.queue.Unlock(context.WithoutCancel(ctx), job.Timestamp); err != nil {
			c.log.Error().Err(err).Str("job", job.Timestamp).Msg("error unlocking job")
		}
	}()

	mirrored := 0
	for i := range job.Emails {
		email := &job.Emails[i]

		var cls *domain.Classification
		if i < len(job.Classifications) {
			cls = &job.Classifications[i]
		}

		record := buildProcessedRecord(email, cls)
		if err := c.processed.Put(ctx, record); err != nil {
			c.log.Error().
				Err(err).
				Str("gmail_id", email.GmailID).
				Msg("error mirroring email")
			continue
		}
		mirrored++
	}

	c.log.Info().
		Str("job", job.Timestamp).
		Str("user_id", job.UserID.String()).
		Int("mirrored", mirrored).
		Int("total", len(job.Emails)).
		Msg("job processed")
	return nil
}

// buildProcessedRecord flattens an email and its classification into the
// mirror record. A missing classification leaves the verdict fields empty
// rather than dropping the email from the dashboard.
func buildProcessedRecord(email *domain.Email, cls *domain.Classification) *domain.ProcessedEmail {
	record := &domain.ProcessedEmail{
		GmailID:     email.GmailID,
		UserID:      email.UserID,
		ThreadID:    email.ThreadID,
		Subject:     email.Subject,
		Sender:      email.From,
		To:          email.To,
		Date:        email.Date,
		Body:        email.Body,
		Preview:     preview(email.Body),
		Unread:      !email.IsRead,
		ProcessedAt: email.ProcessedAt,
	}
	if cls != nil {
		record.Category = cls.Category
		record.Priority = cls.Priority
		record.Confidence = cls.ConfidenceScore
		record.Reasoning = cls.Reasoning
		record.ProcessedAt = cls.ProcessedAt
	}
	return record
}

func preview(body string) string {
	if len(body) <= previewLength {
		return body
	}
	return body[:previewLength]
}
