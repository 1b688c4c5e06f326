// Package pipeline drives one inbox scan end to end: fetch, normalize,
// classify, persist, enqueue.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"inboxpilot/core/domain"
	"inboxpilot/core/port/out"
	"inboxpilot/core/service/classify"
	"inboxpilot/core/service/scan"
	"inboxpilot/pkg/logger"
)

const defaultMaxResults = 100

// Orchestrator runs the scan pipeline for one user at a time. Each stage
// reports into the progress tracker; a stage failure marks its step failed
// and aborts the run without rolling back earlier stages.
type Orchestrator struct {
	tokens     out.TokenStore
	provider   out.MailProvider
	normalizer *scan.Normalizer
	classifier *classify.Classifier
	repo       out.EmailRepository
	progress   out.ProgressRepository
	queue      out.WorkQueue
	log        *logger.Logger

	maxResults int64
	now        func() time.Time
}

// Config wires the orchestrator's collaborators.
type Config struct {
	Tokens     out.TokenStore
	Provider   out.MailProvider
	Normalizer *scan.Normalizer
	Classifier *classify.Classifier
	Repo       out.EmailRepository
	Progress   out.ProgressRepository
	Queue      out.WorkQueue
	Logger     *logger.Logger

	MaxResults int
}

func NewOrchestrator(cfg *Config) *Orchestrator {
	maxResults := int64(cfg.MaxResults)
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	return &Orchestrator{
		tokens:     cfg.Tokens,
		provider:   cfg.Provider,
		normalizer: cfg.Normalizer,
		classifier: cfg.Classifier,
		repo:       cfg.Repo,
		progress:   cfg.Progress,
		queue:      cfg.Queue,
		log:        cfg.Logger,
		maxResults: maxResults,
		now:        time.Now,
	}
}

// Run executes one scan and returns the number of emails that made it through
// the whole pipeline. Messages whose detail fetch fails are skipped, not
// counted, and do not abort the scan.
func (o *Orchestrator) Run(ctx context.Context, userID uuid.UUID) (int, error) {
	log := o.log.WithField("user_id", userID.String())

	if err := o.progress.Init(ctx, userID); err != nil {
		return 0, fmt.Errorf("init progress: %w", err)
	}

	token, err := o.connectEmail(ctx, userID)
	if err != nil {
		o.failStep(ctx, userID, domain.StepConnectEmail, err)
		return 0, err
	}

	emails, err := o.scanInbox(ctx, userID, token)
	if err != nil {
		o.failStep(ctx, userID, domain.StepScanInbox, err)
		return 0, err
	}
	log.WithField("count", len(emails)).Info("inbox scan fetched emails")

	classifications := o.classifier.ClassifyBatch(ctx, emails)

	if err := o.persist(ctx, emails, classifications); err != nil {
		o.failStep(ctx, userID, domain.StepScanInbox, err)
		return 0, err
	}

	if err := o.progress.Update(ctx, userID, domain.StepSetupDashboard, domain.StepCompleted, 100, "",
		map[string]any{"emails_processed": len(emails)}); err != nil {
		return 0, fmt.Errorf("update dashboard progress: %w", err)
	}

	if err := o.enqueue(ctx, userID, emails, classifications); err != nil {
		o.failStep(ctx, userID, domain.StepScanInbox, err)
		return 0, err
	}

	if err := o.progress.Update(ctx, userID, domain.StepScanInbox, domain.StepCompleted, 100, "",
		map[string]any{"scanned_emails": len(emails)}); err != nil {
		return 0, fmt.Errorf("update scan progress: %w", err)
	}

	log.WithField("processed", len(emails)).Info("scan pipeline completed")
	return len(emails), nil
}

// connectEmail resolves the user's stored credential and marks the connect
// step done. No credential means the user never finished OAuth.
func (o *Orchestrator) connectEmail(ctx context.Context, userID uuid.UUID) (*oauth2.Token, error) {
	if err := o.progress.Update(ctx, userID, domain.StepConnectEmail, domain.StepInProgress, 0, "", nil); err != nil {
		return nil, err
	}

	token, err := o.tokens.TokenForUser(ctx, userID.String())
	if err != nil {
		return nil, fmt.Errorf("resolve token: %w", err)
	}

	if err := o.progress.Update(ctx, userID, domain.StepConnectEmail, domain.StepCompleted, 100, "",
		map[string]any{"connection_time": o.now().UTC().Format(time.RFC3339)}); err != nil {
		return nil, err
	}
	return token, nil
}

// scanInbox pages through the mailbox up to maxResults references, fetching
// and normalizing each message. A single message's fetch failure is logged
// and skipped; a list failure aborts the stage.
func (o *Orchestrator) scanInbox(ctx context.Context, userID uuid.UUID, token *oauth2.Token) ([]*domain.Email, error) {
	if err := o.progress.Update(ctx, userID, domain.StepScanInbox, domain.StepInProgress, 0, "", nil); err != nil {
		return nil, err
	}

	var emails []*domain.Email
	fetched := int64(0)
	pageToken := ""

	for fetched < o.maxResults {
		remaining := o.maxResults - fetched
		page, err := o.provider.FetchPage(ctx, token, remaining, pageToken)
		if err != nil {
			return nil, fmt.Errorf("list messages: %w", err)
		}

		for _, ref := range page.Messages {
			if fetched >= o.maxResults {
				break
			}
			fetched++

			raw, err := o.provider.FetchMessage(ctx, token, ref.ID)
			if err != nil {
				o.log.WithError(err).WithField("gmail_id", ref.ID).
					Warn("message fetch failed, skipping")
				continue
			}

			email, ok := o.normalizer.Normalize(userID, raw)
			if !ok {
				continue
			}
			emails = append(emails, email)

			percent := int(fetched * 100 / o.maxResults)
			if percent > 99 {
				percent = 99 // completion is stamped after enqueue
			}
			if err := o.progress.Update(ctx, userID, domain.StepScanInbox, domain.StepInProgress, percent, "", nil); err != nil {
				return nil, err
			}
		}

		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	return emails, nil
}

// persist writes emails then classifications, linking the two by the returned
// row ids so a classification always points at the stored row.
func (o *Orchestrator) persist(ctx context.Context, emails []*domain.Email, classifications []domain.Classification) error {
	if len(emails) == 0 {
		return nil
	}

	rows := make([]domain.Email, len(emails))
	for i, e := range emails {
		rows[i] = *e
	}

	ids, err := o.repo.UpsertEmails(ctx, rows)
	if err != nil {
		return fmt.Errorf("persist emails: %w", err)
	}

	for i := range emails {
		emails[i].ID = ids[i]
		if i < len(classifications) {
			classifications[i].EmailID = ids[i]
		}
	}

	if _, err := o.repo.UpsertClassifications(ctx, classifications); err != nil {
		return fmt.Errorf("persist classifications: %w", err)
	}
	return nil
}

func (o *Orchestrator) enqueue(ctx context.Context, userID uuid.UUID, emails []*domain.Email, classifications []domain.Classification) error {
	if len(emails) == 0 {
		return nil
	}

	rows := make([]domain.Email, len(emails))
	for i, e := range emails {
		rows[i] = *e
	}

	job := domain.NewQueueJob(userID, rows, classifications)
	if err := o.queue.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}
	return nil
}

// failStep records a stage failure; the write itself is best effort since the
// run is already aborting.
func (o *Orchestrator) failStep(ctx context.Context, userID uuid.UUID, step domain.StepName, cause error) {
	if err := o.progress.Update(ctx, userID, step, domain.StepFailed, 0, cause.Error(), nil); err != nil {
		o.log.WithError(err).WithField("step", string(step)).
			Error("failed to record step failure")
	}
}
