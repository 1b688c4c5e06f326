package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"inboxpilot/core/domain"
	"inboxpilot/core/port/out"
	"inboxpilot/core/service/classify"
	"inboxpilot/core/service/scan"
	"inboxpilot/pkg/logger"
)

// =============================================================================
// Fakes
// =============================================================================

type fakeTokens struct {
	token *oauth2.Token
	err   error
}

func (f *fakeTokens) TokenForUser(context.Context, string) (*oauth2.Token, error) {
	return f.token, f.err
}

func (f *fakeTokens) SaveToken(context.Context, string, *oauth2.Token) error { return nil }

type fakeProvider struct {
	pages    []*out.RawPage
	pageIdx  int
	messages map[string]*out.RawMessage
	failIDs  map[string]bool
}

func (f *fakeProvider) FetchPage(context.Context, *oauth2.Token, int64, string) (*out.RawPage, error) {
	if f.pageIdx >= len(f.pages) {
		return &out.RawPage{}, nil
	}
	page := f.pages[f.pageIdx]
	f.pageIdx++
	return page, nil
}

func (f *fakeProvider) FetchMessage(_ context.Context, _ *oauth2.Token, id string) (*out.RawMessage, error) {
	if f.failIDs[id] {
		return nil, errors.New("fetch failed")
	}
	return f.messages[id], nil
}

type fakeRepo struct {
	upserted        []domain.Email
	classifications []domain.Classification
	upsertErr       error
}

func (f *fakeRepo) UpsertEmails(_ context.Context, emails []domain.Email) ([]int64, error) {
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	f.upserted = append(f.upserted, emails...)
	ids := make([]int64, len(emails))
	for i := range ids {
		ids[i] = int64(i + 1)
	}
	return ids, nil
}

func (f *fakeRepo) UpsertClassifications(_ context.Context, cls []domain.Classification) ([]int64, error) {
	f.classifications = append(f.classifications, cls...)
	return nil, nil
}

func (f *fakeRepo) GetByGmailID(context.Context, uuid.UUID, string) (*domain.Email, error) {
	return nil, domain.ErrNotFound
}

func (f *fakeRepo) ListEmails(context.Context, uuid.UUID, domain.EmailFilter, domain.EmailPage) ([]domain.Email, int, error) {
	return nil, 0, nil
}

type progressUpdate struct {
	step   domain.StepName
	status domain.StepStatus
}

type fakeProgress struct {
	inited  bool
	updates []progressUpdate
}

func (f *fakeProgress) Init(context.Context, uuid.UUID) error {
	f.inited = true
	return nil
}

func (f *fakeProgress) Update(_ context.Context, _ uuid.UUID, step domain.StepName, status domain.StepStatus, _ int, _ string, _ map[string]any) error {
	f.updates = append(f.updates, progressUpdate{step: step, status: status})
	return nil
}

func (f *fakeProgress) Get(context.Context, uuid.UUID) ([]domain.ProgressRecord, error) {
	return nil, nil
}

func (f *fakeProgress) last(step domain.StepName) (domain.StepStatus, bool) {
	for i := len(f.updates) - 1; i >= 0; i-- {
		if f.updates[i].step == step {
			return f.updates[i].status, true
		}
	}
	return "", false
}

type fakeQueue struct {
	jobs []*domain.QueueJob
}

func (f *fakeQueue) Enqueue(_ context.Context, job *domain.QueueJob) error {
	f.jobs = append(f.jobs, job)
	return nil
}

func (f *fakeQueue) Dequeue(context.Context) (*domain.QueueJob, error) { return nil, nil }
func (f *fakeQueue) IsLocked(context.Context, string) (bool, error)   { return false, nil }
func (f *fakeQueue) Lock(context.Context, string) error               { return nil }
func (f *fakeQueue) Unlock(context.Context, string) error             { return nil }

type stubCompletion struct{}

func (stubCompletion) CompleteWithSystem(context.Context, string, string) (string, error) {
	return "Category: REFERENCE\nPriority: low\nReasoning: Routine.\nSuggested Actions:\n- Archive", nil
}

// =============================================================================
// Helpers
// =============================================================================

func rawMessage(id string) *out.RawMessage {
	return &out.RawMessage{
		ID:       id,
		ThreadID: "thread-" + id,
		LabelIDs: []string{"INBOX", "UNREAD"},
		Snippet:  "snippet",
		Payload: &out.RawPart{
			MimeType: "text/plain",
			Headers: []out.RawHeader{
				{Name: "Subject", Value: "subject " + id},
				{Name: "From", Value: "alice@example.com"},
				{Name: "To", Value: "bob@example.com"},
				{Name: "Date", Value: "Mon, 02 Jan 2006 15:04:05 -0700"},
			},
			Data: "aGVsbG8", // "hello"
		},
	}
}

func newTestOrchestrator(provider *fakeProvider, repo *fakeRepo, progress *fakeProgress, queue *fakeQueue, tokens *fakeTokens) *Orchestrator {
	return NewOrchestrator(&Config{
		Tokens:     tokens,
		Provider:   provider,
		Normalizer: scan.NewNormalizer(),
		Classifier: classify.NewClassifier(stubCompletion{}, logger.Default()),
		Repo:       repo,
		Progress:   progress,
		Queue:      queue,
		Logger:     logger.Default(),
		MaxResults: 100,
	})
}

// =============================================================================
// Tests
// =============================================================================

func TestRunFullPipeline(t *testing.T) {
	userID := uuid.New()

	var page1, page2 out.RawPage
	messages := make(map[string]*out.RawMessage)
	for i := 1; i <= 12; i++ {
		id := fmt.Sprintf("msg-%d", i)
		ref := out.RawRef{ID: id, ThreadID: "thread-" + id}
		if i <= 7 {
			page1.Messages = append(page1.Messages, ref)
		} else {
			page2.Messages = append(page2.Messages, ref)
		}
		messages[id] = rawMessage(id)
	}
	page1.NextPageToken = "next"

	provider := &fakeProvider{pages: []*out.RawPage{&page1, &page2}, messages: messages}
	repo := &fakeRepo{}
	progress := &fakeProgress{}
	queue := &fakeQueue{}
	tokens := &fakeTokens{token: &oauth2.Token{AccessToken: "tok"}}

	o := newTestOrchestrator(provider, repo, progress, queue, tokens)
	count, err := o.Run(context.Background(), userID)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if count != 12 {
		t.Errorf("count = %d, want 12", count)
	}

	if !progress.inited {
		t.Error("progress not initialized")
	}
	for _, step := range domain.OnboardingSteps {
		status, ok := progress.last(step)
		if !ok || status != domain.StepCompleted {
			t.Errorf("step %s final status = %q, want completed", step, status)
		}
	}

	if len(repo.upserted) != 12 {
		t.Errorf("upserted %d emails, want 12", len(repo.upserted))
	}
	if len(repo.classifications) != 12 {
		t.Errorf("upserted %d classifications, want 12", len(repo.classifications))
	}
	for i, c := range repo.classifications {
		if c.EmailID == 0 {
			t.Errorf("classifications[%d].EmailID not linked", i)
		}
	}

	if len(queue.jobs) != 1 {
		t.Fatalf("enqueued %d jobs, want 1", len(queue.jobs))
	}
	job := queue.jobs[0]
	if job.UserID != userID || len(job.Emails) != 12 || len(job.Classifications) != 12 {
		t.Errorf("unexpected job shape: user=%s emails=%d classifications=%d",
			job.UserID, len(job.Emails), len(job.Classifications))
	}
	if job.Timestamp == "" {
		t.Error("job has no identity timestamp")
	}
}

func TestRunSkipsFailedDetailFetches(t *testing.T) {
	userID := uuid.New()

	page := &out.RawPage{}
	messages := make(map[string]*out.RawMessage)
	for i := 1; i <= 5; i++ {
		id := fmt.Sprintf("msg-%d", i)
		page.Messages = append(page.Messages, out.RawRef{ID: id})
		messages[id] = rawMessage(id)
	}

	provider := &fakeProvider{
		pages:    []*out.RawPage{page},
		messages: messages,
		failIDs:  map[string]bool{"msg-2": true, "msg-4": true},
	}
	repo := &fakeRepo{}
	progress := &fakeProgress{}
	queue := &fakeQueue{}
	tokens := &fakeTokens{token: &oauth2.Token{AccessToken: "tok"}}

	o := newTestOrchestrator(provider, repo, progress, queue, tokens)
	count, err := o.Run(context.Background(), userID)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}

	status, _ := progress.last(domain.StepScanInbox)
	if status != domain.StepCompleted {
		t.Errorf("scan_inbox final status = %q, want completed", status)
	}
}

func TestRunFailsConnectStepWithoutToken(t *testing.T) {
	userID := uuid.New()

	provider := &fakeProvider{}
	repo := &fakeRepo{}
	progress := &fakeProgress{}
	queue := &fakeQueue{}
	tokens := &fakeTokens{err: domain.ErrNotFound}

	o := newTestOrchestrator(provider, repo, progress, queue, tokens)
	if _, err := o.Run(context.Background(), userID); err == nil {
		t.Fatal("Run succeeded without a token")
	}

	status, ok := progress.last(domain.StepConnectEmail)
	if !ok || status != domain.StepFailed {
		t.Errorf("connect_email final status = %q, want failed", status)
	}
	if len(queue.jobs) != 0 {
		t.Errorf("enqueued %d jobs after failure, want 0", len(queue.jobs))
	}
}

func TestRunMarksScanFailedOnPersistError(t *testing.T) {
	userID := uuid.New()

	page := &out.RawPage{Messages: []out.RawRef{{ID: "msg-1"}}}
	provider := &fakeProvider{
		pages:    []*out.RawPage{page},
		messages: map[string]*out.RawMessage{"msg-1": rawMessage("msg-1")},
	}
	repo := &fakeRepo{upsertErr: errors.New("db down")}
	progress := &fakeProgress{}
	queue := &fakeQueue{}
	tokens := &fakeTokens{token: &oauth2.Token{AccessToken: "tok"}}

	o := newTestOrchestrator(provider, repo, progress, queue, tokens)
	if _, err := o.Run(context.Background(), userID); err == nil {
		t.Fatal("Run succeeded despite persist failure")
	}

	status, _ := progress.last(domain.StepScanInbox)
	if status != domain.StepFailed {
		t.Errorf("scan_inbox final status = %q, want failed", status)
	}
	if len(queue.jobs) != 0 {
		t.Errorf("enqueued %d jobs after failure, want 0", len(queue.jobs))
	}
}
