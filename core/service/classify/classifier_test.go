package classify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"inboxpilot/core/domain"
	"inboxpilot/pkg/logger"
)

// fakeCompletion maps a substring of the user prompt to a canned response.
type fakeCompletion struct {
	mu        sync.Mutex
	responses map[string]string
	err       error
	calls     int32
}

func (f *fakeCompletion) CompleteWithSystem(_ context.Context, _, userPrompt string) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return "", f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, resp := range f.responses {
		if key != "" && strings.Contains(userPrompt, key) {
			return resp, nil
		}
	}
	return "Category: REFERENCE\nPriority: low\nReasoning: Nothing notable.\nSuggested Actions:\n- Archive", nil
}

func testEmails(n int) []*domain.Email {
	emails := make([]*domain.Email, n)
	for i := range emails {
		emails[i] = &domain.Email{
			ID:      int64(i + 1),
			GmailID: fmt.Sprintf("msg-%d", i+1),
			Subject: fmt.Sprintf("subject %d", i+1),
			Body:    "hello",
		}
	}
	return emails
}

func TestClassifyBatchPreservesOrder(t *testing.T) {
	client := &fakeCompletion{responses: map[string]string{
		"subject 3": "Category: URGENT\nPriority: high\nReasoning: Deadline today.\nSuggested Actions:\n- Reply now",
	}}
	c := NewClassifier(client, logger.Default(), WithBatchSize(5), WithParallel(5))

	emails := testEmails(12)
	results := c.ClassifyBatch(context.Background(), emails)

	if len(results) != len(emails) {
		t.Fatalf("got %d results, want %d", len(results), len(emails))
	}
	for i, r := range results {
		if r.GmailID != emails[i].GmailID {
			t.Errorf("results[%d].GmailID = %s, want %s", i, r.GmailID, emails[i].GmailID)
		}
		if r.EmailID != emails[i].ID {
			t.Errorf("results[%d].EmailID = %d, want %d", i, r.EmailID, emails[i].ID)
		}
	}
	if results[2].Category != domain.CategoryUrgent {
		t.Errorf("results[2].Category = %s, want %s", results[2].Category, domain.CategoryUrgent)
	}
	if results[0].Category != domain.CategoryReference {
		t.Errorf("results[0].Category = %s, want %s", results[0].Category, domain.CategoryReference)
	}
	if got := atomic.LoadInt32(&client.calls); got != 12 {
		t.Errorf("completion calls = %d, want 12", got)
	}
}

func TestClassifyBatchFallsBackPerEmail(t *testing.T) {
	client := &fakeCompletion{err: errors.New("rate limited")}
	c := NewClassifier(client, logger.Default())

	emails := testEmails(7)
	emails[0].Subject = "URGENT: production incident"
	results := c.ClassifyBatch(context.Background(), emails)

	if len(results) != 7 {
		t.Fatalf("got %d results, want 7", len(results))
	}
	for i, r := range results {
		if r.ConfidenceScore != fallbackConfidence {
			t.Errorf("results[%d].ConfidenceScore = %v, want %v", i, r.ConfidenceScore, fallbackConfidence)
		}
		if r.ProcessedAt.IsZero() {
			t.Errorf("results[%d].ProcessedAt is zero", i)
		}
	}
	if results[0].Category != domain.CategoryUrgent {
		t.Errorf("results[0].Category = %s, want %s", results[0].Category, domain.CategoryUrgent)
	}
	if results[1].Category != domain.CategoryReference {
		t.Errorf("results[1].Category = %s, want %s", results[1].Category, domain.CategoryReference)
	}
}

func TestClassifyBatchEmptyInput(t *testing.T) {
	c := NewClassifier(&fakeCompletion{}, logger.Default())
	results := c.ClassifyBatch(context.Background(), nil)
	if len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
}

func TestClassifyBatchStampsClock(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewClassifier(&fakeCompletion{}, logger.Default(), WithClock(func() time.Time { return fixed }))

	results := c.ClassifyBatch(context.Background(), testEmails(1))
	if !results[0].ProcessedAt.Equal(fixed) {
		t.Errorf("ProcessedAt = %v, want %v", results[0].ProcessedAt, fixed)
	}
}
