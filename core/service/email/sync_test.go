package email

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"inboxpilot/core/domain"
	"inboxpilot/pkg/logger"
)

func mirrorRecord(userID uuid.UUID, gmailID string, processedAt time.Time) domain.ProcessedEmail {
	return domain.ProcessedEmail{
		GmailID:     gmailID,
		UserID:      userID,
		ThreadID:    "thread-" + gmailID,
		Subject:     "subject " + gmailID,
		Sender:      "sender@example.com",
		Body:        "body",
		Preview:     "body",
		Unread:      true,
		ProcessedAt: processedAt,
	}
}

func TestSyncInsertsMissingRecords(t *testing.T) {
	userID := uuid.New()
	now := time.Now().UTC()
	repo := newFakeRepo()
	processed := &fakeProcessed{records: map[uuid.UUID][]domain.ProcessedEmail{
		userID: {
			mirrorRecord(userID, "g-1", now),
			mirrorRecord(userID, "g-2", now),
		},
	}}
	svc := NewSyncService(repo, processed, logger.Default())

	result, err := svc.Sync(context.Background(), userID)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if result.Inserted != 2 || result.Updated != 0 || result.Skipped != 0 {
		t.Errorf("result = %+v, want 2 inserted", result)
	}
	if len(repo.upserted) != 2 {
		t.Fatalf("got %d upserts, want 2", len(repo.upserted))
	}
	got := repo.upserted[0]
	if got.GmailID != "g-1" || got.From != "sender@example.com" {
		t.Errorf("upserted[0] = %+v", got)
	}
	if got.IsRead {
		t.Error("unread mirror record should map to IsRead=false")
	}
}

func TestSyncUpdatesOnlyStrictlyNewer(t *testing.T) {
	userID := uuid.New()
	base := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		mirror      time.Time
		stored      time.Time
		wantUpdated int
		wantSkipped int
	}{
		{"mirror newer", base.Add(time.Minute), base, 1, 0},
		{"equal timestamps skipped", base, base, 0, 1},
		{"mirror older skipped", base.Add(-time.Minute), base, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepo()
			repo.emails["g-1"] = &domain.Email{GmailID: "g-1", ProcessedAt: tt.stored}
			processed := &fakeProcessed{records: map[uuid.UUID][]domain.ProcessedEmail{
				userID: {mirrorRecord(userID, "g-1", tt.mirror)},
			}}
			svc := NewSyncService(repo, processed, logger.Default())

			result, err := svc.Sync(context.Background(), userID)
			if err != nil {
				t.Fatalf("Sync: %v", err)
			}
			if result.Updated != tt.wantUpdated || result.Skipped != tt.wantSkipped {
				t.Errorf("result = %+v, want updated=%d skipped=%d", result, tt.wantUpdated, tt.wantSkipped)
			}
		})
	}
}

func TestSyncCountsFailedWritesAsSkipped(t *testing.T) {
	userID := uuid.New()
	now := time.Now().UTC()
	repo := newFakeRepo()
	repo.upsertErr = errors.New("deadlock detected")
	repo.failGmailID = "g-2"
	processed := &fakeProcessed{records: map[uuid.UUID][]domain.ProcessedEmail{
		userID: {
			mirrorRecord(userID, "g-1", now),
			mirrorRecord(userID, "g-2", now),
			mirrorRecord(userID, "g-3", now),
		},
	}}
	svc := NewSyncService(repo, processed, logger.Default())

	result, err := svc.Sync(context.Background(), userID)
	if err != nil {
		t.Fatalf("a per-record write failure must not abort the pass: %v", err)
	}
	if result.Inserted != 2 || result.Skipped != 1 {
		t.Errorf("result = %+v, want inserted=2 skipped=1", result)
	}
}

func TestSyncPropagatesMirrorFailure(t *testing.T) {
	processed := &fakeProcessed{listErr: errors.New("connection refused")}
	svc := NewSyncService(newFakeRepo(), processed, logger.Default())

	if _, err := svc.Sync(context.Background(), uuid.New()); err == nil {
		t.Fatal("expected mirror read failure to propagate")
	}
}

func TestSyncPropagatesLookupFailure(t *testing.T) {
	userID := uuid.New()
	repo := newFakeRepo()
	repo.getErr = errors.New("connection reset")
	processed := &fakeProcessed{records: map[uuid.UUID][]domain.ProcessedEmail{
		userID: {mirrorRecord(userID, "g-1", time.Now())},
	}}
	svc := NewSyncService(repo, processed, logger.Default())

	if _, err := svc.Sync(context.Background(), userID); err == nil {
		t.Fatal("expected canonical lookup failure to propagate")
	}
}
