package persistence

import (
	"context"
	"database/sql/driver"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"inboxpilot/core/domain"
)

// progressCols mirrors the select list in ProgressAdapter.Get.
var progressCols = []string{
	"id", "user_id", "step_name", "status", "progress_percentage",
	"started_at", "completed_at", "error_message", "metadata",
}

func TestProgressGetScansNullTimestamps(t *testing.T) {
	userID := uuid.New()
	completed := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

	// Freshly-initialized rows carry NULL started_at, and a step that jumps
	// straight to completed never gets one either.
	db := &stubDB{rowsFor: func(query string) *stubRows {
		if !strings.Contains(query, "FROM onboarding_progress") {
			return nil
		}
		return &stubRows{
			cols: progressCols,
			vals: [][]driver.Value{
				{int64(1), userID.String(), "connect_email", "pending", int64(0), nil, nil, nil, []byte(`{}`)},
				{int64(2), userID.String(), "scan_inbox", "pending", int64(0), nil, nil, nil, []byte(`{}`)},
				{int64(3), userID.String(), "setup_dashboard", "completed", int64(100), nil, completed, nil, []byte(`{"emails_processed":12}`)},
			},
		}
	}}
	adapter := NewProgressAdapter(db.open())

	records, err := adapter.Get(context.Background(), userID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}

	if records[0].StepName != domain.StepConnectEmail || records[0].Status != domain.StepPending {
		t.Errorf("records[0] = (%s, %s)", records[0].StepName, records[0].Status)
	}
	if records[0].StartedAt != nil {
		t.Errorf("pending step StartedAt = %v, want nil", records[0].StartedAt)
	}
	if records[0].CompletedAt != nil {
		t.Errorf("pending step CompletedAt = %v, want nil", records[0].CompletedAt)
	}

	done := records[2]
	if done.StartedAt != nil {
		t.Errorf("StartedAt = %v, want nil for a step completed without in_progress", done.StartedAt)
	}
	if done.CompletedAt == nil || !done.CompletedAt.Equal(completed) {
		t.Errorf("CompletedAt = %v, want %v", done.CompletedAt, completed)
	}
	if done.Metadata["emails_processed"] != float64(12) {
		t.Errorf("Metadata = %v", done.Metadata)
	}
}

func TestProgressGetScansStartedTimestamp(t *testing.T) {
	userID := uuid.New()
	started := time.Date(2025, 3, 14, 9, 15, 0, 0, time.UTC)

	db := &stubDB{rowsFor: func(query string) *stubRows {
		if !strings.Contains(query, "FROM onboarding_progress") {
			return nil
		}
		return &stubRows{
			cols: progressCols,
			vals: [][]driver.Value{
				{int64(1), userID.String(), "scan_inbox", "in_progress", int64(40), started, nil, nil, []byte(`{}`)},
			},
		}
	}}
	adapter := NewProgressAdapter(db.open())

	records, err := adapter.Get(context.Background(), userID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].StartedAt == nil || !records[0].StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v, want %v", records[0].StartedAt, started)
	}
}
