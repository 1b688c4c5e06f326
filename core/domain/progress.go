package domain

import (
	"time"

	"github.com/google/uuid"
)

// StepName identifies one onboarding pipeline stage.
type StepName string

const (
	StepConnectEmail   StepName = "connect_email"
	StepScanInbox      StepName = "scan_inbox"
	StepSetupDashboard StepName = "setup_dashboard"
)

// OnboardingSteps lists every stage in pipeline order.
var OnboardingSteps = []StepName{StepConnectEmail, StepScanInbox, StepSetupDashboard}

// StepStatus is the coarse status of one stage.
type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in_progress"
	StepCompleted  StepStatus = "completed"
	StepFailed     StepStatus = "failed"
)

// ProgressRecord tracks one (user, step) pair. Updates mutate the record in
// place; no history is retained.
type ProgressRecord struct {
	ID                 int64          `json:"id" db:"id"`
	UserID             uuid.UUID      `json:"user_id" db:"user_id"`
	StepName           StepName       `json:"step_name" db:"step_name"`
	Status             StepStatus     `json:"status" db:"status"`
	ProgressPercentage int            `json:"progress_percentage" db:"progress_percentage"`
	StartedAt          *time.Time     `json:"started_at,omitempty" db:"started_at"`
	CompletedAt        *time.Time     `json:"completed_at,omitempty" db:"completed_at"`
	ErrorMessage       string         `json:"error_message,omitempty" db:"error_message"`
	Metadata           map[string]any `json:"metadata,omitempty" db:"-"`
}

// OverallPercentage averages step percentages into the single number the
// onboarding UI polls for.
func OverallPercentage(records []ProgressRecord) int {
	if len(records) == 0 {
		return 0
	}
	total := 0
	for _, r := range records {
		total += r.ProgressPercentage
	}
	return total / len(records)
}
