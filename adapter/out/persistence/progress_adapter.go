package persistence

import (
	"context"
	"database/sql"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"inboxpilot/core/domain"
	"inboxpilot/core/port/out"
)

// =============================================================================
// Progress Adapter (PostgreSQL)
// =============================================================================

// ProgressAdapter implements out.ProgressRepository over onboarding_progress.
type ProgressAdapter struct {
	db *sqlx.DB
}

func NewProgressAdapter(db *sqlx.DB) *ProgressAdapter {
	return &ProgressAdapter{db: db}
}

type progressRow struct {
	ID                 int64           `db:"id"`
	UserID             uuid.UUID       `db:"user_id"`
	StepName           string          `db:"step_name"`
	Status             string          `db:"status"`
	ProgressPercentage int             `db:"progress_percentage"`
	StartedAt          sql.NullTime    `db:"started_at"`
	CompletedAt        sql.NullTime    `db:"completed_at"`
	ErrorMessage       sql.NullString  `db:"error_message"`
	Metadata           json.RawMessage `db:"metadata"`
}

func (r *progressRow) toEntity() domain.ProgressRecord {
	record := domain.ProgressRecord{
		ID:                 r.ID,
		UserID:             r.UserID,
		StepName:           domain.StepName(r.StepName),
		Status:             domain.StepStatus(r.Status),
		ProgressPercentage: r.ProgressPercentage,
		ErrorMessage:       r.ErrorMessage.String,
	}
	if r.StartedAt.Valid {
		t := r.StartedAt.Time
		record.StartedAt = &t
	}
	if r.CompletedAt.Valid {
		t := r.CompletedAt.Time
		record.CompletedAt = &t
	}
	if len(r.Metadata) > 0 {
		_ = json.Unmarshal(r.Metadata, &record.Metadata)
	}
	return record
}

// Init seeds one pending record per onboarding step. Existing records are left
// untouched, so re-running a scan never resets a user's history.
func (a *ProgressAdapter) Init(ctx context.Context, userID uuid.UUID) error {
	query := `
		INSERT INTO onboarding_progress (user_id, step_name, status, progress_percentage)
		VALUES ($1, $2, 'pending', 0)
		ON CONFLICT (user_id, step_name) DO NOTHING`

	for _, step := range domain.OnboardingSteps {
		if _, err := a.db.ExecContext(ctx, query, userID, step); err != nil {
			return err
		}
	}
	return nil
}

// Update mutates one (user, step) record. completed_at is stamped only on the
// completed transition and cleared otherwise, so a retried step reads as
// unfinished again.
func (a *ProgressAdapter) Update(ctx context.Context, userID uuid.UUID, step domain.StepName, status domain.StepStatus, percent int, errMsg string, metadata map[string]any) error {
	var metaJSON []byte
	if metadata != nil {
		b, err := json.Marshal(metadata)
		if err != nil {
			return err
		}
		metaJSON = b
	}

	query := `
		UPDATE onboarding_progress SET
			status = $3,
			progress_percentage = $4,
			error_message = NULLIF($5, ''),
			metadata = COALESCE($6, metadata),
			started_at = CASE WHEN $3 = 'in_progress' AND started_at IS NULL THEN NOW() ELSE started_at END,
			completed_at = CASE WHEN $3 = 'completed' THEN NOW() ELSE NULL END
		WHERE user_id = $1 AND step_name = $2`

	_, err := a.db.ExecContext(ctx, query, userID, step, status, percent, errMsg, metaJSON)
	return err
}

// Get returns the user's records in pipeline order.
func (a *ProgressAdapter) Get(ctx context.Context, userID uuid.UUID) ([]domain.ProgressRecord, error) {
	query := `
		SELECT id, user_id, step_name, status, progress_percentage,
		       started_at, completed_at, error_message, metadata
		FROM onboarding_progress
		WHERE user_id = $1
		ORDER BY CASE step_name
			WHEN 'connect_email' THEN 1
			WHEN 'scan_inbox' THEN 2
			WHEN 'setup_dashboard' THEN 3
			ELSE 4 END`

	rows, err := a.db.QueryxContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.ProgressRecord
	for rows.Next() {
		var row progressRow
		if err := rows.StructScan(&row); err != nil {
			return nil, err
		}
		records = append(records, row.toEntity())
	}
	return records, rows.Err()
}

var _ out.ProgressRepository = (*ProgressAdapter)(nil)
