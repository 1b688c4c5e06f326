// Package persistence provides database adapters implementing outbound ports.
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"inboxpilot/core/domain"
	"inboxpilot/core/port/out"
)

// =============================================================================
// Email Adapter (PostgreSQL)
// =============================================================================

// EmailAdapter implements out.EmailRepository using PostgreSQL.
type EmailAdapter struct {
	db *sqlx.DB
}

func NewEmailAdapter(db *sqlx.DB) *EmailAdapter {
	return &EmailAdapter{db: db}
}

// =============================================================================
// Database Row Mapping
// =============================================================================

const emailSelectColumns = `
	e.id, e.user_id, e.gmail_id, e.thread_id,
	e.subject, e.from_address, e.to_address, e.cc_address, e.bcc_address,
	e.email_date, e.snippet, e.body, e.labels,
	e.is_read, e.is_starred, e.is_draft, e.is_spam, e.is_trash,
	e.processed_at, e.created_at, e.updated_at`

// emailRow represents the database row for emails.
type emailRow struct {
	ID      int64     `db:"id"`
	UserID  uuid.UUID `db:"user_id"`
	GmailID string    `db:"gmail_id"`

	ThreadID sql.NullString `db:"thread_id"`
	Subject  string         `db:"subject"`
	From     string         `db:"from_address"`
	To       string         `db:"to_address"`
	Cc       sql.NullString `db:"cc_address"`
	Bcc      sql.NullString `db:"bcc_address"`

	Date    time.Time      `db:"email_date"`
	Snippet string         `db:"snippet"`
	Body    string         `db:"body"`
	Labels  pq.StringArray `db:"labels"`

	IsRead    bool `db:"is_read"`
	IsStarred bool `db:"is_starred"`
	IsDraft   bool `db:"is_draft"`
	IsSpam    bool `db:"is_spam"`
	IsTrash   bool `db:"is_trash"`

	ProcessedAt time.Time `db:"processed_at"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// emailRowWithCount extends emailRow with the COUNT(*) OVER() window result.
type emailRowWithCount struct {
	emailRow
	TotalCount int `db:"total_count"`
}

func (r *emailRow) toEntity() domain.Email {
	return domain.Email{
		ID:          r.ID,
		UserID:      r.UserID,
		GmailID:     r.GmailID,
		ThreadID:    r.ThreadID.String,
		Subject:     r.Subject,
		From:        r.From,
		To:          r.To,
		Cc:          r.Cc.String,
		Bcc:         r.Bcc.String,
		Date:        r.Date,
		Snippet:     r.Snippet,
		Body:        r.Body,
		Labels:      r.Labels,
		IsRead:      r.IsRead,
		IsStarred:   r.IsStarred,
		IsDraft:     r.IsDraft,
		IsSpam:      r.IsSpam,
		IsTrash:     r.IsTrash,
		ProcessedAt: r.ProcessedAt,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// =============================================================================
// Writes
// =============================================================================

// UpsertEmails bulk-upserts by (user_id, gmail_id). Returned ids are aligned
// with the input slice; a rescan of the same mailbox updates rows in place
// only when the incoming processed_at is newer than the stored one, so a
// delayed or replayed ingestion never clobbers fresher data.
func (a *EmailAdapter) UpsertEmails(ctx context.Context, emails []domain.Email) ([]int64, error) {
	if len(emails) == 0 {
		return nil, nil
	}

	query := `
		INSERT INTO emails (
			user_id, gmail_id, thread_id,
			subject, from_address, to_address, cc_address, bcc_address,
			email_date, snippet, body, labels,
			is_read, is_starred, is_draft, is_spam, is_trash,
			processed_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9,
			$10, $11, $12, $13, $14, $15, $16, $17, $18
		)
		ON CONFLICT (user_id, gmail_id) DO UPDATE SET
			thread_id = EXCLUDED.thread_id,
			subject = EXCLUDED.subject,
			snippet = EXCLUDED.snippet,
			body = EXCLUDED.body,
			labels = EXCLUDED.labels,
			is_read = EXCLUDED.is_read,
			is_starred = EXCLUDED.is_starred,
			is_draft = EXCLUDED.is_draft,
			is_spam = EXCLUDED.is_spam,
			is_trash = EXCLUDED.is_trash,
			processed_at = EXCLUDED.processed_at,
			updated_at = NOW()
		WHERE excluded.processed_at > emails.processed_at
		RETURNING id`

	tx, err := a.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	ids := make([]int64, len(emails))
	for i := range emails {
		e := &emails[i]
		labels := e.Labels
		if labels == nil {
			// pq.Array(nil) binds SQL NULL, which the NOT NULL column rejects
			labels = []string{}
		}
		err := tx.QueryRowxContext(ctx, query,
			e.UserID, e.GmailID, nullStr(e.ThreadID),
			e.Subject, e.From, e.To, nullStr(e.Cc), nullStr(e.Bcc),
			e.Date, e.Snippet, e.Body, pq.Array(labels),
			e.IsRead, e.IsStarred, e.IsDraft, e.IsSpam, e.IsTrash,
			e.ProcessedAt,
		).Scan(&ids[i])
		if errors.Is(err, sql.ErrNoRows) {
			// Stale ingestion: the stored row is newer and was left untouched.
			// Recover the id so the returned slice stays input-aligned.
			err = tx.QueryRowxContext(ctx,
				`SELECT id FROM emails WHERE user_id = $1 AND gmail_id = $2`,
				e.UserID, e.GmailID,
			).Scan(&ids[i])
			if err != nil {
				return nil, fmt.Errorf("resolve email %s: %w", e.GmailID, err)
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("upsert email %s: %w", e.GmailID, err)
		}

		if err := a.replaceAttachments(ctx, tx, ids[i], e.Attachments); err != nil {
			return nil, fmt.Errorf("replace attachments for %s: %w", e.GmailID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return ids, nil
}

// replaceAttachments swaps the attachment set for one email. Attachments carry
// no independent identity, so replacement beats reconciliation.
func (a *EmailAdapter) replaceAttachments(ctx context.Context, tx *sqlx.Tx, emailID int64, attachments []domain.Attachment) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM email_attachments WHERE email_id = $1`, emailID); err != nil {
		return err
	}

	query := `
		INSERT INTO email_attachments (email_id, attachment_id, file_name, mime_type, size_bytes)
		VALUES ($1, $2, $3, $4, $5)`
	for _, att := range attachments {
		if _, err := tx.ExecContext(ctx, query,
			emailID, nullStr(att.AttachmentID), att.FileName, att.MimeType, att.SizeBytes,
		); err != nil {
			return err
		}
	}
	return nil
}

// UpsertClassifications bulk-upserts by email_id. The conditional update keeps
// the freshest verdict: a replayed job carrying an older processed_at cannot
// clobber a newer row.
func (a *EmailAdapter) UpsertClassifications(ctx context.Context, classifications []domain.Classification) ([]int64, error) {
	if len(classifications) == 0 {
		return nil, nil
	}

	query := `
		INSERT INTO email_classifications (
			email_id, category, priority, confidence_score,
			reasoning, suggested_actions, processed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (email_id) DO UPDATE SET
			category = EXCLUDED.category,
			priority = EXCLUDED.priority,
			confidence_score = EXCLUDED.confidence_score,
			reasoning = EXCLUDED.reasoning,
			suggested_actions = EXCLUDED.suggested_actions,
			processed_at = EXCLUDED.processed_at
		WHERE excluded.processed_at > email_classifications.processed_at
		RETURNING id`

	tx, err := a.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var ids []int64
	for i := range classifications {
		c := &classifications[i]
		var id int64
		err := tx.QueryRowxContext(ctx, query,
			c.EmailID, c.Category, c.Priority, c.ConfidenceScore,
			c.Reasoning, pq.Array(c.SuggestedActions), c.ProcessedAt,
		).Scan(&id)
		if err == sql.ErrNoRows {
			// Conditional update skipped a stale verdict; not an error.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("upsert classification for email %d: %w", c.EmailID, err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return ids, nil
}

// =============================================================================
// Reads
// =============================================================================

// GetByGmailID returns domain.ErrNotFound when no row matches.
func (a *EmailAdapter) GetByGmailID(ctx context.Context, userID uuid.UUID, gmailID string) (*domain.Email, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM emails e
		WHERE e.user_id = $1 AND e.gmail_id = $2`, emailSelectColumns)

	var row emailRow
	if err := a.db.QueryRowxContext(ctx, query, userID, gmailID).StructScan(&row); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	entity := row.toEntity()
	return &entity, nil
}

// ListEmails returns one page ordered by processed_at descending. A category
// filter matches against the stored classification via EXISTS; classification
// columns themselves are not selected. Data and total come back in a single
// query via a window function.
func (a *EmailAdapter) ListEmails(ctx context.Context, userID uuid.UUID, filter domain.EmailFilter, page domain.EmailPage) ([]domain.Email, int, error) {
	where := "e.user_id = $1"
	args := []interface{}{userID}

	if filter.Category != "" {
		args = append(args, filter.Category)
		where += fmt.Sprintf(` AND EXISTS (
			SELECT 1 FROM email_classifications ec
			WHERE ec.email_id = e.id AND ec.category = $%d)`, len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where += fmt.Sprintf(" AND (e.subject ILIKE $%d OR e.from_address ILIKE $%d)", len(args), len(args))
	}

	argIdx := len(args) + 1
	query := fmt.Sprintf(`
		SELECT %s, COUNT(*) OVER() as total_count
		FROM emails e
		WHERE %s
		ORDER BY e.processed_at DESC
		LIMIT $%d OFFSET $%d`,
		emailSelectColumns, where, argIdx, argIdx+1)
	args = append(args, page.PageSize, page.Offset())

	rows, err := a.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var emails []domain.Email
	var total int
	for rows.Next() {
		var row emailRowWithCount
		if err := rows.StructScan(&row); err != nil {
			return nil, 0, err
		}
		emails = append(emails, row.toEntity())
		total = row.TotalCount
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return emails, total, nil
}

var _ out.EmailRepository = (*EmailAdapter)(nil)
