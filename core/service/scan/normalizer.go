// Package scan converts raw provider payloads into canonical email records.
package scan

import (
	"encoding/base64"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"inboxpilot/core/domain"
	"inboxpilot/core/port/out"
)

// Normalizer flattens the provider's multi-part payload into a domain.Email.
type Normalizer struct {
	now func() time.Time
}

// NewNormalizer creates a Normalizer using wall-clock time.
func NewNormalizer() *Normalizer {
	return &Normalizer{now: time.Now}
}

// NewNormalizerWithClock creates a Normalizer with an injected clock.
func NewNormalizerWithClock(now func() time.Time) *Normalizer {
	return &Normalizer{now: now}
}

// Normalize converts one raw message. The second return is false when the
// payload is missing entirely; such messages are skipped, not failed.
func (n *Normalizer) Normalize(userID uuid.UUID, raw *out.RawMessage) (*domain.Email, bool) {
	if raw == nil || raw.Payload == nil {
		return nil, false
	}

	header := headerLookup(raw.Payload.Headers)

	email := &domain.Email{
		UserID:   userID,
		GmailID:  raw.ID,
		ThreadID: raw.ThreadID,
		Subject:  header("Subject"),
		From:     header("From"),
		To:       header("To"),
		Cc:       header("Cc"),
		Bcc:      header("Bcc"),
		Snippet:  raw.Snippet,
		Labels:   raw.LabelIDs,

		IsRead:    !containsLabel(raw.LabelIDs, "UNREAD"),
		IsStarred: containsLabel(raw.LabelIDs, "STARRED"),
		IsDraft:   containsLabel(raw.LabelIDs, "DRAFT"),
		IsSpam:    containsLabel(raw.LabelIDs, "SPAM"),
		IsTrash:   containsLabel(raw.LabelIDs, "TRASH"),

		ProcessedAt: n.now().UTC(),
	}

	email.Date = n.parseDate(header("Date"))
	email.Body = extractBody(raw.Payload)
	email.Attachments = extractAttachments(raw.Payload)

	return email, true
}

// headerLookup builds a case-insensitive header accessor.
func headerLookup(headers []out.RawHeader) func(name string) string {
	return func(name string) string {
		for _, h := range headers {
			if strings.EqualFold(h.Name, name) {
				return h.Value
			}
		}
		return ""
	}
}

// parseDate parses an RFC 5322 date header, falling back to now.
func (n *Normalizer) parseDate(value string) time.Time {
	if value != "" {
		if t, err := mail.ParseDate(value); err == nil {
			return t.UTC()
		}
	}
	return n.now().UTC()
}

// extractBody walks the part tree and returns the first text/html part, or the
// first text/plain part when no HTML part exists. Parts of the same type are
// never concatenated.
func extractBody(payload *out.RawPart) string {
	var html, plain string
	walkParts(payload, func(part *out.RawPart) {
		if part.Data == "" {
			return
		}
		switch {
		case strings.HasPrefix(part.MimeType, "text/html") && html == "":
			html = decodeBody(part.Data)
		case strings.HasPrefix(part.MimeType, "text/plain") && plain == "":
			plain = decodeBody(part.Data)
		}
	})
	if html != "" {
		return html
	}
	return plain
}

// extractAttachments collects every part carrying a filename, at any depth.
func extractAttachments(payload *out.RawPart) []domain.Attachment {
	var attachments []domain.Attachment
	walkParts(payload, func(part *out.RawPart) {
		if part.Filename == "" {
			return
		}
		attachments = append(attachments, domain.Attachment{
			AttachmentID: part.AttachmentID,
			FileName:     part.Filename,
			MimeType:     part.MimeType,
			SizeBytes:    part.SizeBytes,
		})
	})
	return attachments
}

func walkParts(part *out.RawPart, visit func(*out.RawPart)) {
	if part == nil {
		return
	}
	visit(part)
	for _, p := range part.Parts {
		walkParts(p, visit)
	}
}

func decodeBody(data string) string {
	decoded, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		// Some providers emit unpadded base64url
		decoded, err = base64.RawURLEncoding.DecodeString(data)
		if err != nil {
			return ""
		}
	}
	return string(decoded)
}

func containsLabel(labels []string, label string) bool {
	for _, l := range labels {
		if l == label {
			return true
		}
	}
	return false
}
