// Package out defines the outbound ports of the pipeline core.
package out

import (
	"context"

	"golang.org/x/oauth2"
)

// MailProvider is the outbound port for the external mailbox API. A page fetch
// returns lightweight message references; FetchMessage pulls the full payload
// for one of them.
type MailProvider interface {
	FetchPage(ctx context.Context, token *oauth2.Token, maxResults int64, pageToken string) (*RawPage, error)
	FetchMessage(ctx context.Context, token *oauth2.Token, messageID string) (*RawMessage, error)
}

// TokenStore resolves the stored OAuth credential for a user. Token exchange
// itself is outside the pipeline; refresh happens inside the provider adapter.
type TokenStore interface {
	TokenForUser(ctx context.Context, userID string) (*oauth2.Token, error)
	SaveToken(ctx context.Context, userID string, token *oauth2.Token) error
}

// RawPage is one page of message references plus the continuation token.
type RawPage struct {
	Messages      []RawRef
	NextPageToken string
}

// RawRef is a message reference from a list call.
type RawRef struct {
	ID       string
	ThreadID string
}

// RawMessage is the provider payload for one message, detached from the
// provider SDK so the normalizer stays provider-free. It is never persisted.
type RawMessage struct {
	ID       string
	ThreadID string
	LabelIDs []string
	Snippet  string
	Payload  *RawPart
}

// RawPart is one node of the multi-part MIME tree.
type RawPart struct {
	MimeType     string
	Filename     string
	Headers      []RawHeader
	Data         string // base64url-encoded body data
	AttachmentID string
	SizeBytes    int64
	Parts        []*RawPart
}

// RawHeader is a single message header.
type RawHeader struct {
	Name  string
	Value string
}

// ProviderErrorCode classifies provider failures.
type ProviderErrorCode string

const (
	ProviderErrAuth         ProviderErrorCode = "auth_error"
	ProviderErrTokenExpired ProviderErrorCode = "token_expired"
	ProviderErrRateLimit    ProviderErrorCode = "rate_limit"
	ProviderErrNotFound     ProviderErrorCode = "not_found"
	ProviderErrServer       ProviderErrorCode = "server_error"
)

// ProviderError wraps an upstream provider failure with its classification.
type ProviderError struct {
	Provider  string
	Code      ProviderErrorCode
	Message   string
	Err       error
	Retryable bool
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError creates a classified provider error.
func NewProviderError(provider string, code ProviderErrorCode, message string, err error, retryable bool) *ProviderError {
	return &ProviderError{
		Provider:  provider,
		Code:      code,
		Message:   message,
		Err:       err,
		Retryable: retryable,
	}
}
