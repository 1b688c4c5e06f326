// Package provider implements mail provider adapters.
package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"inboxpilot/core/port/out"
	"inboxpilot/pkg/logger"
)

// scanLabel restricts the scan to the inbox; recencyQueryFmt keeps it to the
// recent window so a first scan does not walk years of mail.
const (
	scanLabel       = "INBOX"
	recencyQueryFmt = "newer_than:%dd"

	// maxPageSize is the upper bound one list call may request.
	maxPageSize = 100
)

// TokenManager refreshes OAuth tokens against the Google endpoint.
type TokenManager struct {
	config *oauth2.Config
}

func NewTokenManager(config *oauth2.Config) *TokenManager {
	return &TokenManager{config: config}
}

// Refresh forces a refresh-token exchange regardless of the access token's
// recorded expiry. A 401 from the API means the token is dead even when its
// Expiry says otherwise, so the oauth2 auto-refresh cannot be trusted here.
func (m *TokenManager) Refresh(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error) {
	stale := &oauth2.Token{
		RefreshToken: token.RefreshToken,
		Expiry:       time.Unix(1, 0), // mark expired to force the exchange
	}
	fresh, err := m.config.TokenSource(ctx, stale).Token()
	if err != nil {
		return nil, err
	}
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = token.RefreshToken
	}
	return fresh, nil
}

// GmailConfig holds Gmail OAuth configuration.
type GmailConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	RecencyDays int           // mailbox recency window for list queries
	DetailDelay time.Duration // throttle before each detail fetch
}

// GmailAdapter implements out.MailProvider against the Gmail API.
type GmailAdapter struct {
	config       *oauth2.Config
	tokenManager *TokenManager
	cb           *gobreaker.CircuitBreaker
	log          *logger.Logger

	recencyDays int
	detailDelay time.Duration
}

func NewGmailAdapter(cfg *GmailConfig, log *logger.Logger) *GmailAdapter {
	config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       []string{gmail.GmailReadonlyScope},
		Endpoint:     google.Endpoint,
	}

	cbSettings := gobreaker.Settings{
		Name:        "gmail-api",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state changed")
		},
	}

	recencyDays := cfg.RecencyDays
	if recencyDays <= 0 {
		recencyDays = 7
	}

	return &GmailAdapter{
		config:       config,
		tokenManager: NewTokenManager(config),
		cb:           gobreaker.NewCircuitBreaker(cbSettings),
		log:          log,
		recencyDays:  recencyDays,
		detailDelay:  cfg.DetailDelay,
	}
}

// AuthURL returns the OAuth authorization URL.
func (a *GmailAdapter) AuthURL(state string) string {
	return a.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// ExchangeToken exchanges an authorization code for a token.
func (a *GmailAdapter) ExchangeToken(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := a.config.Exchange(ctx, code)
	if err != nil {
		return nil, a.wrapError(err, "failed to exchange token")
	}
	return token, nil
}

// FetchPage lists one page of inbox message references within the recency
// window. On a 401 the token is refreshed once in place and the call retried;
// a second 401 surfaces as token_expired.
func (a *GmailAdapter) FetchPage(ctx context.Context, token *oauth2.Token, maxResults int64, pageToken string) (*out.RawPage, error) {
	maxResults = clampPageSize(maxResults)

	var resp *gmail.ListMessagesResponse
	err := a.withRefreshRetry(ctx, token, func(svc *gmail.Service) error {
		return a.executeWithCircuitBreaker("FetchPage", func() error {
			req := svc.Users.Messages.List("me").
				LabelIds(scanLabel).
				Q(fmt.Sprintf(recencyQueryFmt, a.recencyDays)).
				MaxResults(maxResults)
			if pageToken != "" {
				req = req.PageToken(pageToken)
			}
			var apiErr error
			resp, apiErr = req.Context(ctx).Do()
			return apiErr
		})
	})
	if err != nil {
		return nil, a.wrapError(err, "failed to list messages")
	}

	page := &out.RawPage{NextPageToken: resp.NextPageToken}
	for _, m := range resp.Messages {
		page.Messages = append(page.Messages, out.RawRef{ID: m.Id, ThreadID: m.ThreadId})
	}
	return page, nil
}

// clampPageSize bounds a list request to the API's page limit. Out-of-range
// values, including misconfigured overrides, fall back to the maximum.
func clampPageSize(n int64) int64 {
	if n < 1 || n > maxPageSize {
		return maxPageSize
	}
	return n
}

// FetchMessage pulls the full payload for one message. Each call waits the
// configured throttle first to stay inside the per-user quota during a scan.
func (a *GmailAdapter) FetchMessage(ctx context.Context, token *oauth2.Token, messageID string) (*out.RawMessage, error) {
	if a.detailDelay > 0 {
		select {
		case <-time.After(a.detailDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	var msg *gmail.Message
	err := a.withRefreshRetry(ctx, token, func(svc *gmail.Service) error {
		return a.executeWithCircuitBreaker("FetchMessage", func() error {
			var apiErr error
			msg, apiErr = svc.Users.Messages.Get("me", messageID).Format("full").Context(ctx).Do()
			return apiErr
		})
	})
	if err != nil {
		return nil, a.wrapError(err, "failed to get message")
	}

	return convertMessage(msg), nil
}

// withRefreshRetry runs fn against a Gmail service and, on the first 401,
// refreshes the token in place and retries exactly once.
func (a *GmailAdapter) withRefreshRetry(ctx context.Context, token *oauth2.Token, fn func(svc *gmail.Service) error) error {
	svc, err := a.getService(ctx, token)
	if err != nil {
		return err
	}

	err = fn(svc)
	if !isUnauthorized(err) {
		return err
	}

	a.log.Info("access token rejected, refreshing")
	fresh, refreshErr := a.tokenManager.Refresh(ctx, token)
	if refreshErr != nil {
		return out.NewProviderError("gmail", out.ProviderErrTokenExpired, "token refresh failed", refreshErr, false)
	}
	*token = *fresh

	svc, err = a.getService(ctx, token)
	if err != nil {
		return err
	}
	return fn(svc)
}

func (a *GmailAdapter) getService(ctx context.Context, token *oauth2.Token) (*gmail.Service, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
	}

	return gmail.NewService(ctx, option.WithTokenSource(
		oauth2.StaticTokenSource(token),
	))
}

// executeWithCircuitBreaker wraps an API call with circuit breaker protection.
// Client errors (4xx) must not trip the breaker; only server-side failures do.
func (a *GmailAdapter) executeWithCircuitBreaker(operation string, fn func() error) error {
	_, err := a.cb.Execute(func() (interface{}, error) {
		if err := fn(); err != nil {
			if apiErr, ok := err.(*googleapi.Error); ok {
				switch apiErr.Code {
				case 500, 502, 503, 429:
					return nil, err
				case 400, 401, 403, 404:
					return nil, &nonCircuitError{err: err}
				}
			}
			return nil, err
		}
		return nil, nil
	})

	if nce, ok := err.(*nonCircuitError); ok {
		return nce.err
	}

	if err != nil {
		a.log.WithError(err).WithFields(map[string]any{
			"operation": operation,
			"state":     a.cb.State().String(),
		}).Error("gmail call failed")
	}

	return err
}

// nonCircuitError wraps errors that should not trip the circuit breaker.
type nonCircuitError struct {
	err error
}

func (e *nonCircuitError) Error() string {
	return e.err.Error()
}

func isUnauthorized(err error) bool {
	apiErr, ok := err.(*googleapi.Error)
	return ok && apiErr.Code == 401
}

func (a *GmailAdapter) wrapError(err error, defaultMsg string) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*out.ProviderError); ok {
		return err
	}

	if apiErr, ok := err.(*googleapi.Error); ok {
		switch apiErr.Code {
		case 401:
			return out.NewProviderError("gmail", out.ProviderErrTokenExpired, "Token expired", err, false)
		case 403:
			if strings.Contains(apiErr.Message, "Rate Limit") {
				return out.NewProviderError("gmail", out.ProviderErrRateLimit, "Rate limit exceeded", err, true)
			}
			return out.NewProviderError("gmail", out.ProviderErrAuth, "Access denied", err, false)
		case 404:
			return out.NewProviderError("gmail", out.ProviderErrNotFound, "Not found", err, false)
		case 429:
			return out.NewProviderError("gmail", out.ProviderErrRateLimit, "Too many requests", err, true)
		case 500, 502, 503:
			return out.NewProviderError("gmail", out.ProviderErrServer, "Server error", err, true)
		}
	}

	return out.NewProviderError("gmail", out.ProviderErrServer, defaultMsg, err, true)
}

// convertMessage detaches the SDK message into the port payload.
func convertMessage(msg *gmail.Message) *out.RawMessage {
	result := &out.RawMessage{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		LabelIDs: msg.LabelIds,
		Snippet:  msg.Snippet,
	}
	result.Payload = convertPart(msg.Payload)
	return result
}

func convertPart(part *gmail.MessagePart) *out.RawPart {
	if part == nil {
		return nil
	}

	raw := &out.RawPart{
		MimeType: part.MimeType,
		Filename: part.Filename,
	}
	for _, h := range part.Headers {
		raw.Headers = append(raw.Headers, out.RawHeader{Name: h.Name, Value: h.Value})
	}
	if part.Body != nil {
		raw.Data = part.Body.Data
		raw.AttachmentID = part.Body.AttachmentId
		raw.SizeBytes = part.Body.Size
	}
	for _, p := range part.Parts {
		raw.Parts = append(raw.Parts, convertPart(p))
	}
	return raw
}

var _ out.MailProvider = (*GmailAdapter)(nil)
