package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"inboxpilot/core/domain"
	"inboxpilot/core/service/email"
	"inboxpilot/pkg/apperr"
	"inboxpilot/pkg/response"
)

type EmailHandler struct {
	emails *email.Service
	sync   *email.SyncService
}

func NewEmailHandler(emails *email.Service, sync *email.SyncService) *EmailHandler {
	return &EmailHandler{emails: emails, sync: sync}
}

// List returns one page of stored emails for the authenticated user.
func (h *EmailHandler) List(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uuid.UUID)
	if !ok {
		return apperr.Unauthorized("missing authentication")
	}

	page := domain.EmailPage{
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("page_size", 20),
	}
	filter := domain.EmailFilter{
		Category: domain.Category(c.Query("category")),
		Search:   c.Query("search"),
	}
	if filter.Category != "" && !filter.Category.Valid() {
		return apperr.InvalidInput("category", "unknown category")
	}

	emails, total, err := h.emails.ListEmails(c.Context(), userID, filter, page)
	if err != nil {
		return apperr.Database(err)
	}
	if emails == nil {
		emails = []domain.Email{}
	}

	return response.OKWithMeta(c, emails, &response.Meta{
		Total:    total,
		Page:     page.Page,
		PageSize: page.PageSize,
		HasMore:  page.Page*page.PageSize < total,
	})
}

// Processed serves the fast-store mirror. The read path degrades: a mirror
// outage yields an empty list, never a 5xx.
func (h *EmailHandler) Processed(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uuid.UUID)
	if !ok {
		return apperr.Unauthorized("missing authentication")
	}

	emails := h.emails.GetProcessedEmails(c.Context(), userID)
	return response.OK(c, emails)
}

// Sync reconciles the mirror into the canonical store on demand.
func (h *EmailHandler) Sync(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uuid.UUID)
	if !ok {
		return apperr.Unauthorized("missing authentication")
	}

	result, err := h.sync.Sync(c.Context(), userID)
	if err != nil {
		return apperr.Database(err)
	}
	return response.OK(c, result)
}
