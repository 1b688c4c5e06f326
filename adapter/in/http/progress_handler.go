package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"inboxpilot/core/domain"
	"inboxpilot/core/port/out"
	"inboxpilot/pkg/apperr"
	"inboxpilot/pkg/response"
)

type ProgressHandler struct {
	progress out.ProgressRepository
}

func NewProgressHandler(progress out.ProgressRepository) *ProgressHandler {
	return &ProgressHandler{progress: progress}
}

type progressResponse struct {
	UserID            string                  `json:"user_id"`
	Steps             []domain.ProgressRecord `json:"steps"`
	OverallPercentage int                     `json:"overall_percentage"`
}

// Get returns the user's onboarding steps plus the averaged overall
// percentage the UI polls for.
func (h *ProgressHandler) Get(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("userId"))
	if err != nil {
		return apperr.InvalidInput("userId", "must be a valid UUID")
	}

	records, err := h.progress.Get(c.Context(), userID)
	if err != nil {
		return apperr.Database(err)
	}
	if records == nil {
		records = []domain.ProgressRecord{}
	}

	return response.OK(c, progressResponse{
		UserID:            userID.String(),
		Steps:             records,
		OverallPercentage: domain.OverallPercentage(records),
	})
}
