// Package http exposes the pipeline over fiber handlers.
package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"inboxpilot/core/service/pipeline"
	"inboxpilot/pkg/apperr"
	"inboxpilot/pkg/logger"
)

type ScanHandler struct {
	orchestrator *pipeline.Orchestrator
}

func NewScanHandler(orchestrator *pipeline.Orchestrator) *ScanHandler {
	return &ScanHandler{orchestrator: orchestrator}
}

type scanRequest struct {
	UserID string `json:"user_id"`
}

type scanResponse struct {
	Success        bool `json:"success"`
	ProcessedCount int  `json:"processed_count"`
}

// Scan runs the full pipeline for one user synchronously and reports how many
// emails made it through.
func (h *ScanHandler) Scan(c *fiber.Ctx) error {
	var req scanRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return apperr.InvalidInput("user_id", "must be a valid UUID")
	}

	count, err := h.orchestrator.Run(c.Context(), userID)
	if err != nil {
		logger.WithError(err).WithField("user_id", userID.String()).Error("scan failed")
		return apperr.Internal(err)
	}

	return c.JSON(scanResponse{Success: true, ProcessedCount: count})
}
