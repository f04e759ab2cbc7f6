package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/mx32-chat/backend/internal/storage/sqlite"
	"github.com/mx32-chat/backend/pkg/logger"
)

type HistoryHandler struct {
	store *sqlite.Client
}

func NewHistoryHandler(store *sqlite.Client) *HistoryHandler {
	return &HistoryHandler{
		store: store,
	}
}

// GetChatHistory returns logged exchanges for a session, newest first.
func (h *HistoryHandler) GetChatHistory(c *fiber.Ctx) error {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "session_id is required",
		})
	}

	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	records, err := h.store.GetSessionRecords(c.Context(), sessionID, limit)
	if err != nil {
		logger.Error("Failed to read chat history",
			zap.String("session_id", sessionID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read chat history",
		})
	}

	items := make([]fiber.Map, 0, len(records))
	for _, r := range records {
		items = append(items, fiber.Map{
			"id":           r.ID,
			"user_message": r.UserMessage,
			"response":     r.Response,
			"confidence":   r.Confidence,
			"intent":       r.Intent,
			"rag_enabled":  r.RAGEnabled,
			"latency_ms":   r.LatencyMS,
			"created_at":   r.CreatedAt.Unix(),
		})
	}

	return c.JSON(fiber.Map{
		"session_id": sessionID,
		"history":    items,
		"count":      len(items),
	})
}
