package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/mx32-chat/backend/internal/chat"
	"github.com/mx32-chat/backend/internal/llm"
	"github.com/mx32-chat/backend/internal/render"
	"github.com/mx32-chat/backend/pkg/logger"
)

type ChatHandler struct {
	engine *chat.Engine
}

func NewChatHandler(engine *chat.Engine) *ChatHandler {
	return &ChatHandler{
		engine: engine,
	}
}

type chatMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
	// Content is accepted as an alias for clients that send
	// OpenAI-shaped messages.
	Content string `json:"content"`
}

type chatRequest struct {
	Messages  []chatMessage          `json:"messages"`
	UserID    string                 `json:"user_id"`
	SessionID string                 `json:"session_id"`
	Context   map[string]interface{} `json:"context"`
	UseRAG    *bool                  `json:"use_rag"`
}

// HandleChat processes one conversation turn. Responses carrying
// markdown markers are rendered to HTML under the "html" key; plain
// responses go out under "text".
func (h *ChatHandler) HandleChat(c *fiber.Ctx) error {
	var req chatRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse chat request", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if len(req.Messages) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"text": "No se recibió ningún mensaje",
		})
	}

	last := req.Messages[len(req.Messages)-1]
	if last.Role != "user" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"text": "El último mensaje debe ser del usuario",
		})
	}

	messages := make([]llm.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		text := m.Text
		if text == "" {
			text = m.Content
		}
		messages = append(messages, llm.Message{Role: m.Role, Content: text})
	}

	currentState := ""
	if req.Context != nil {
		if state, ok := req.Context["current_state"].(string); ok {
			currentState = state
		}
	}

	useRAG := true
	if req.UseRAG != nil {
		useRAG = *req.UseRAG
	}

	env := h.engine.Process(c.Context(), chat.Request{
		SessionID:    req.SessionID,
		UserID:       req.UserID,
		Messages:     messages,
		CurrentState: currentState,
		UseRAG:       useRAG,
	})

	body := fiber.Map{
		"suggested_actions":   env.SuggestedActions,
		"follow_up_questions": env.FollowUpQuestions,
		"confidence":          env.Confidence,
		"sources":             env.Sources,
		"model_used":          env.ModelUsed,
		"rag_enabled":         env.RAGEnabled,
		"session_id":          env.SessionID,
		"intent":              env.Intent,
		"timestamp":           env.Timestamp,
	}

	if render.HasMarkdown(env.Response) {
		body["html"] = render.ToHTML(env.Response)
	} else {
		body["text"] = env.Response
	}

	return c.JSON(body)
}

// GetConversation returns the retained history for a session.
func (h *ChatHandler) GetConversation(c *fiber.Ctx) error {
	sessionID := c.Params("session_id")
	if sessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "session_id is required",
		})
	}

	history, err := h.engine.History(c.Context(), sessionID)
	if err != nil {
		logger.Error("Failed to load conversation",
			zap.String("session_id", sessionID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load conversation",
		})
	}

	return c.JSON(fiber.Map{
		"session_id": sessionID,
		"messages":   history,
		"count":      len(history),
	})
}

// ClearConversation discards a session's history.
func (h *ChatHandler) ClearConversation(c *fiber.Ctx) error {
	sessionID := c.Params("session_id")
	if sessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "session_id is required",
		})
	}

	if err := h.engine.Reset(c.Context(), sessionID); err != nil {
		logger.Error("Failed to clear conversation",
			zap.String("session_id", sessionID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to clear conversation",
		})
	}

	return c.JSON(fiber.Map{
		"session_id": sessionID,
		"cleared":    true,
	})
}
