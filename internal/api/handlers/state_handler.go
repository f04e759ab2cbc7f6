package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/mx32-chat/backend/internal/aggregator"
	"github.com/mx32-chat/backend/pkg/logger"
)

type StateHandler struct {
	aggregator *aggregator.Aggregator
}

func NewStateHandler(agg *aggregator.Aggregator) *StateHandler {
	return &StateHandler{
		aggregator: agg,
	}
}

// QueryState returns the full aggregated view for one state.
func (h *StateHandler) QueryState(c *fiber.Ctx) error {
	var req struct {
		State string `json:"state"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse state query", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.State == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "State is required",
		})
	}

	view, err := h.aggregator.Aggregate(c.Context(), req.State)
	if err != nil {
		if errors.Is(err, aggregator.ErrStateNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "State not found",
				"state": req.State,
			})
		}
		logger.Error("State aggregation failed",
			zap.String("state", req.State), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to aggregate state data",
		})
	}

	return c.JSON(view)
}

// ListStates returns the state catalog.
func (h *StateHandler) ListStates(c *fiber.Ctx) error {
	states, err := h.aggregator.ListStates(c.Context())
	if err != nil {
		logger.Error("Failed to list states", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list states",
		})
	}

	return c.JSON(fiber.Map{
		"states": states,
		"count":  len(states),
	})
}

// GetStateSummary returns parameter availability counts for one state.
func (h *StateHandler) GetStateSummary(c *fiber.Ctx) error {
	name := c.Params("name")
	if name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "State name is required",
		})
	}

	summary, err := h.aggregator.Summarize(c.Context(), name)
	if err != nil {
		if errors.Is(err, aggregator.ErrStateNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "State not found",
				"state": name,
			})
		}
		logger.Error("State summary failed",
			zap.String("state", name), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to summarize state",
		})
	}

	return c.JSON(summary)
}

// FindSimilarStates runs the similarity search around a reference
// state.
func (h *StateHandler) FindSimilarStates(c *fiber.Ctx) error {
	var req struct {
		State     string `json:"state"`
		Parameter string `json:"parameter"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.State == "" || req.Parameter == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "State and parameter are required",
		})
	}

	result, err := h.aggregator.SimilarStates(c.Context(), req.State, req.Parameter)
	if err != nil {
		if errors.Is(err, aggregator.ErrStateNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "State not found",
				"state": req.State,
			})
		}
		logger.Error("Similarity search failed",
			zap.String("state", req.State), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to search similar states",
		})
	}

	return c.JSON(result)
}
