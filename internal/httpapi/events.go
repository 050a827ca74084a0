package httpapi

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/MagnunAVF/affiliate-tracker/internal/logger"
	"github.com/MagnunAVF/affiliate-tracker/internal/tracking"
)

// handleEvents accepts a JSON array regardless of content type; beacons
// from the browser often arrive as text/plain.
func (h *handlers) handleEvents(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var events []tracking.EventInput
	if err := json.Unmarshal(c.Body(), &events); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "body must be a JSON array of events")
	}

	n, err := h.deps.Events.Record(ctx, events, clientIP(c))
	if errors.Is(err, tracking.ErrInvalidInput) {
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}
	if err != nil {
		logger.FromContext(ctx).Error("event batch lost", "count", len(events), "err", err)
		return errorJSON(c, fiber.StatusInternalServerError, "Logging failed")
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "success", "logged": n})
}
