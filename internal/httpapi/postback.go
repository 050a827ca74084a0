package httpapi

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/MagnunAVF/affiliate-tracker/internal/logger"
	"github.com/MagnunAVF/affiliate-tracker/internal/postback"
	"github.com/MagnunAVF/affiliate-tracker/internal/tracking"
)

const postbackSecretHeader = "X-Postback-Secret"

// handlePostback answers the affiliate network. Any 2xx stops its retries,
// so 200 is only sent after the conversion is committed.
func (h *handlers) handlePostback(c *fiber.Ctx) error {
	ctx := c.UserContext()

	secret := c.Query("secret")
	if secret == "" {
		secret = c.Get(postbackSecretHeader)
	}

	_, err := h.deps.Postbacks.Ingest(ctx, tracking.PostbackRequest{
		Vendor: utils.CopyString(c.Params("vendor")),
		Secret: secret,
		Body:   c.Body(),
	})

	var ve *postback.ValidationError
	switch {
	case err == nil:
		return c.JSON(fiber.Map{"status": "success"})
	case errors.Is(err, tracking.ErrUnauthorized):
		return errorJSON(c, fiber.StatusUnauthorized, "Unauthorized")
	case errors.As(err, &ve):
		return errorJSON(c, fiber.StatusBadRequest, ve.Error())
	case errors.Is(err, tracking.ErrOfferUndetermined):
		return errorJSON(c, fiber.StatusBadRequest, "Cannot determine product offer")
	default:
		logger.FromContext(ctx).Error("postback failed", "vendor", c.Params("vendor"), "err", err)
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to record conversion")
	}
}
