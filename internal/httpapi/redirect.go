package httpapi

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/MagnunAVF/affiliate-tracker/internal/logger"
	"github.com/MagnunAVF/affiliate-tracker/internal/tracking"
)

// handleRedirect answers GET /refer/:slug with a 302. The click is written
// after the response by a detached task, so every value is copied out of
// the fiber context first.
func (h *handlers) handleRedirect(c *fiber.Ctx) error {
	ctx := c.UserContext()
	req := tracking.RedirectRequest{
		Slug:        utils.CopyString(c.Params("slug")),
		IP:          clientIP(c),
		UserAgent:   utils.CopyString(c.Get(fiber.HeaderUserAgent)),
		Referer:     utils.CopyString(c.Get(fiber.HeaderReferer)),
		Country:     utils.CopyString(c.Get("CF-IPCountry")),
		UTMSource:   utils.CopyString(c.Query("utm_source")),
		UTMMedium:   utils.CopyString(c.Query("utm_medium")),
		UTMCampaign: utils.CopyString(c.Query("utm_campaign")),
	}

	target, err := h.deps.Dispatcher.Dispatch(ctx, req)
	if errors.Is(err, tracking.ErrSlugNotFound) {
		return c.Status(fiber.StatusNotFound).SendString("Link not found or is inactive.")
	}
	if err != nil {
		logger.FromContext(ctx).Error("redirect failed", "slug", req.Slug, "err", err)
		return c.Status(fiber.StatusInternalServerError).SendString("An error occurred.")
	}

	return c.Redirect(target, fiber.StatusFound)
}
