package httpapi

import (
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/MagnunAVF/affiliate-tracker/internal/logger"
	"github.com/MagnunAVF/affiliate-tracker/internal/tracking"
)

const overviewTopSlugs = 20

// requireAdmin checks a static bearer token. An empty token disables the
// admin API altogether.
func requireAdmin(token string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		got, ok := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
		if token == "" || !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			return errorJSON(c, fiber.StatusUnauthorized, "Unauthorized")
		}
		return c.Next()
	}
}

func (h *handlers) handleListSlugs(c *fiber.Ctx) error {
	slugs, err := h.deps.Slugs.List(c.UserContext())
	if err != nil {
		return h.adminError(c, err)
	}
	return c.JSON(fiber.Map{"status": "success", "refer_slugs": slugs})
}

func (h *handlers) handleCreateSlug(c *fiber.Ctx) error {
	var in tracking.CreateSlugInput
	if err := c.BodyParser(&in); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid request body")
	}
	rs, err := h.deps.Slugs.Create(c.UserContext(), in)
	if err != nil {
		return h.adminError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "success", "id": rs.ID, "public_slug": rs.PublicSlug})
}

func (h *handlers) handleUpdateSlug(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return errorJSON(c, fiber.StatusBadRequest, "invalid id")
	}
	var in tracking.UpdateSlugInput
	if err := c.BodyParser(&in); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid request body")
	}
	rs, err := h.deps.Slugs.Update(c.UserContext(), int64(id), in)
	if err != nil {
		return h.adminError(c, err)
	}
	return c.JSON(fiber.Map{"status": "success", "refer_slug": rs})
}

func (h *handlers) handleDeactivateSlug(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return errorJSON(c, fiber.StatusBadRequest, "invalid id")
	}
	if err := h.deps.Slugs.Deactivate(c.UserContext(), int64(id)); err != nil {
		return h.adminError(c, err)
	}
	return c.JSON(fiber.Map{"status": "success", "id": id, "is_active": false})
}

func (h *handlers) handleOverview(c *fiber.Ctx) error {
	ov, err := h.deps.Analytics.Overview(c.UserContext(), overviewTopSlugs)
	if err != nil {
		return h.adminError(c, err)
	}
	return c.JSON(fiber.Map{"status": "success", "overview": ov})
}

func (h *handlers) adminError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, tracking.ErrInvalidInput), errors.Is(err, tracking.ErrOfferNotFound):
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, tracking.ErrSlugNotFound):
		return errorJSON(c, fiber.StatusNotFound, "Refer slug not found")
	case errors.Is(err, tracking.ErrSlugConflict):
		return errorJSON(c, fiber.StatusConflict, "Public slug already exists")
	default:
		logger.FromContext(c.UserContext()).Error("admin request failed", "err", err)
		return errorJSON(c, fiber.StatusInternalServerError, "Database error")
	}
}
