package httpapi

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MagnunAVF/affiliate-tracker/internal/logger"
	"github.com/MagnunAVF/affiliate-tracker/internal/store"
	"github.com/MagnunAVF/affiliate-tracker/internal/tracking"
)

type AnalyticsReader interface {
	Overview(ctx context.Context, topN int) (store.Overview, error)
}

// Dependencies are the services behind the HTTP surface. Nothing here is
// global; main builds one set per process.
type Dependencies struct {
	Dispatcher *tracking.Dispatcher
	Postbacks  *tracking.PostbackIngestor
	Events     *tracking.EventRecorder
	Slugs      *tracking.SlugAdmin
	Analytics  AnalyticsReader
	AdminToken string
}

type handlers struct {
	deps Dependencies
}

func NewRouter(deps Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	app.Use(recover.New())
	app.Use(logger.FiberMiddleware())

	h := &handlers{deps: deps}

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Get("/refer/:slug", h.handleRedirect)
	app.Post("/postback/:vendor", h.handlePostback)
	app.Use("/events", cors.New())
	app.Post("/events", h.handleEvents)

	admin := app.Group("/admin", requireAdmin(deps.AdminToken))
	admin.Get("/refer-slugs", h.handleListSlugs)
	admin.Post("/refer-slugs", h.handleCreateSlug)
	admin.Put("/refer-slugs/:id", h.handleUpdateSlug)
	admin.Delete("/refer-slugs/:id", h.handleDeactivateSlug)
	admin.Get("/analytics/overview", h.handleOverview)

	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		logger.FromContext(c.UserContext()).Error("unhandled request error", "status", code, "err", err)
	}
	return errorJSON(c, code, err.Error())
}
