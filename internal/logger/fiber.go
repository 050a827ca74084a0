package logger

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
)

// FiberMiddleware tags every request with an id (X-Request-ID is honored when
// the caller sends one), stores it in the user context and logs the outcome.
// The query string is left out of the log line: postback secrets travel there.
func FiberMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		requestID := c.Get(fiber.HeaderXRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		} else {
			requestID = utils.CopyString(requestID)
		}
		c.Set(fiber.HeaderXRequestID, requestID)
		c.SetUserContext(WithRequestID(c.UserContext(), requestID))

		err := c.Next()
		latency := time.Since(start)

		route := ""
		if r := c.Route(); r != nil {
			route = r.Path
		}

		attrs := []any{
			"status", c.Response().StatusCode(),
			"method", c.Method(),
			"path", c.Path(),
			"route", route,
			"user_agent", c.Get(fiber.HeaderUserAgent),
			"latency_ms", float64(latency.Microseconds()) / 1000.0,
		}

		log := FromContext(c.UserContext())
		if err != nil {
			log.Error("http request", append(attrs, "err", err.Error())...)
			return err
		}
		log.Info("http request", attrs...)
		return nil
	}
}
