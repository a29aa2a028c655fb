package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/groceryshare/backend/pkg/logger"
)

// RequestLogger emits one structured event per handled request.
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		fields := map[string]interface{}{
			"method":      c.Method(),
			"path":        c.Path(),
			"status":      c.Response().StatusCode(),
			"duration_ms": time.Since(start).Milliseconds(),
			"ip":          c.IP(),
		}
		if user := GetCurrentUser(c); user != nil {
			fields["user_id"] = user.ID.String()
		}
		logger.Info("http_request", fields)

		return err
	}
}

// SecurityLogger flags authentication failures and permission denials.
func SecurityLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		status := c.Response().StatusCode()
		if status == fiber.StatusUnauthorized || status == fiber.StatusForbidden {
			logger.Warn("security_denied", map[string]interface{}{
				"method": c.Method(),
				"path":   c.Path(),
				"status": status,
				"ip":     c.IP(),
			})
		}

		return err
	}
}
