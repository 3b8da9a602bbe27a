package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/enrollment-api/database"
	"github.com/sahilchouksey/enrollment-api/utils/response"
)

// Pinger is a backing service checked by /ping next to the database
type Pinger interface {
	Ping(ctx context.Context) error
}

// CheckHealth builds the /ping handler. sessions is nil when sessions are kept in memory.
func CheckHealth(sessions Pinger) func(c *fiber.Ctx, store database.Storage) error {
	return func(c *fiber.Ctx, store database.Storage) error {
		if err := store.HealthCheck(); err != nil {
			log.Warnf("health check failed: %v", err)
			return response.ServiceUnavailable(c, "Database unavailable")
		}
		if sessions != nil {
			if err := sessions.Ping(c.UserContext()); err != nil {
				log.Warnf("session store health check failed: %v", err)
				return response.ServiceUnavailable(c, "Session store unavailable")
			}
		}
		return c.JSON(fiber.Map{"status": "ok"})
	}
}
