package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/car-marketplace/internal/persistence"
)

// HealthHandler responds to liveness and readiness probes. Readiness fails
// when either backing store is down: without Postgres no account can be read,
// without Redis no session can be resolved.
type HealthHandler struct {
	serviceName string
	version     string
	postgres    *persistence.Postgres
	redis       *persistence.Redis
}

// NewHealthHandler returns a new handler instance.
func NewHealthHandler(serviceName, version string, postgres *persistence.Postgres, redis *persistence.Redis) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, version: version, postgres: postgres, redis: redis}
}

// Live reports process liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready reports whether both backing stores answer.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	stores := fiber.Map{
		"accounts": storeStatus(h.postgres.Ping(ctx)),
		"sessions": storeStatus(h.redis.Ping(ctx)),
	}

	status := http.StatusOK
	overall := "ready"
	for _, v := range stores {
		if v != "ok" {
			status = http.StatusServiceUnavailable
			overall = "degraded"
		}
	}

	return c.Status(status).JSON(fiber.Map{
		"status":  overall,
		"service": h.serviceName,
		"version": h.version,
		"stores":  stores,
	})
}

func storeStatus(err error) string {
	if err != nil {
		return err.Error()
	}
	return "ok"
}
