package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Pinger is an interface for health check ping operations.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	pool        Pinger
	pingTimeout time.Duration
}

// NewHealthHandler creates a new HealthHandler with the given database pool.
func NewHealthHandler(pool Pinger) *HealthHandler {
	return &HealthHandler{pool: pool, pingTimeout: 2 * time.Second}
}

// Check performs a health check by pinging the database.
// Returns 200 OK with {"status": "healthy"} when the database is reachable.
// Returns 503 Service Unavailable with {"status": "unhealthy", "error": "..."}
// when the database does not answer within the ping timeout.
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), h.pingTimeout)
	defer cancel()

	if err := h.pool.Ping(ctx); err != nil {
		log.Error().Err(err).Msg("health check failed: database unreachable")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"service": "walimah-backend",
			"status":  "unhealthy",
			"error":   "database connection failed",
		})
	}
	return c.JSON(fiber.Map{
		"service": "walimah-backend",
		"status":  "healthy",
	})
}
