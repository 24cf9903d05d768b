package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kujua-learning/kujua-api/database"
	"github.com/kujua-learning/kujua-api/utils/response"
)

// HealthHandler serves the liveness endpoint
type HealthHandler struct {
	store database.Storage
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store database.Storage) *HealthHandler {
	return &HealthHandler{store: store}
}

// Ping reports process and database health
func (h *HealthHandler) Ping(c *fiber.Ctx) error {
	dbStatus := "ok"
	if err := h.store.HealthCheck(); err != nil {
		dbStatus = "unreachable"
	}

	return response.Success(c, fiber.Map{
		"status":   "ok",
		"database": dbStatus,
		"time":     time.Now().UTC().Format(time.RFC3339),
	})
}
