package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	version      = "0.1.0"
	readyTimeout = 2 * time.Second
)

// ReadyFunc reports whether a dependency is reachable
type ReadyFunc func(ctx context.Context) error

type HealthHandler struct {
	ready ReadyFunc
}

// NewHealthHandler creates a HealthHandler. A nil ready func always reports ready.
func NewHealthHandler(ready ReadyFunc) *HealthHandler {
	return &HealthHandler{ready: ready}
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:  "ok",
		Version: version,
	})
}

func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	if h.ready != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), readyTimeout)
		defer cancel()

		if err := h.ready(ctx); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(HealthResponse{
				Status: "unavailable",
				Error:  "session store unreachable",
			})
		}
	}

	return c.JSON(HealthResponse{
		Status: "ready",
	})
}
