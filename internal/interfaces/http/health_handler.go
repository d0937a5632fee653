package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// HealthCheck verifica una dependencia (ping).
type HealthCheck func(ctx context.Context) error

const healthTimeout = 2 * time.Second

// HealthHandler maneja GET /health.
type HealthHandler struct {
	service string
	checks  map[string]HealthCheck
}

// NewHealthHandler construye el handler; checks puede ser nil.
func NewHealthHandler(service string, checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{service: service, checks: checks}
}

// Check responde 200 si todas las dependencias responden, 503 si alguna falla.
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
	defer cancel()

	status, code := "ok", fiber.StatusOK
	deps := fiber.Map{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			deps[name] = err.Error()
			status, code = "degraded", fiber.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}
	return c.Status(code).JSON(fiber.Map{"status": status, "service": h.service, "dependencies": deps})
}
