package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Alwanly/service-fleet-monitor/internal/server/agent/dto"
	"github.com/Alwanly/service-fleet-monitor/internal/server/agent/repository"
)

type Handler struct {
	repo repository.IRepository
}

func NewHandler(router fiber.Router, repo repository.IRepository) *Handler {
	h := &Handler{repo: repo}
	router.Get("/health", h.Health)
	return h
}

// Health reports registration progress and the last heartbeat delivery.
// 202 while registering, 503 once registration has failed, 200 otherwise.
func (h *Handler) Health(c *fiber.Ctx) error {
	response := h.repo.Snapshot()

	statusCode := fiber.StatusOK
	switch response.Status {
	case dto.StatusRegistrationFailed:
		statusCode = fiber.StatusServiceUnavailable
	case dto.StatusRegistering:
		statusCode = fiber.StatusAccepted
	}

	return c.Status(statusCode).JSON(response)
}
