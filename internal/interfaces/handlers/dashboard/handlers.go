package dashboard

import (
	dashsvc "wicked-backend/internal/application/dashboard"
	"wicked-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *dashsvc.Service
}

// Summary GET /api/v1/dashboard/summary
func (h *Handlers) Summary(c *fiber.Ctx) error {
	summary, err := h.Service.Collect(c.Context())
	if err != nil {
		return response.Error(c, "Failed to collect dashboard summary", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Dashboard summary", fiber.Map{"summary": summary}, nil)
}
