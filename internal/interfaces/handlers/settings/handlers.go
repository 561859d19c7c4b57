package settings

import (
	setsvc "wicked-backend/internal/application/settings"
	"wicked-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *setsvc.Service
}

// Get GET /api/v1/settings — the core settings blob.
func (h *Handlers) Get(c *fiber.Ctx) error {
	return response.Success(c, "Settings", fiber.Map{"settings": h.Service.Core(c.Context())}, nil)
}

// Save POST /api/v1/settings — replaces the core settings blob. Saving
// bumps the settings version, which invalidates resolver label caches.
func (h *Handlers) Save(c *fiber.Ctx) error {
	var cs setsvc.CoreSettings
	if err := c.BodyParser(&cs); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if err := h.Service.SaveCore(c.Context(), cs); err != nil {
		return response.Error(c, "Failed to save settings", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Settings saved", fiber.Map{"settings": h.Service.Core(c.Context())}, nil)
}
