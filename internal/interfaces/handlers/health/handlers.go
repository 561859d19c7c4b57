package health

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Handlers holds dependencies for health endpoints.
type Handlers struct {
	DB  *gorm.DB
	Rdb *redis.Client
}

// JSON GET /health/json — service status plus dependency checks.
func (h *Handlers) JSON(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	deps := fiber.Map{
		"database": h.pingDB(ctx),
		"redis":    h.pingRedis(ctx),
	}
	status := "ok"
	for _, v := range deps {
		if v != "up" {
			status = "degraded"
		}
	}
	return c.JSON(fiber.Map{
		"service":      "wicked-invoicing-api",
		"status":       status,
		"time":         time.Now().UTC().Format(time.RFC3339),
		"dependencies": deps,
	})
}

func (h *Handlers) pingDB(ctx context.Context) string {
	if h.DB == nil {
		return "down"
	}
	sqlDB, err := h.DB.DB()
	if err != nil || sqlDB.PingContext(ctx) != nil {
		return "down"
	}
	return "up"
}

func (h *Handlers) pingRedis(ctx context.Context) string {
	if h.Rdb == nil || h.Rdb.Ping(ctx).Err() != nil {
		return "down"
	}
	return "up"
}
