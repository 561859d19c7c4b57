package middleware

import (
	"wicked-backend/internal/application/statuses"
	"wicked-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AuthorizeCapability returns a handler that checks the session user
// against the capability resolver. Multiple capabilities are OR-ed: any
// grant passes (notification settings accept either the manage or the
// settings capability).
func AuthorizeCapability(resolver *statuses.Resolver, caps ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor := CurrentActor(c)
		if actor.ID == 0 {
			return response.Unauthorized(c, "Unauthorized")
		}
		for _, cap := range caps {
			if resolver.UserHasCap(c.Context(), actor, cap) {
				return c.Next()
			}
		}
		return response.Forbidden(c, "User is Forbidden from performing this action")
	}
}
