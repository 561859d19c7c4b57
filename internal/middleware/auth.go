package middleware

import (
	"wicked-backend/internal/application/statuses"
	"wicked-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const userLocal = "user"

// RequireAuth ensures a user is in the session. Returns 401 in the
// standard error format if not.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Locals(userLocal) == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		return c.Next()
	}
}

// GetUser returns the session user from Locals (nil if not logged in).
func GetUser(c *fiber.Ctx) interface{} {
	return c.Locals(userLocal)
}

// CurrentActor converts the session user into the resolver's actor shape.
// A zero-ID actor means no authenticated user.
func CurrentActor(c *fiber.Ctx) statuses.Actor {
	m, ok := GetUser(c).(map[string]interface{})
	if !ok {
		return statuses.Actor{}
	}
	var actor statuses.Actor
	switch id := m["user_id"].(type) {
	case float64:
		actor.ID = uint(id)
	case int:
		actor.ID = uint(id)
	case uint:
		actor.ID = id
	}
	if roles, ok := m["roles"].([]interface{}); ok {
		for _, r := range roles {
			if s, ok := r.(string); ok {
				actor.Roles = append(actor.Roles, s)
			}
		}
	}
	return actor
}

// CurrentEmail returns the session user's email, if any.
func CurrentEmail(c *fiber.Ctx) string {
	m, ok := GetUser(c).(map[string]interface{})
	if !ok {
		return ""
	}
	s, _ := m["email"].(string)
	return s
}
