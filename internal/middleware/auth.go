package middleware

import (
	"agrinerds-backend/internal/pkg/constants"
	"agrinerds-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const userLocal = "user"

// Actor is the authenticated caller resolved from the session. The core
// trusts this identity as authoritative.
type Actor struct {
	UserID   uuid.UUID
	Fullname string
	Email    string
	Role     string
}

// RequireAuth ensures a user is in the session. Returns 401 with standard error format if not.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if GetActor(c) == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		return c.Next()
	}
}

// RequireRole ensures the session user holds the given role (farmer or company).
func RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor := GetActor(c)
		if actor == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		if actor.Role != role {
			return response.Error(c, "Forbidden: insufficient role", fiber.StatusForbidden, nil)
		}
		return c.Next()
	}
}

// GetUser returns the session user from Locals (nil if not logged in).
func GetUser(c *fiber.Ctx) interface{} {
	return c.Locals(userLocal)
}

// GetActor parses the session user map into an Actor. Nil when not logged
// in or the stored shape is unusable.
func GetActor(c *fiber.Ctx) *Actor {
	u := GetUser(c)
	if u == nil {
		return nil
	}
	m, ok := u.(map[string]interface{})
	if !ok {
		return nil
	}
	idStr, _ := m["user_id"].(string)
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil
	}
	actor := &Actor{UserID: id}
	if s, ok := m["fullname"].(string); ok {
		actor.Fullname = s
	}
	if s, ok := m["email"].(string); ok {
		actor.Email = s
	}
	if s, ok := m["role"].(string); ok {
		actor.Role = s
	}
	if actor.Role != constants.RoleFarmer && actor.Role != constants.RoleCompany {
		return nil
	}
	return actor
}
