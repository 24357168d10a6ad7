package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/hivex-io/hivex/internal/model"
	"github.com/hivex-io/hivex/internal/service"
)

// identityKey is the fiber Locals key holding the caller's model.Identity.
const identityKey = "identity"

// TokenVerifier resolves a bearer token to an identity.
type TokenVerifier interface {
	Verify(token string) (model.Identity, error)
}

// Authenticate requires a valid bearer token and stores the identity on the request.
func Authenticate(tokens TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(raw) == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing or invalid token"})
		}

		identity, err := tokens.Verify(strings.TrimSpace(raw))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
		}
		c.Locals(identityKey, identity)
		return c.Next()
	}
}

// RequireRole rejects callers whose role is not listed. Must run after Authenticate.
func RequireRole(roles ...model.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := identityFrom(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing or invalid token"})
		}
		for _, r := range roles {
			if identity.Role == r {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "forbidden",
			"code":  service.CodeForbidden,
		})
	}
}

// identityFrom returns the identity stored by Authenticate.
func identityFrom(c *fiber.Ctx) (model.Identity, bool) {
	identity, ok := c.Locals(identityKey).(model.Identity)
	return identity, ok
}
