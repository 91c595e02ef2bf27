package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/apperr"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/models"
)

// RequireRoles must run after Auth.
func RequireRoles(allowed ...models.Role) fiber.Handler {
	allowedSet := map[models.Role]bool{}
	names := make([]string, 0, len(allowed))
	for _, r := range allowed {
		allowedSet[r] = true
		names = append(names, string(r))
	}
	msg := "forbidden: requires role " + strings.Join(names, " or ")

	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil {
			return apperr.Unauthorized("authentication required")
		}
		if !allowedSet[user.Role] {
			return apperr.Forbidden(msg)
		}
		return c.Next()
	}
}
