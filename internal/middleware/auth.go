package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/apperr"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/models"
)

// Locals keys set by Auth.
const (
	LocalUser   = "user"
	LocalUserID = "userId"
	LocalRole   = "role"
)

// TokenVerifier resolves a bearer token to an active user.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*models.User, error)
}

// Auth requires "Authorization: Bearer <token>" and loads the caller.
func Auth(v TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := BearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return apperr.Unauthorized("missing bearer token")
		}

		user, err := v.Verify(c.UserContext(), token)
		if err != nil {
			return err
		}

		c.Locals(LocalUser, user)
		c.Locals(LocalUserID, user.ID.String())
		c.Locals(LocalRole, string(user.Role))
		return c.Next()
	}
}

func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// CurrentUser returns the user loaded by Auth, or nil on public routes.
func CurrentUser(c *fiber.Ctx) *models.User {
	u, _ := c.Locals(LocalUser).(*models.User)
	return u
}
