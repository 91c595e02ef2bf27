package middleware

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/apperr"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/logger"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/models"
)

type stubVerifier map[string]*models.User

func (v stubVerifier) Verify(_ context.Context, token string) (*models.User, error) {
	if u, ok := v[token]; ok {
		return u, nil
	}
	return nil, apperr.Unauthorized("invalid or expired token")
}

func newApp() *fiber.App {
	return fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.SendStatus(StatusOf(err))
		},
	})
}

func get(t *testing.T, app *fiber.App, path, token string) int {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestAuthAndRoles(t *testing.T) {
	buyer := &models.User{ID: uuid.New(), Role: models.RoleBuyer}
	seller := &models.User{ID: uuid.New(), Role: models.RoleSeller}
	v := stubVerifier{"b": buyer, "s": seller}

	app := newApp()
	api := app.Group("/api", Auth(v))
	api.Get("/me", func(c *fiber.Ctx) error {
		assert.Equal(t, c.Locals(LocalUserID), CurrentUser(c).ID.String())
		return c.SendString(c.Locals(LocalRole).(string))
	})
	api.Get("/buyers", RequireRoles(models.RoleBuyer), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	assert.Equal(t, fiber.StatusUnauthorized, get(t, app, "/api/me", ""))
	assert.Equal(t, fiber.StatusUnauthorized, get(t, app, "/api/me", "nope"))
	assert.Equal(t, fiber.StatusOK, get(t, app, "/api/me", "s"))
	assert.Equal(t, fiber.StatusNoContent, get(t, app, "/api/buyers", "b"))
	assert.Equal(t, fiber.StatusForbidden, get(t, app, "/api/buyers", "s"))
}

func TestBearerToken(t *testing.T) {
	tok, ok := BearerToken("bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)

	for _, h := range []string{"", "Bearer", "Bearer   ", "Basic abc", "abc"} {
		_, ok := BearerToken(h)
		assert.False(t, ok, h)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2, logger.Discard())
	app := newApp()
	app.Use(rl.Handler())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	assert.Equal(t, fiber.StatusOK, get(t, app, "/", ""))
	assert.Equal(t, fiber.StatusOK, get(t, app, "/", ""))
	assert.Equal(t, fiber.StatusTooManyRequests, get(t, app, "/", ""))

	rl.idle = 0
	time.Sleep(time.Millisecond)
	rl.Cleanup()
	assert.Zero(t, rl.size())
}

func TestRateLimiterAfterAuthKeysByUser(t *testing.T) {
	a := &models.User{ID: uuid.New(), Role: models.RoleBuyer}
	b := &models.User{ID: uuid.New(), Role: models.RoleSeller}
	rl := NewRateLimiter(1, 2, logger.Discard())

	app := newApp()
	app.Get("/login", rl.Handler(), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	api := app.Group("/api", Auth(stubVerifier{"a": a, "b": b}), rl.Handler())
	api.Get("/me", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	assert.Equal(t, fiber.StatusOK, get(t, app, "/api/me", "a"))
	assert.Equal(t, fiber.StatusOK, get(t, app, "/api/me", "a"))
	assert.Equal(t, fiber.StatusTooManyRequests, get(t, app, "/api/me", "a"))
	assert.Equal(t, fiber.StatusOK, get(t, app, "/api/me", "b"))
	assert.Equal(t, fiber.StatusOK, get(t, app, "/login", ""))
	assert.Equal(t, 3, rl.size())
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, "debug", "json")

	app := newApp()
	app.Use(RequestLogger(logrus.NewEntry(log)))
	app.Get("/missing", func(c *fiber.Ctx) error { return apperr.NotFound("nope") })

	assert.Equal(t, fiber.StatusNotFound, get(t, app, "/missing", ""))
	assert.Contains(t, buf.String(), `"status":404`)
	assert.Contains(t, buf.String(), `"path":"/missing"`)
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, 429, StatusOf(fiber.NewError(429, "slow down")))
	assert.Equal(t, 409, StatusOf(apperr.Conflict("dup")))
	assert.Equal(t, 500, StatusOf(assert.AnError))
}
