package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/apperr"
)

func ok(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

// fail renders err as the standard error body. INTERNAL causes are logged
// and never sent to the client.
func fail(c *fiber.Ctx, log *logrus.Entry, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{
			"error":   true,
			"message": fe.Message,
		})
	}

	ae := apperr.From(err)
	msg := ae.Message
	if ae.Kind == apperr.KindInternal {
		log.WithError(err).WithFields(logrus.Fields{
			"method": c.Method(),
			"path":   c.Path(),
		}).Error("internal error")
		msg = "internal server error"
	}

	body := fiber.Map{
		"error":   true,
		"message": msg,
	}
	if len(ae.Fields) > 0 {
		body["errors"] = ae.Fields
	}
	return c.Status(ae.Kind.HTTPStatus()).JSON(body)
}

// ErrorHandler is the app-wide fiber.Config.ErrorHandler. Handlers return
// errors and let it render them.
func ErrorHandler(log *logrus.Entry) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		return fail(c, log, err)
	}
}

func bindJSON(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return apperr.Validation("invalid body", nil)
	}
	return nil
}

// paramID parses a uuid route param. A malformed id cannot exist, so it is
// reported as NOT_FOUND.
func paramID(c *fiber.Ctx, name, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, apperr.NotFound(what + " not found")
	}
	return id, nil
}
