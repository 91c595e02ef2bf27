package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/middleware"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/services/auth"
)

type AuthHandler struct {
	Auth *auth.Service
}

type LoginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req auth.RegisterInput
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	sess, err := h.Auth.Register(c.UserContext(), req)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusCreated, sess)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginReq
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	sess, err := h.Auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, sess)
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	return ok(c, fiber.StatusOK, middleware.CurrentUser(c))
}
