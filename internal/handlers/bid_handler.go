package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/middleware"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/models"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/services/bid"
)

type BidHandler struct {
	Bids *bid.Service
}

func (h *BidHandler) Routes(r fiber.Router) {
	sellerOnly := middleware.RequireRoles(models.RoleSeller)

	r.Get("/bids/seller", sellerOnly, h.ListMine)
	r.Post("/bids", sellerOnly, h.Create)
	r.Get("/bids/:id", h.Get)
	r.Put("/bids/:id", sellerOnly, h.Update)
	r.Delete("/bids/:id", sellerOnly, h.Delete)
}

func (h *BidHandler) ListMine(c *fiber.Ctx) error {
	out, err := h.Bids.ListForSeller(c.UserContext(), middleware.CurrentUser(c))
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, out)
}

func (h *BidHandler) Create(c *fiber.Ctx) error {
	var req bid.CreateInput
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	b, err := h.Bids.Create(c.UserContext(), middleware.CurrentUser(c), req)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusCreated, b)
}

func (h *BidHandler) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "bid")
	if err != nil {
		return err
	}
	b, err := h.Bids.Get(c.UserContext(), middleware.CurrentUser(c), id)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, b)
}

func (h *BidHandler) Update(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "bid")
	if err != nil {
		return err
	}
	var req bid.UpdateInput
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	b, err := h.Bids.Update(c.UserContext(), middleware.CurrentUser(c), id, req)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, b)
}

func (h *BidHandler) Delete(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "bid")
	if err != nil {
		return err
	}
	if err := h.Bids.Delete(c.UserContext(), middleware.CurrentUser(c), id); err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, fiber.Map{"id": id})
}
