package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/apperr"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/middleware"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/models"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/services/attachment"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/services/project"
)

type ProjectHandler struct {
	Projects    *project.Service
	Attachments *attachment.Service
}

// Routes mounts under an authenticated router.
func (h *ProjectHandler) Routes(r fiber.Router) {
	buyerOnly := middleware.RequireRoles(models.RoleBuyer)

	r.Get("/projects", h.List)
	r.Post("/projects", buyerOnly, h.Create)
	r.Get("/projects/:id", h.Get)
	r.Put("/projects/:id", buyerOnly, h.Update)
	r.Delete("/projects/:id", buyerOnly, h.Delete)
	r.Get("/projects/:id/bids", h.Bids)
	r.Post("/projects/:id/select-bid", buyerOnly, h.SelectBid)
	r.Post("/projects/:id/complete", buyerOnly, h.Complete)
	r.Post("/projects/:id/files", h.UploadFiles)
}

func (h *ProjectHandler) List(c *fiber.Ctx) error {
	out, err := h.Projects.List(c.UserContext(), middleware.CurrentUser(c))
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, out)
}

func (h *ProjectHandler) Create(c *fiber.Ctx) error {
	var req project.CreateInput
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	p, err := h.Projects.Create(c.UserContext(), middleware.CurrentUser(c), req)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusCreated, p)
}

func (h *ProjectHandler) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "project")
	if err != nil {
		return err
	}
	p, err := h.Projects.Get(c.UserContext(), middleware.CurrentUser(c), id)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, p)
}

func (h *ProjectHandler) Update(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "project")
	if err != nil {
		return err
	}
	var req project.UpdateInput
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	p, err := h.Projects.Update(c.UserContext(), middleware.CurrentUser(c), id, req)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, p)
}

func (h *ProjectHandler) Delete(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "project")
	if err != nil {
		return err
	}
	if err := h.Projects.Delete(c.UserContext(), middleware.CurrentUser(c), id); err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, fiber.Map{"id": id})
}

func (h *ProjectHandler) Bids(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "project")
	if err != nil {
		return err
	}
	out, err := h.Projects.BidsFor(c.UserContext(), middleware.CurrentUser(c), id)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, out)
}

func (h *ProjectHandler) SelectBid(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "project")
	if err != nil {
		return err
	}
	var req project.SelectBidInput
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	p, err := h.Projects.SelectBid(c.UserContext(), middleware.CurrentUser(c), id, req)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, p)
}

func (h *ProjectHandler) Complete(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "project")
	if err != nil {
		return err
	}
	p, err := h.Projects.Complete(c.UserContext(), middleware.CurrentUser(c), id)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, p)
}

// UploadFiles takes multipart field "files", one or more parts.
func (h *ProjectHandler) UploadFiles(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "project")
	if err != nil {
		return err
	}
	form, err := c.MultipartForm()
	if err != nil {
		return apperr.Validation("expected multipart/form-data with field \"files\"", nil)
	}
	p, err := h.Attachments.Upload(c.UserContext(), middleware.CurrentUser(c), id, form.File["files"])
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusCreated, p)
}
