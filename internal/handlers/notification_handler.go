package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/apperr"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/middleware"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/models"
)

// NotificationHandler serves the caller's inbox written by notify.InboxSink.
type NotificationHandler struct {
	DB *gorm.DB
}

func (h *NotificationHandler) Routes(r fiber.Router) {
	r.Get("/notifications", h.List)
	r.Patch("/notifications/:id/read", h.MarkRead)
}

func (h *NotificationHandler) List(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	db := h.DB.WithContext(c.UserContext())
	q := db.Where("user_id = ?", user.ID)
	if c.QueryBool("unread") {
		q = q.Where("read_at IS NULL")
	}

	var items []models.Notification
	if err := q.Order("created_at DESC").Limit(limit).Find(&items).Error; err != nil {
		return apperr.Internal("list notifications", err)
	}

	var unread int64
	if err := db.Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", user.ID).
		Count(&unread).Error; err != nil {
		return apperr.Internal("count notifications", err)
	}

	return ok(c, fiber.StatusOK, fiber.Map{
		"items":  items,
		"unread": unread,
	})
}

func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	id, err := paramID(c, "id", "notification")
	if err != nil {
		return err
	}

	db := h.DB.WithContext(c.UserContext())
	var n models.Notification
	// another user's notification is reported as missing
	if err := db.First(&n, "id = ? AND user_id = ?", id, user.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("notification not found")
		}
		return apperr.Internal("load notification", err)
	}

	if n.ReadAt == nil {
		now := time.Now().UTC()
		if err := db.Model(&n).Update("read_at", now).Error; err != nil {
			return apperr.Internal("mark notification read", err)
		}
		n.ReadAt = &now
	}
	return ok(c, fiber.StatusOK, n)
}
