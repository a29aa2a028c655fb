package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/groceryshare/backend/internal/middleware"
	"github.com/groceryshare/backend/internal/services"
	"github.com/groceryshare/backend/pkg/utils"
	"gorm.io/gorm"
)

type NotificationsHandler struct {
	DB     *gorm.DB
	Notify *services.NotificationService
}

func NewNotificationsHandler(db *gorm.DB, notify *services.NotificationService) *NotificationsHandler {
	return &NotificationsHandler{DB: db, Notify: notify}
}

// List pages through the caller's feed. The feed itself is capped by the
// service; pagination slices the capped set for the dropdown.
func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	feed, err := h.Notify.Feed(c.Context(), currentUser.ID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading notifications")
	}

	pagination := utils.ParsePagination(c)
	total := int64(len(feed))

	start := (pagination.Page - 1) * pagination.Limit
	if start > len(feed) {
		start = len(feed)
	}
	end := start + pagination.Limit
	if end > len(feed) {
		end = len(feed)
	}

	return utils.Paginated(c, feed[start:end], pagination.Page, pagination.Limit, total)
}

func (h *NotificationsHandler) UnreadCount(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	count, err := h.Notify.UnreadCount(c.Context(), currentUser.ID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting notifications")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"unread": count})
}

type notificationIDsRequest struct {
	NotificationIDs []string `json:"notificationIds"`
}

func (h *NotificationsHandler) MarkRead(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req notificationIDsRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	for _, raw := range req.NotificationIDs {
		id, err := parseUUID(raw)
		if err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid notification id")
		}
		if err := h.Notify.MarkRead(c.Context(), currentUser.ID, id); err != nil {
			if err == gorm.ErrRecordNotFound {
				return utils.Error(c, fiber.StatusNotFound, "notification not found")
			}
			return utils.Error(c, fiber.StatusInternalServerError, "failed updating notifications")
		}
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"updated": true})
}

func (h *NotificationsHandler) MarkAllRead(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	if err := h.Notify.MarkAllRead(c.Context(), currentUser.ID); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating notifications")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"updated": true})
}

func (h *NotificationsHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req notificationIDsRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	for _, raw := range req.NotificationIDs {
		id, err := parseUUID(raw)
		if err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid notification id")
		}
		if err := h.Notify.Delete(c.Context(), currentUser.ID, id); err != nil {
			if err == gorm.ErrRecordNotFound {
				return utils.Error(c, fiber.StatusNotFound, "notification not found")
			}
			return utils.Error(c, fiber.StatusInternalServerError, "failed deleting notifications")
		}
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"deleted": true})
}

func (h *NotificationsHandler) DeleteAll(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	if err := h.Notify.DeleteAll(c.Context(), currentUser.ID); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting notifications")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"deleted": true})
}
