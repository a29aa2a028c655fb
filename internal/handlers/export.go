package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/groceryshare/backend/internal/middleware"
	"github.com/groceryshare/backend/internal/models"
	"github.com/groceryshare/backend/internal/roles"
	"github.com/groceryshare/backend/internal/services"
	"github.com/groceryshare/backend/pkg/logger"
	"github.com/groceryshare/backend/pkg/utils"
	"gorm.io/gorm"
)

type ExportHandler struct {
	DB     *gorm.DB
	Access *services.AccessService
	Export *services.ExportService
}

func NewExportHandler(db *gorm.DB, access *services.AccessService, export *services.ExportService) *ExportHandler {
	return &ExportHandler{DB: db, Access: access, Export: export}
}

// Download streams a rendered snapshot of the list. When an archive
// bucket is configured a copy is kept there and its presigned URL is
// returned in the X-Export-URL header.
func (h *ExportHandler) Download(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	listID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid list id")
	}

	if !h.Access.HasAccess(c.Context(), currentUser.ID, listID, roles.Viewer) {
		return utils.Error(c, fiber.StatusForbidden, "list access denied")
	}

	format, ok := services.ParseExportFormat(c.Query("format", "csv"))
	if !ok {
		return utils.Error(c, fiber.StatusBadRequest, "unsupported export format")
	}

	var list models.GroceryList
	if err := h.DB.First(&list, "id = ?", listID).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "list not found")
	}

	export, err := h.Export.Render(c.Context(), &list, format)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed rendering export")
	}

	if url, archived := h.Export.Archive(c.Context(), export); archived {
		c.Set("X-Export-URL", url)
	}

	logger.InfoWithUser(currentUser.ID.String(), "list_exported", map[string]interface{}{
		"list_id": listID.String(),
		"format":  string(format),
	})

	c.Set(fiber.HeaderContentType, export.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", export.Filename))
	return c.Status(fiber.StatusOK).Send(export.Payload)
}
