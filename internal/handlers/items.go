package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/groceryshare/backend/internal/middleware"
	"github.com/groceryshare/backend/internal/models"
	"github.com/groceryshare/backend/internal/roles"
	"github.com/groceryshare/backend/internal/services"
	"github.com/groceryshare/backend/pkg/logger"
	"github.com/groceryshare/backend/pkg/utils"
	"gorm.io/gorm"
)

type ItemsHandler struct {
	DB     *gorm.DB
	Access *services.AccessService
	Notify *services.NotificationService
}

func NewItemsHandler(db *gorm.DB, access *services.AccessService, notify *services.NotificationService) *ItemsHandler {
	return &ItemsHandler{DB: db, Access: access, Notify: notify}
}

// requireEditor loads the list after checking the caller holds at least
// Editor on it. When ok is false the error response is already written
// and the handler must return nil.
func (h *ItemsHandler) requireEditor(c *fiber.Ctx) (*models.User, *models.GroceryList, bool) {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		_ = utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
		return nil, nil, false
	}

	listID, err := parseUUID(c.Params("id"))
	if err != nil {
		_ = utils.Error(c, fiber.StatusBadRequest, "invalid list id")
		return nil, nil, false
	}

	membership, err := h.Access.Membership(c.Context(), currentUser.ID, listID)
	if err != nil {
		_ = utils.Error(c, fiber.StatusInternalServerError, "failed validating membership")
		return nil, nil, false
	}
	if membership == nil {
		_ = utils.Error(c, fiber.StatusForbidden, "list access denied")
		return nil, nil, false
	}
	if !roles.CanEdit(membership.Role) {
		_ = utils.Error(c, fiber.StatusForbidden, "insufficient permissions")
		return nil, nil, false
	}

	var list models.GroceryList
	if err := h.DB.First(&list, "id = ?", listID).Error; err != nil {
		_ = utils.Error(c, fiber.StatusNotFound, "list not found")
		return nil, nil, false
	}

	return currentUser, &list, true
}

// resolveItem finds or creates the catalog row for a (name, category)
// pair.
func resolveItem(tx *gorm.DB, name string, categoryID uuid.UUID) (*models.Item, error) {
	var category models.Category
	if err := tx.First(&category, "id = ?", categoryID).Error; err != nil {
		return nil, err
	}

	item := models.Item{Name: name, CategoryID: categoryID}
	if err := tx.Where("name = ? AND category_id = ?", name, categoryID).FirstOrCreate(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func touchList(tx *gorm.DB, listID uuid.UUID) error {
	return tx.Model(&models.GroceryList{}).
		Where("id = ?", listID).
		Update("updated_at", time.Now()).Error
}

type itemSnapshot struct {
	ItemID     string `json:"item_id"`
	Name       string `json:"name"`
	CategoryID string `json:"category_id"`
	Quantity   int    `json:"quantity"`
}

type addItemRequest struct {
	Name       string `json:"name"`
	CategoryID string `json:"category_id"`
	Quantity   int    `json:"quantity"`
}

func (h *ItemsHandler) Add(c *fiber.Ctx) error {
	currentUser, list, ok := h.requireEditor(c)
	if !ok {
		return nil
	}

	var req addItemRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return utils.Error(c, fiber.StatusBadRequest, "item name is required")
	}
	categoryID, err := parseUUID(req.CategoryID)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid category id")
	}
	if req.Quantity <= 0 {
		req.Quantity = 1
	}

	// Fetched before the transaction; the membership query must not share
	// the transaction's connection.
	memberIDs, err := h.Access.MemberIDs(c.Context(), list.ID, &currentUser.ID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading list members")
	}

	var itemID uuid.UUID
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		item, err := resolveItem(tx, req.Name, categoryID)
		if err != nil {
			return err
		}
		itemID = item.ID

		var existing models.ListItem
		if err := tx.Where("list_id = ? AND item_id = ?", list.ID, item.ID).First(&existing).Error; err == nil {
			return &collaboratorError{message: "Item already exists in the list"}
		} else if err != gorm.ErrRecordNotFound {
			return err
		}

		pairing := models.ListItem{ListID: list.ID, ItemID: item.ID, Quantity: req.Quantity}
		if err := tx.Create(&pairing).Error; err != nil {
			return err
		}

		if err := touchList(tx, list.ID); err != nil {
			return err
		}

		message := fmt.Sprintf("%s added '%s' to the list '%s'.", currentUser.Username, req.Name, list.Name)
		return h.Notify.NotifyMany(c.Context(), tx, memberIDs, models.NotificationIconEdit, message)
	})
	if err != nil {
		if invalid, ok := err.(*collaboratorError); ok {
			return utils.Error(c, fiber.StatusBadRequest, invalid.message)
		}
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusBadRequest, "category not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed adding item")
	}

	logger.InfoWithUser(currentUser.ID.String(), "item_added", map[string]interface{}{
		"list_id":   list.ID.String(),
		"item_name": req.Name,
	})

	return utils.Success(c, fiber.StatusCreated, fiber.Map{
		"item_id":  itemID,
		"name":     req.Name,
		"quantity": req.Quantity,
	})
}

type editItemRequest struct {
	OldItem itemSnapshot `json:"oldItem"`
	NewItem itemSnapshot `json:"newItem"`
}

// Edit applies an item change described by before and after snapshots. A
// quantity-only change updates the pairing in place; a name or category
// change re-resolves the catalog item and swaps the pairing over.
func (h *ItemsHandler) Edit(c *fiber.Ctx) error {
	currentUser, list, ok := h.requireEditor(c)
	if !ok {
		return nil
	}

	var req editItemRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	if req.OldItem.ItemID != req.NewItem.ItemID && req.NewItem.ItemID != "" {
		return utils.Error(c, fiber.StatusBadRequest, "item id cannot change")
	}

	req.NewItem.Name = strings.TrimSpace(req.NewItem.Name)
	nameChanged := req.NewItem.Name != "" && req.NewItem.Name != req.OldItem.Name
	categoryChanged := req.NewItem.CategoryID != "" && req.NewItem.CategoryID != req.OldItem.CategoryID
	quantityChanged := req.NewItem.Quantity > 0 && req.NewItem.Quantity != req.OldItem.Quantity

	if !nameChanged && !categoryChanged && !quantityChanged {
		return utils.Error(c, fiber.StatusBadRequest, "No changes detected.")
	}

	oldItemID, err := parseUUID(req.OldItem.ItemID)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid item id")
	}

	memberIDs, err := h.Access.MemberIDs(c.Context(), list.ID, &currentUser.ID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading list members")
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		var pairing models.ListItem
		if err := tx.Preload("Item").
			Where("list_id = ? AND item_id = ?", list.ID, oldItemID).
			First(&pairing).Error; err != nil {
			return err
		}

		var changes []string
		currentName := pairing.Item.Name

		if nameChanged || categoryChanged {
			name := pairing.Item.Name
			if nameChanged {
				name = req.NewItem.Name
				changes = append(changes, fmt.Sprintf("renamed '%s' to '%s'", pairing.Item.Name, name))
			}
			categoryID := pairing.Item.CategoryID
			if categoryChanged {
				parsed, err := parseUUID(req.NewItem.CategoryID)
				if err != nil {
					return &collaboratorError{message: "invalid category id"}
				}
				categoryID = parsed
				changes = append(changes, fmt.Sprintf("moved '%s' to another category", name))
			}

			replacement, err := resolveItem(tx, name, categoryID)
			if err != nil {
				return err
			}

			var duplicate models.ListItem
			err = tx.Where("list_id = ? AND item_id = ? AND id <> ?", list.ID, replacement.ID, pairing.ID).
				First(&duplicate).Error
			if err == nil {
				return &collaboratorError{message: "Item already exists in the list"}
			}
			if err != gorm.ErrRecordNotFound {
				return err
			}

			// Updated through a fresh statement; saving the loaded pairing
			// would write its preloaded Item back over the new foreign key.
			if err := tx.Model(&models.ListItem{}).
				Where("id = ?", pairing.ID).
				Update("item_id", replacement.ID).Error; err != nil {
				return err
			}
		}

		if quantityChanged {
			if err := tx.Model(&models.ListItem{}).
				Where("id = ?", pairing.ID).
				Update("quantity", req.NewItem.Quantity).Error; err != nil {
				return err
			}
			changes = append(changes, fmt.Sprintf("changed the quantity of '%s' to %d", currentName, req.NewItem.Quantity))
		}

		if err := touchList(tx, list.ID); err != nil {
			return err
		}

		message := fmt.Sprintf("%s %s on the list '%s'.", currentUser.Username, strings.Join(changes, " and "), list.Name)
		return h.Notify.NotifyMany(c.Context(), tx, memberIDs, models.NotificationIconEdit, message)
	})
	if err != nil {
		if invalid, ok := err.(*collaboratorError); ok {
			return utils.Error(c, fiber.StatusBadRequest, invalid.message)
		}
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "item not found in list")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed editing item")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"updated": true})
}

func (h *ItemsHandler) Delete(c *fiber.Ctx) error {
	currentUser, list, ok := h.requireEditor(c)
	if !ok {
		return nil
	}

	itemID, err := parseUUID(c.Params("itemId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid item id")
	}

	memberIDs, err := h.Access.MemberIDs(c.Context(), list.ID, &currentUser.ID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading list members")
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		var pairing models.ListItem
		if err := tx.Preload("Item").
			Where("list_id = ? AND item_id = ?", list.ID, itemID).
			First(&pairing).Error; err != nil {
			return err
		}

		if err := tx.Delete(&models.ListItem{}, "id = ?", pairing.ID).Error; err != nil {
			return err
		}

		if err := touchList(tx, list.ID); err != nil {
			return err
		}

		message := fmt.Sprintf("%s removed '%s' from the list '%s'.", currentUser.Username, pairing.Item.Name, list.Name)
		return h.Notify.NotifyMany(c.Context(), tx, memberIDs, models.NotificationIconDelete, message)
	})
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "item not found in list")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting item")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"deleted": true})
}

func (h *ItemsHandler) Categories(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var categories []models.Category
	if err := h.DB.Order("name ASC").Find(&categories).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing categories")
	}

	return utils.Success(c, fiber.StatusOK, categories)
}
