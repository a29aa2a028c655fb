package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/groceryshare/backend/internal/middleware"
	"github.com/groceryshare/backend/internal/models"
	"github.com/groceryshare/backend/internal/roles"
	"github.com/groceryshare/backend/internal/suggest"
	"github.com/groceryshare/backend/pkg/utils"
	"gorm.io/gorm"
)

// SuggestionsHandler serves the autocomplete lookups behind the item and
// collaborator inputs. Debouncing happens client side; the server applies
// the same minimum length and result cap.
type SuggestionsHandler struct {
	DB             *gorm.DB
	MinQueryLength int
	MaxResults     int
}

func NewSuggestionsHandler(db *gorm.DB) *SuggestionsHandler {
	return &SuggestionsHandler{
		DB:             db,
		MinQueryLength: suggest.DefaultMinQueryLen,
		MaxResults:     suggest.DefaultMaxShow,
	}
}

// Items matches catalog item names by case-insensitive substring. An
// exact match is excluded; the user already typed the whole name.
func (h *SuggestionsHandler) Items(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	query := strings.TrimSpace(c.Query("query"))
	if len([]rune(query)) < h.MinQueryLength {
		return utils.Success(c, fiber.StatusOK, []fiber.Map{})
	}

	var items []models.Item
	if err := h.DB.WithContext(c.Context()).
		Where("LOWER(name) LIKE ? AND LOWER(name) <> ?", "%"+strings.ToLower(query)+"%", strings.ToLower(query)).
		Order("name ASC").
		Limit(h.MaxResults).
		Find(&items).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading suggestions")
	}

	rows := make([]fiber.Map, 0, len(items))
	for _, item := range items {
		rows = append(rows, fiber.Map{
			"item_id":     item.ID,
			"name":        item.Name,
			"category_id": item.CategoryID,
		})
	}

	return utils.Success(c, fiber.StatusOK, rows)
}

// Users matches usernames by prefix for the collaborator picker. The
// caller is excluded and matches carry the default role for new picks.
func (h *SuggestionsHandler) Users(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	query := strings.TrimSpace(c.Query("query"))
	if len([]rune(query)) < h.MinQueryLength {
		return utils.Success(c, fiber.StatusOK, []fiber.Map{})
	}

	var users []models.User
	if err := h.DB.WithContext(c.Context()).
		Where("LOWER(username) LIKE ? AND id <> ?", strings.ToLower(query)+"%", currentUser.ID).
		Order("username ASC").
		Limit(h.MaxResults).
		Find(&users).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading suggestions")
	}

	rows := make([]fiber.Map, 0, len(users))
	for _, user := range users {
		rows = append(rows, fiber.Map{
			"user_id":  user.ID,
			"username": user.Username,
			"role":     roles.Viewer,
		})
	}

	return utils.Success(c, fiber.StatusOK, rows)
}
