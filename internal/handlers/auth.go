package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/groceryshare/backend/internal/middleware"
	"github.com/groceryshare/backend/internal/models"
	"github.com/groceryshare/backend/pkg/logger"
	"github.com/groceryshare/backend/pkg/utils"
	"gorm.io/gorm"
)

type AuthHandler struct {
	DB *gorm.DB
}

func NewAuthHandler(db *gorm.DB) *AuthHandler {
	return &AuthHandler{DB: db}
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return utils.Error(c, fiber.StatusBadRequest, "username and password are required")
	}

	var existing models.User
	err := h.DB.Where("username = ?", req.Username).First(&existing).Error
	if err == nil {
		return utils.Error(c, fiber.StatusConflict, "Username already exists.")
	}
	if err != gorm.ErrRecordNotFound {
		return utils.Error(c, fiber.StatusInternalServerError, "failed checking username")
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed hashing password")
	}

	user := models.User{
		Username:     req.Username,
		PasswordHash: hash,
		Theme:        models.ThemeLight,
	}
	if err := h.DB.Create(&user).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating user")
	}

	logger.InfoWithUser(user.ID.String(), "user_registered", map[string]interface{}{
		"username": user.Username,
	})

	return utils.Success(c, fiber.StatusCreated, fiber.Map{
		"id":       user.ID,
		"username": user.Username,
	})
}

type loginRequest struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	KeepLoggedIn bool   `json:"keepLoggedIn"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	var user models.User
	err := h.DB.Where("username = ?", strings.TrimSpace(req.Username)).First(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusUnauthorized, "Incorrect username.")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading user")
	}

	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		logger.Warn("login_failed", map[string]interface{}{
			"username": req.Username,
			"ip":       c.IP(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "Incorrect password.")
	}

	token, err := utils.GenerateToken(&user, req.KeepLoggedIn)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed generating token")
	}

	cookieExpiry := time.Now().Add(24 * time.Hour)
	if req.KeepLoggedIn {
		cookieExpiry = time.Now().Add(7 * 24 * time.Hour)
	}
	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Expires:  cookieExpiry,
		HTTPOnly: true,
		SameSite: "Lax",
	})

	logger.InfoWithUser(user.ID.String(), "user_logged_in", map[string]interface{}{
		"username":       user.Username,
		"keep_logged_in": req.KeepLoggedIn,
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"token":         token,
		"username":      user.Username,
		"theme":         user.Theme,
		"currentListId": h.currentListID(&user),
	})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		SameSite: "Lax",
	})
	return utils.Success(c, fiber.StatusOK, fiber.Map{"loggedOut": true})
}

// Me reports session state. It runs behind OptionalAuth so an anonymous
// caller gets loggedIn=false instead of 401.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Success(c, fiber.StatusOK, fiber.Map{"loggedIn": false})
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"loggedIn":      true,
		"username":      currentUser.Username,
		"theme":         currentUser.Theme,
		"currentListId": h.currentListID(currentUser),
	})
}

// currentListID is the caller's most recently updated list, nil when the
// user has no lists yet.
func (h *AuthHandler) currentListID(user *models.User) *string {
	var list models.GroceryList
	err := h.DB.
		Joins("JOIN list_memberships ON list_memberships.list_id = grocery_lists.id").
		Where("list_memberships.user_id = ?", user.ID).
		Order("grocery_lists.updated_at DESC").
		First(&list).Error
	if err != nil {
		return nil
	}
	id := list.ID.String()
	return &id
}

func (h *AuthHandler) GetTheme(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"theme": currentUser.Theme})
}

type setThemeRequest struct {
	Theme models.Theme `json:"theme"`
}

func (h *AuthHandler) SetTheme(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req setThemeRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	if req.Theme != models.ThemeLight && req.Theme != models.ThemeDark {
		return utils.Error(c, fiber.StatusBadRequest, "invalid theme")
	}

	if err := h.DB.Model(currentUser).Update("theme", req.Theme).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed saving theme")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"theme": req.Theme})
}
