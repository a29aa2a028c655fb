package handlers

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/groceryshare/backend/internal/database"
	"github.com/groceryshare/backend/internal/middleware"
	"github.com/groceryshare/backend/internal/models"
	"github.com/groceryshare/backend/internal/roles"
	"github.com/groceryshare/backend/internal/services"
	"github.com/groceryshare/backend/pkg/logger"
	"github.com/groceryshare/backend/pkg/utils"
	"gorm.io/gorm"
)

type testEnv struct {
	app *fiber.App
	db  *gorm.DB
}

var testSetupOnce sync.Once

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	testSetupOnce.Do(func() {
		gosqlite.MustRegisterScalarFunction("NOW", 0, func(ctx *gosqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			return time.Now().UTC(), nil
		})
		logger.Init()
		utils.ConfigureJWT("test-secret", 24, 7)
	})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed migrating test database: %v", err)
	}

	accessService := services.NewAccessService(db)
	notifyService := services.NewNotificationService(db)
	exportService := services.NewExportService(db, nil)

	authHandler := NewAuthHandler(db)
	listsHandler := NewListsHandler(db, accessService, notifyService)
	itemsHandler := NewItemsHandler(db, accessService, notifyService)
	suggestionsHandler := NewSuggestionsHandler(db)
	notificationsHandler := NewNotificationsHandler(db, notifyService)
	exportHandler := NewExportHandler(db, accessService, exportService)

	authMiddleware := middleware.NewAuthMiddleware(db)

	app := fiber.New(fiber.Config{})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS("http://localhost:3000"))
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Post("/logout", authHandler.Logout)
	authRoutes.Get("/me", authMiddleware.OptionalAuth, authHandler.Me)

	api.Get("/theme", authMiddleware.RequireAuth, authHandler.GetTheme)
	api.Post("/theme", authMiddleware.RequireAuth, authHandler.SetTheme)

	listRoutes := api.Group("/lists", authMiddleware.RequireAuth)
	listRoutes.Get("/", listsHandler.List)
	listRoutes.Post("/", listsHandler.Create)
	listRoutes.Get("/:id/export", exportHandler.Download)
	listRoutes.Get("/:id", listsHandler.Get)
	listRoutes.Put("/:id", listsHandler.Update)
	listRoutes.Delete("/:id", listsHandler.Delete)
	listRoutes.Post("/:id/users", listsHandler.ManageUsers)
	listRoutes.Post("/:id/join", listsHandler.Join)
	listRoutes.Post("/:id/items", itemsHandler.Add)
	listRoutes.Put("/:id/items", itemsHandler.Edit)
	listRoutes.Delete("/:id/items/:itemId", itemsHandler.Delete)

	api.Get("/categories", authMiddleware.RequireAuth, itemsHandler.Categories)

	suggestionRoutes := api.Group("/suggestions", authMiddleware.RequireAuth)
	suggestionRoutes.Get("/items", suggestionsHandler.Items)
	suggestionRoutes.Get("/users", suggestionsHandler.Users)

	notificationRoutes := api.Group("/notifications", authMiddleware.RequireAuth)
	notificationRoutes.Get("/", notificationsHandler.List)
	notificationRoutes.Get("/unread-count", notificationsHandler.UnreadCount)
	notificationRoutes.Put("/read-all", notificationsHandler.MarkAllRead)
	notificationRoutes.Put("/read", notificationsHandler.MarkRead)
	notificationRoutes.Post("/delete-all", notificationsHandler.DeleteAll)
	notificationRoutes.Post("/delete", notificationsHandler.Delete)

	return &testEnv{app: app, db: db}
}

func createTestUser(t *testing.T, db *gorm.DB, username, password string) (*models.User, string) {
	t.Helper()

	hash, err := utils.HashPassword(password)
	if err != nil {
		t.Fatalf("failed hashing password: %v", err)
	}

	user := &models.User{
		Username:     username,
		PasswordHash: hash,
		Theme:        models.ThemeLight,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed creating test user: %v", err)
	}

	token, err := utils.GenerateToken(user, false)
	if err != nil {
		t.Fatalf("failed generating auth token: %v", err)
	}

	return user, token
}

func createTestList(t *testing.T, db *gorm.DB, name string, owner *models.User) *models.GroceryList {
	t.Helper()

	list := &models.GroceryList{Name: name}
	if err := db.Create(list).Error; err != nil {
		t.Fatalf("failed creating test list: %v", err)
	}
	membership := &models.ListMembership{ListID: list.ID, UserID: owner.ID, Role: roles.Owner}
	if err := db.Create(membership).Error; err != nil {
		t.Fatalf("failed creating owner membership: %v", err)
	}
	return list
}

func addTestMember(t *testing.T, db *gorm.DB, list *models.GroceryList, user *models.User, role roles.Role) {
	t.Helper()

	membership := &models.ListMembership{ListID: list.ID, UserID: user.ID, Role: role}
	if err := db.Create(membership).Error; err != nil {
		t.Fatalf("failed adding member: %v", err)
	}
}

func createTestCategory(t *testing.T, db *gorm.DB, name string) *models.Category {
	t.Helper()

	category := &models.Category{}
	if err := db.Where("name = ?", name).FirstOrCreate(category, models.Category{Name: name}).Error; err != nil {
		t.Fatalf("failed creating category: %v", err)
	}
	return category
}

func authHeaders(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func performRequest(t *testing.T, app *fiber.App, method, path string, body io.Reader, headers map[string]string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := app.Test(req, int((10 * time.Second).Milliseconds()))
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}

	return resp
}

func performJSONRequest(t *testing.T, app *fiber.App, method, path string, payload any, headers map[string]string) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(encoded)
	}

	requestHeaders := map[string]string{}
	for key, value := range headers {
		requestHeaders[key] = value
	}
	if payload != nil {
		requestHeaders["Content-Type"] = "application/json"
	}

	return performRequest(t, app, method, path, body, requestHeaders)
}

func decodeJSONMap(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed reading response body: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("failed decoding JSON response: %v body=%q", err, string(raw))
	}

	return payload
}

func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Fatalf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

func assertEnvelopeError(t *testing.T, body map[string]any, expected string) {
	t.Helper()
	if success, _ := body["success"].(bool); success {
		t.Fatalf("expected success=false, got %+v", body)
	}
	if got, _ := body["error"].(string); got != expected {
		t.Fatalf("expected error %q, got %q", expected, got)
	}
}
