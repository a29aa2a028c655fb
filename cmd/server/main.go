package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/groceryshare/backend/internal/config"
	"github.com/groceryshare/backend/internal/database"
	"github.com/groceryshare/backend/internal/handlers"
	"github.com/groceryshare/backend/internal/middleware"
	"github.com/groceryshare/backend/internal/services"
	"github.com/groceryshare/backend/internal/storage"
	"github.com/groceryshare/backend/pkg/logger"
	"github.com/groceryshare/backend/pkg/utils"
)

func main() {
	logger.Init()

	cfg := config.Load()
	utils.ConfigureJWT(cfg.JWT.Secret, cfg.JWT.ExpirationHours, cfg.JWT.RememberDays)

	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	var storageClient *storage.MinIOClient
	if cfg.MinIO.Enabled {
		storageClient, err = storage.NewMinIOClient(cfg.MinIO)
		if err != nil {
			log.Fatalf("minio initialization failed: %v", err)
		}
		if err := storageClient.EnsureBucket(context.Background()); err != nil {
			log.Fatalf("failed ensuring minio bucket: %v", err)
		}
	}

	accessService := services.NewAccessService(db)
	notifyService := services.NewNotificationService(db)
	notifyService.FeedLimit = cfg.Notifications.FeedLimit
	exportService := services.NewExportService(db, storageClient)
	exportService.PresignExpiry = cfg.MinIO.PresignExpiry

	authHandler := handlers.NewAuthHandler(db)
	listsHandler := handlers.NewListsHandler(db, accessService, notifyService)
	itemsHandler := handlers.NewItemsHandler(db, accessService, notifyService)
	suggestionsHandler := handlers.NewSuggestionsHandler(db)
	suggestionsHandler.MinQueryLength = cfg.Suggest.MinQueryLength
	suggestionsHandler.MaxResults = cfg.Suggest.MaxResults
	notificationsHandler := handlers.NewNotificationsHandler(db, notifyService)
	exportHandler := handlers.NewExportHandler(db, accessService, exportService)

	authMiddleware := middleware.NewAuthMiddleware(db)

	app := fiber.New(fiber.Config{})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS(cfg.Server.AllowOrigins))
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

	listenAddr := fmt.Sprintf(":%s", cfg.Server.Port)

	logger.Info("server_starting", map[string]interface{}{
		"port":    cfg.Server.Port,
		"address": listenAddr,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(listenAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("shutting down server due to signal: %s", sig)
		shutdownDone := make(chan struct{})
		go func() {
			_ = app.Shutdown()
			close(shutdownDone)
		}()
		select {
		case <-shutdownDone:
		case <-time.After(10 * time.Second):
			log.Print("forced shutdown timeout reached")
		}
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	}
}
