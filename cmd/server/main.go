package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/filedrive/backend/internal/config"
	"github.com/filedrive/backend/internal/database"
	"github.com/filedrive/backend/internal/handlers"
	"github.com/filedrive/backend/internal/middleware"
	"github.com/filedrive/backend/internal/services"
	"github.com/filedrive/backend/internal/storage"
	"github.com/filedrive/backend/internal/store"
	"github.com/filedrive/backend/pkg/logger"
	"github.com/filedrive/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	logger.Init()

	cfg := config.Load()
	utils.ConfigureJWT(cfg.JWT.Secret, cfg.JWT.ExpirationHours)

	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	blobStore, err := storage.NewMinIOClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("minio initialization failed: %v", err)
	}
	if err := blobStore.EnsureBucket(context.Background()); err != nil {
		log.Fatalf("failed ensuring minio bucket: %v", err)
	}

	var mailer services.Mailer = services.ConsoleMailer{}
	if cfg.SMTP.Addr != "" {
		mailer = &services.SMTPMailer{Addr: cfg.SMTP.Addr, From: cfg.SMTP.From}
	}

	recordStore := store.NewRecordStore(db)
	hierarchyService := services.NewHierarchyService(recordStore)
	ingestService := services.NewIngestService(recordStore, blobStore, hierarchyService)
	sharingService := services.NewSharingService(recordStore, mailer)
	auditService := services.NewAuditService(db)

	authHandler := handlers.NewAuthHandler(db, auditService)
	filesHandler := handlers.NewFilesHandler(recordStore, hierarchyService, ingestService, sharingService, auditService)

	authMiddleware := middleware.NewAuthMiddleware(db)

	app := fiber.New(fiber.Config{BodyLimit: 100 * 1024 * 1024})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS())
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Get("/me", authMiddleware.RequireAuth, authHandler.Me)

	fileRoutes := api.Group("/files", authMiddleware.RequireAuth)
	fileRoutes.Get("/list", filesHandler.List)
	fileRoutes.Post("/upload", filesHandler.Upload)
	fileRoutes.Get("/download", filesHandler.Download)
	fileRoutes.Post("/create-folder", filesHandler.CreateFolder)
	fileRoutes.Put("/rename", filesHandler.Rename)
	fileRoutes.Get("/search", filesHandler.Search)
	fileRoutes.Post("/upload-folder", filesHandler.UploadFolder)
	fileRoutes.Post("/share", filesHandler.Share)

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
