package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"pcbuilder/internal/api"
	"pcbuilder/internal/app"
	"pcbuilder/internal/builds"
	"pcbuilder/internal/catalog"
	"pcbuilder/internal/config"
	"pcbuilder/internal/database"
	"pcbuilder/internal/notify"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := config.Load()

	db, err := database.Initialize(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	logger := log.New(os.Stdout, "[Server] ", log.LstdFlags)

	locker, closeLocker, err := app.Locker(context.Background(), cfg, logger)
	if err != nil {
		log.Fatal("Failed to set up build locks:", err)
	}
	defer closeLocker()

	email := app.EmailNotifier(cfg, nil)
	if !email.Configured() {
		log.Println("EMAIL_USER/EMAIL_PASSWORD not set, price-drop alerts go to websocket subscribers only")
	}
	hub := notify.NewHub(nil)
	defer hub.Close()

	repo := catalog.NewRepository(db)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	// CORS middleware
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API routes
	apiGroup := r.Group("/api/v1")
	api.SetupRoutes(apiGroup, api.Deps{
		Catalog:       repo,
		Snapshots:     catalog.NewCache(repo.LoadSnapshot, cfg.CatalogTTL),
		Builds:        builds.NewStore(db),
		Notifier:      notify.Fanout{email, hub},
		Hub:           hub,
		AllocatorOpts: app.AllocatorOptions(cfg, nil),
		DetectorOpts:  app.DetectorOptions(cfg, locker, nil),
	})

	log.Printf("Server starting on port %s (allocation=%s)", cfg.Port, cfg.AllocationMode)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, r))
}
