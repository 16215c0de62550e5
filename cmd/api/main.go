package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/plsfixthx/annotator/internal/config"
	"github.com/plsfixthx/annotator/internal/handlers"
	"github.com/plsfixthx/annotator/internal/middleware"
	"github.com/plsfixthx/annotator/internal/models"
	"github.com/plsfixthx/annotator/internal/services"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg := config.New()

	// Initialize Redis
	redisClient := models.InitRedis(cfg)
	defer redisClient.Close()

	// Initialize services
	sessionService := services.NewSessionService(cfg)
	imageService := services.NewImageService(cfg)
	exportService := services.NewExportService(cfg)
	shareService, err := services.NewShareService(cfg)
	if err != nil {
		log.Fatalf("Failed to init share service: %v", err)
	}

	// Expire idle sessions
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	if !sessionService.StartSweeper(sweepCtx, cfg.SessionSweepInterval) {
		log.Println("SESSION_SWEEP_INTERVAL is not positive, idle sessions are not swept")
	}

	// Remove expired shared exports from local storage
	if local := shareService.Local(); local != nil {
		go func() {
			ticker := time.NewTicker(time.Hour)
			defer ticker.Stop()
			for {
				removed, err := local.CleanupExpired()
				if err != nil {
					log.Printf("Shared file cleanup error: %v", err)
				} else if removed > 0 {
					log.Printf("Shared file cleanup: removed %d expired files", removed)
				}
				<-ticker.C
			}
		}()
	}

	// Set Gin mode
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize router
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg))
	router.Use(middleware.RateLimiter(redisClient, cfg))

	handlers.Register(router, cfg, handlers.Services{
		Sessions: sessionService,
		Images:   imageService,
		Exports:  exportService,
		Shares:   shareService,
	}, middleware.UploadRateLimit(redisClient, cfg))

	// Start server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second, // multi-page exports take a while
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
