package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go_scanner_project/config"
	"go_scanner_project/models"
	"go_scanner_project/routes"
	"go_scanner_project/scheduler"
	"go_scanner_project/services/prefilter"
	"go_scanner_project/services/provider"
	"go_scanner_project/services/scanner"

	"github.com/gin-gonic/gin"
)

// servicesReady tracks whether the scan pipeline has been wired up.
// This global variable is used for thread-safe access across goroutines to
// allow the /ready health endpoint to dynamically check service status
var servicesReady bool
var readyMutex sync.RWMutex

func main() {
	log.Println("==============================================")
	log.Println("  Market Scanner API - Starting...")
	log.Println("==============================================")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("Warning: Config load issue: %v", err)
	}

	// Set Gin mode based on environment
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create Gin router
	router := gin.New()

	// Add middlewares
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(requestLogger())

	// Setup health check endpoints FIRST so the platform can detect the
	// service is up; the pipeline is wired in the background
	setupHealthEndpoints(router)

	// Create HTTP server. WriteTimeout must stay generous for the progress
	// stream endpoint; WebSocket connections hijack the underlying conn and
	// are not bound by it after the upgrade.
	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB
	}

	// Start server IMMEDIATELY so the platform knows we're listening
	go func() {
		log.Printf("Server listening on 0.0.0.0:%s", cfg.Port)
		log.Println("==============================================")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wire the scan pipeline and setup routes in background
	var jobScheduler *scheduler.Scheduler
	go func() {
		// Initialize database connection (optional; universe fallback only)
		db, err := config.InitDB()
		if err != nil {
			log.Printf("ERROR: Database connection failed: %v", err)
			log.Println("Service will continue without ticker store")
			db = nil
		}

		if db != nil {
			log.Println("Running database migrations...")
			if err := models.MigrateScannerModels(db); err != nil {
				log.Printf("ERROR: Migration failed: %v", err)
			} else {
				log.Println("Database migrations completed successfully")
			}
		}

		// Build the scan pipeline
		marketData := provider.NewClient(cfg.ProviderBaseURL, cfg.ProviderAPIKey)
		volumeFilter := prefilter.New(marketData, db, cfg.VolumeCacheTTL)
		scanService := scanner.NewService(marketData, volumeFilter, cfg.ScanMaxConcurrency, cfg.ScanBatchSize)

		// Mark pipeline as ready
		readyMutex.Lock()
		servicesReady = true
		readyMutex.Unlock()

		// Setup all API routes
		routes.SetupRoutes(router, db, scanService, marketData)

		// Start background scheduler
		jobScheduler = scheduler.NewScheduler(volumeFilter, scanService, cfg.JobRetention)
		go jobScheduler.Start()

		log.Println("Application fully initialized")
	}()

	// Graceful shutdown
	gracefulShutdown(server, jobScheduler)
}

// setupHealthEndpoints sets up health check endpoints
func setupHealthEndpoints(router *gin.Engine) {
	// Root endpoint
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Market Scanner API",
			"version": "1.0.0",
		})
	})

	// Liveness probe - always returns OK if server is running
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	// Readiness probe - checks if the scan pipeline is wired up
	router.GET("/ready", func(c *gin.Context) {
		readyMutex.RLock()
		isReady := servicesReady
		readyMutex.RUnlock()

		if !isReady {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "not_ready",
				"message": "Scan pipeline not initialized",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "ready",
		})
	})

	// Startup probe - can be used for initial health check
	router.GET("/startup", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "started",
		})
	})
}

// corsMiddleware returns a CORS middleware handler
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// requestLogger returns a request logging middleware
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip logging for health checks to reduce noise
		path := c.Request.URL.Path
		if path == "/health" || path == "/ready" || path == "/startup" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		// Only log errors or slow requests in production
		if c.Writer.Status() >= 400 || duration > 1*time.Second {
			log.Printf("%s %s %d %v", c.Request.Method, path, c.Writer.Status(), duration)
		}
	}
}

// gracefulShutdown handles graceful shutdown of the server
func gracefulShutdown(server *http.Server, jobScheduler *scheduler.Scheduler) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal
	sig := <-quit
	log.Printf("Received signal %v, shutting down gracefully...", sig)

	// Stop scheduler first
	if jobScheduler != nil {
		jobScheduler.Stop()
	}

	// Create context with timeout for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	// Close database connection
	if config.DB != nil {
		sqlDB, err := config.DB.DB()
		if err == nil {
			sqlDB.Close()
			log.Println("Database connection closed")
		}
	}

	log.Println("Server shutdown completed")
}
