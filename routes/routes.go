package routes

import (
	"time"

	"go_scanner_project/controllers"
	"go_scanner_project/middleware"
	"go_scanner_project/services/provider"
	"go_scanner_project/services/scanner"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRoutes sets up all API routes
func SetupRoutes(router *gin.Engine, db *gorm.DB, svc *scanner.Service, p provider.MarketDataProvider) {
	// Initialize controllers
	scanController := controllers.NewScanController(svc)
	universeController := controllers.NewUniverseController(db, p)

	// Scan submissions fan out into provider requests; throttle per IP
	submitLimiter := middleware.NewRateLimiter(30, time.Minute)

	// API v1 group
	api := router.Group("/api/v1")
	{
		// Scan routes
		scans := api.Group("/scans")
		{
			scans.POST("", middleware.ScanSubmitLimit(submitLimiter), scanController.Submit)
			scans.GET("", scanController.List)
			scans.GET("/:id", scanController.GetStatus)
			scans.GET("/:id/results", scanController.GetResults)
			scans.POST("/:id/cancel", scanController.Cancel)
			scans.GET("/:id/stream", scanController.Stream)
		}

		// Universe routes
		api.GET("/universe", universeController.List)
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Scanner API is running",
		})
	})
}
