package controllers

import (
	"net/http"
	"time"

	"go_scanner_project/models"
	"go_scanner_project/services/provider"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// UniverseController serves the known ticker universe
type UniverseController struct {
	db       *gorm.DB
	provider provider.MarketDataProvider
}

// NewUniverseController creates a new universe controller. The database is
// optional; without one the provider is queried directly.
func NewUniverseController(db *gorm.DB, p provider.MarketDataProvider) *UniverseController {
	return &UniverseController{db: db, provider: p}
}

// List returns the tracked ticker universe
// GET /api/v1/universe
func (uc *UniverseController) List(c *gin.Context) {
	if uc.db == nil {
		uc.listFromProvider(c)
		return
	}

	query := uc.db.Model(&models.Ticker{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if exchange := c.Query("exchange"); exchange != "" {
		query = query.Where("exchange = ?", exchange)
	}

	var tickers []models.Ticker
	if err := query.Order("symbol asc").Find(&tickers).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  tickers,
		"total": len(tickers),
	})
}

// listFromProvider asks the market data provider for tickers active over the
// trailing month.
func (uc *UniverseController) listFromProvider(c *gin.Context) {
	end := time.Now()
	start := end.AddDate(0, -1, 0)

	symbols, err := uc.provider.ListActiveTickers(c.Request.Context(), start, end)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  symbols,
		"total": len(symbols),
	})
}
