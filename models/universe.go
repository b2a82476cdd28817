package models

import (
	"time"

	"gorm.io/gorm"
)

// Ticker represents one listed symbol in the scanner's known universe.
// The universe store backs the volume pre-filter's degraded path: when the
// market-data provider is unreachable the active symbols recorded here are
// returned as the unfiltered candidate list.
type Ticker struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Symbol    string    `gorm:"uniqueIndex;not null" json:"symbol"`
	Name      string    `json:"name"`
	Exchange  string    `json:"exchange"` // NYSE, NASDAQ, AMEX
	Status    string    `json:"status"`   // active, delisted, suspended
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MigrateScannerModels runs database migrations for scanner-related models
func MigrateScannerModels(db *gorm.DB) error {
	return db.AutoMigrate(&Ticker{})
}
