package database

import (
	"fmt"

	"water-auction/internal/config"
	"water-auction/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Connect establishes the database connection for the configured driver.
func Connect(cfg *config.Config) error {
	var (
		dialector gorm.Dialector
		err       error
	)

	switch cfg.Database.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.GetDSN())
	default:
		dialector = sqlite.Open(cfg.Database.SQLitePath)
	}

	DB, err = gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	return nil
}

// AutoMigrate runs automatic migrations for all models
func AutoMigrate() error {
	return DB.AutoMigrate(
		&models.Participant{},
		&models.ParticipantResponse{},
		&models.Bid{},
		&models.AuctionRound{},
		&models.ParticipantRoundResult{},
	)
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}
