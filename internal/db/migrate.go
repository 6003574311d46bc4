package db

import (
	"supervisor/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Symbol{},
		&models.RiskRules{},
		&models.Trade{},
		&models.EquitySnapshot{},
		&models.SystemSetting{},
	)
}
