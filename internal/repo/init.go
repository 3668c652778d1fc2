package repo

import (
	"gorm.io/gorm"

	"trading-alert-bot/internal/entity"
)

func InitTables(db *gorm.DB) error {
	return db.AutoMigrate(&entity.Trigger{})
}
