package entity

import (
	"time"
)

// Trigger is one fired notification, kept for status reporting.
type Trigger struct {
	Id        int64  `gorm:"primaryKey;autoIncrement"`
	Kind      string `gorm:"index"` // price | rsi | divergence | whale | volume
	Market    string `gorm:"index"`
	Exchange  string
	Symbol    string `gorm:"index"`
	AlertID   string `gorm:"index"` // empty for whale and volume hits
	Direction string
	Price     string
	Quantity  string
	Target    string
	Timeframe string
	Strength  float64
	CreatedAt time.Time `gorm:"index"`
}
