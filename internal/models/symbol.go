package models

import (
	"time"
)

type Symbol struct {
	ID      uint64 `gorm:"primaryKey;autoIncrement" json:"-"`
	Ticker  string `gorm:"type:varchar(16);not null;uniqueIndex" json:"symbol"`
	Enabled bool   `gorm:"not null;default:true" json:"enabled"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (Symbol) TableName() string {
	return "symbols"
}
