package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RiskRules is the single persisted rule-set row. The live copy served to
// admission checks is the copy-on-write snapshot held by the rules store;
// this row only survives restarts.
type RiskRules struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	MaxRiskPerTrade decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	MaxDailyLoss    decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	MaxTradesPerDay int             `gorm:"not null"`
	CooldownSeconds int             `gorm:"not null"`
	Budget          decimal.Decimal `gorm:"type:numeric(30,10);not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (RiskRules) TableName() string {
	return "risk_rules"
}
