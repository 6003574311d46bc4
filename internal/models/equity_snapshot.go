package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type EquitySnapshot struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	SnapshotAt time.Time `gorm:"type:timestamptz;not null;uniqueIndex"`

	Equity        decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	RealizedPnL   decimal.Decimal `gorm:"column:realized_pnl;type:numeric(30,10);not null"`
	UnrealizedPnL decimal.Decimal `gorm:"column:unrealized_pnl;type:numeric(30,10);not null"`

	MaxDrawdown     decimal.Decimal `gorm:"type:numeric(20,10);not null"`
	CurrentDrawdown decimal.Decimal `gorm:"type:numeric(20,10);not null"`
	SettledTrades   int             `gorm:"not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (EquitySnapshot) TableName() string {
	return "equity_snapshots"
}
