package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TradeStatusAccepted = "accepted"
	TradeStatusRejected = "rejected"
	TradeStatusFilled   = "filled"
)

const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// Trade is a ledger entry. Rows are append-only: the only mutation after
// insert is the accepted → filled transition when settlement arrives.
type Trade struct {
	ID string `gorm:"type:varchar(26);primaryKey" json:"id"`

	Timestamp  time.Time `gorm:"type:timestamptz;not null;index" json:"timestamp"`
	Symbol     string    `gorm:"type:varchar(16);not null;index" json:"symbol"`
	Side       string    `gorm:"type:varchar(4);not null" json:"side"`
	StrategyID string    `gorm:"type:varchar(50);index" json:"strategy_id"`

	Quantity decimal.Decimal `gorm:"type:numeric(30,10);not null" json:"quantity"`
	Price    decimal.Decimal `gorm:"type:numeric(20,10);not null" json:"price"`

	// Use an explicit column name because default GORM naming turns "PnL" into "pn_l".
	RealizedPnL *decimal.Decimal `gorm:"column:realized_pnl;type:numeric(30,10)" json:"realized_pnl"`

	Status       string     `gorm:"type:varchar(10);not null;index" json:"status"`
	RejectReason string     `gorm:"type:varchar(30)" json:"reject_reason,omitempty"`
	SettledAt    *time.Time `gorm:"type:timestamptz" json:"settled_at,omitempty"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
}

func (Trade) TableName() string {
	return "trades"
}

// Cost is the capital a trade intent occupies while its reservation is open.
func (t Trade) Cost() decimal.Decimal {
	return t.Quantity.Mul(t.Price)
}

// Settled reports whether a realized result has been recorded.
func (t Trade) Settled() bool {
	return t.Status == TradeStatusFilled && t.RealizedPnL != nil
}
