package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"supervisor/internal/models"
)

type ListSystemSettingsParams struct {
	Prefix *string
	Limit  int
	Offset int
}

// Repository is the unified persistence surface. The domain packages each
// consume a narrow slice of it (rules.RuleStore, registry.SymbolStore,
// ledger.TradeStore) so tests can stub just what they touch.
type Repository interface {
	// Symbols
	InsertSymbol(ctx context.Context, item *models.Symbol) error
	DeleteSymbolByTicker(ctx context.Context, ticker string) error
	UpdateSymbolEnabled(ctx context.Context, ticker string, enabled bool) error
	ListSymbols(ctx context.Context) ([]models.Symbol, error)

	// Risk rules (singleton row)
	GetRiskRules(ctx context.Context) (*models.RiskRules, error)
	SaveRiskRules(ctx context.Context, item *models.RiskRules) error

	// Trades. Filtered reads go through the ledger, which holds every row
	// in memory; the store only persists and replays.
	InsertTrade(ctx context.Context, item *models.Trade) error
	MarkTradeSettled(ctx context.Context, id string, pnl decimal.Decimal, at time.Time) error
	ListTrades(ctx context.Context, limit int) ([]models.Trade, error)

	// Equity snapshots
	InsertEquitySnapshot(ctx context.Context, item *models.EquitySnapshot) error
	ListEquitySnapshots(ctx context.Context, since time.Time, limit int) ([]models.EquitySnapshot, error)

	// System settings
	UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error
	GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error)
	ListSystemSettings(ctx context.Context, params ListSystemSettingsParams) ([]models.SystemSetting, error)
}
