package gormrepository

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"supervisor/internal/models"
	"supervisor/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// --- Symbols ----------------------------------------------------------------

func (s *Store) InsertSymbol(ctx context.Context, item *models.Symbol) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) DeleteSymbolByTicker(ctx context.Context, ticker string) error {
	if s == nil || s.db == nil {
		return nil
	}
	ticker = strings.TrimSpace(ticker)
	if ticker == "" {
		return nil
	}
	return s.db.WithContext(ctx).Where("ticker = ?", ticker).Delete(&models.Symbol{}).Error
}

func (s *Store) UpdateSymbolEnabled(ctx context.Context, ticker string, enabled bool) error {
	if s == nil || s.db == nil {
		return nil
	}
	ticker = strings.TrimSpace(ticker)
	if ticker == "" {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Symbol{}).
		Where("ticker = ?", ticker).
		Updates(map[string]any{
			"enabled":    enabled,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (s *Store) ListSymbols(ctx context.Context) ([]models.Symbol, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Symbol
	if err := s.db.WithContext(ctx).
		Model(&models.Symbol{}).
		Order("ticker asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- Risk rules -------------------------------------------------------------

func (s *Store) GetRiskRules(ctx context.Context) (*models.RiskRules, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.RiskRules
	err := s.db.WithContext(ctx).Model(&models.RiskRules{}).Order("id asc").First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// SaveRiskRules keeps a single row: the first save inserts it, later saves
// update it in place.
func (s *Store) SaveRiskRules(ctx context.Context, item *models.RiskRules) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	existing, err := s.GetRiskRules(ctx)
	if err != nil {
		return err
	}
	if existing == nil {
		return s.db.WithContext(ctx).Create(item).Error
	}
	return s.db.WithContext(ctx).
		Model(&models.RiskRules{}).
		Where("id = ?", existing.ID).
		Updates(map[string]any{
			"max_risk_per_trade": item.MaxRiskPerTrade,
			"max_daily_loss":     item.MaxDailyLoss,
			"max_trades_per_day": item.MaxTradesPerDay,
			"cooldown_seconds":   item.CooldownSeconds,
			"budget":             item.Budget,
			"updated_at":         time.Now().UTC(),
		}).Error
}

// --- Trades -----------------------------------------------------------------

func (s *Store) InsertTrade(ctx context.Context, item *models.Trade) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

// MarkTradeSettled updates the row only while it is still accepted, so a
// concurrent settle cannot overwrite a recorded result. A zero-row update is
// surfaced as ErrRecordNotFound; the row may simply not have landed yet and
// the caller retries.
func (s *Store) MarkTradeSettled(ctx context.Context, id string, pnl decimal.Decimal, at time.Time) error {
	if s == nil || s.db == nil {
		return nil
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	res := s.db.WithContext(ctx).
		Model(&models.Trade{}).
		Where("id = ?", id).
		Where("status = ?", models.TradeStatusAccepted).
		Updates(map[string]any{
			"status":       models.TradeStatusFilled,
			"realized_pnl": pnl,
			"settled_at":   at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListTrades returns rows in append order. limit <= 0 means all rows.
func (s *Store) ListTrades(ctx context.Context, limit int) ([]models.Trade, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Trade{}).Order("id asc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var items []models.Trade
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- Equity snapshots -------------------------------------------------------

func (s *Store) InsertEquitySnapshot(ctx context.Context, item *models.EquitySnapshot) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "snapshot_at"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"equity",
			"realized_pnl",
			"unrealized_pnl",
			"max_drawdown",
			"current_drawdown",
			"settled_trades",
		}),
	}).Create(item).Error
}

func (s *Store) ListEquitySnapshots(ctx context.Context, since time.Time, limit int) ([]models.EquitySnapshot, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.EquitySnapshot{})
	if !since.IsZero() {
		query = query.Where("snapshot_at >= ?", since)
	}
	limit = normalizeLimit(limit, 500)
	var items []models.EquitySnapshot
	if err := query.Order("snapshot_at asc").Limit(limit).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- System settings --------------------------------------------------------

func (s *Store) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	item.Key = strings.TrimSpace(item.Key)
	if item.Key == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"value",
			"description",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	var item models.SystemSetting
	err := s.db.WithContext(ctx).Model(&models.SystemSetting{}).Where("key = ?", key).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListSystemSettings(ctx context.Context, params repository.ListSystemSettingsParams) ([]models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.SystemSetting{})
	if params.Prefix != nil && strings.TrimSpace(*params.Prefix) != "" {
		pattern := strings.TrimSpace(*params.Prefix) + "%"
		query = query.Where("key LIKE ?", pattern)
	}
	limit := normalizeLimit(params.Limit, 500)
	offset := normalizeOffset(params.Offset)
	var items []models.SystemSetting
	if err := query.Order("key asc").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
