// Package rules holds the mutable risk rule set. Reads on the admission hot
// path are lock-free: Replace swaps a whole-set pointer, so an evaluation
// observes either the fully-old or fully-new rules, never a mix.
package rules

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"supervisor/internal/models"
)

// RuleSet is a point-in-time snapshot of the admission limits. Amounts are
// absolute; a zero limit disables the corresponding check.
type RuleSet struct {
	MaxRiskPerTrade decimal.Decimal `json:"max_risk_per_trade"`
	MaxDailyLoss    decimal.Decimal `json:"max_daily_loss"`
	MaxTradesPerDay int             `json:"max_trades_per_day"`
	CooldownSeconds int             `json:"cooldown_seconds"`
	Budget          decimal.Decimal `json:"budget"`
}

// ValidationError reports a malformed rule set. It is returned before any
// state is mutated.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid rule set: %s %s", e.Field, e.Reason)
}

// Validate rejects negative limits, and the ambiguous combination of zero
// trades per day with a nonzero budget: budget capital that can never be
// deployed is a configuration mistake, not a halt instruction.
func (r RuleSet) Validate() error {
	if r.MaxRiskPerTrade.IsNegative() {
		return &ValidationError{Field: "max_risk_per_trade", Reason: "must not be negative"}
	}
	if r.MaxDailyLoss.IsNegative() {
		return &ValidationError{Field: "max_daily_loss", Reason: "must not be negative"}
	}
	if r.MaxTradesPerDay < 0 {
		return &ValidationError{Field: "max_trades_per_day", Reason: "must not be negative"}
	}
	if r.CooldownSeconds < 0 {
		return &ValidationError{Field: "cooldown_seconds", Reason: "must not be negative"}
	}
	if r.Budget.IsNegative() {
		return &ValidationError{Field: "budget", Reason: "must not be negative"}
	}
	if r.MaxTradesPerDay == 0 && r.Budget.IsPositive() {
		return &ValidationError{Field: "max_trades_per_day", Reason: "is zero while budget is nonzero"}
	}
	return nil
}

// RuleStore is the persistence surface the store needs; *gormrepository.Store
// satisfies it.
type RuleStore interface {
	GetRiskRules(ctx context.Context) (*models.RiskRules, error)
	SaveRiskRules(ctx context.Context, item *models.RiskRules) error
}

type Store struct {
	Repo   RuleStore
	Logger *zap.Logger

	current atomic.Pointer[RuleSet]
}

// NewStore seeds the store with defaults, then prefers the persisted row if
// one exists.
func NewStore(ctx context.Context, repo RuleStore, logger *zap.Logger, defaults RuleSet) (*Store, error) {
	if err := defaults.Validate(); err != nil {
		return nil, err
	}
	s := &Store{Repo: repo, Logger: logger}
	s.current.Store(&defaults)

	if repo == nil {
		return s, nil
	}
	row, err := repo.GetRiskRules(ctx)
	if err != nil {
		return nil, err
	}
	if row == nil {
		// First start: persist the seed so the admin API has a row to update.
		if err := repo.SaveRiskRules(ctx, rulesToRow(defaults)); err != nil {
			return nil, err
		}
		return s, nil
	}
	loaded := rowToRules(row)
	if err := loaded.Validate(); err != nil {
		// A bad persisted row must not brick startup; keep the seed.
		if logger != nil {
			logger.Warn("persisted risk rules invalid, using defaults", zap.Error(err))
		}
		return s, nil
	}
	s.current.Store(&loaded)
	return s, nil
}

// Get returns the current snapshot. Safe for concurrent use; the returned
// value is a copy and never mutated by the store.
func (s *Store) Get() RuleSet {
	return *s.current.Load()
}

// Replace validates and atomically publishes a whole new rule set.
func (s *Store) Replace(ctx context.Context, next RuleSet) error {
	if err := next.Validate(); err != nil {
		return err
	}
	if s.Repo != nil {
		if err := s.Repo.SaveRiskRules(ctx, rulesToRow(next)); err != nil {
			return err
		}
	}
	s.current.Store(&next)
	if s.Logger != nil {
		s.Logger.Info("risk rules replaced",
			zap.String("max_risk_per_trade", next.MaxRiskPerTrade.String()),
			zap.String("max_daily_loss", next.MaxDailyLoss.String()),
			zap.Int("max_trades_per_day", next.MaxTradesPerDay),
			zap.Int("cooldown_seconds", next.CooldownSeconds),
			zap.String("budget", next.Budget.String()),
		)
	}
	return nil
}

func rulesToRow(r RuleSet) *models.RiskRules {
	return &models.RiskRules{
		MaxRiskPerTrade: r.MaxRiskPerTrade,
		MaxDailyLoss:    r.MaxDailyLoss,
		MaxTradesPerDay: r.MaxTradesPerDay,
		CooldownSeconds: r.CooldownSeconds,
		Budget:          r.Budget,
		UpdatedAt:       time.Now().UTC(),
	}
}

func rowToRules(row *models.RiskRules) RuleSet {
	return RuleSet{
		MaxRiskPerTrade: row.MaxRiskPerTrade,
		MaxDailyLoss:    row.MaxDailyLoss,
		MaxTradesPerDay: row.MaxTradesPerDay,
		CooldownSeconds: row.CooldownSeconds,
		Budget:          row.Budget,
	}
}
