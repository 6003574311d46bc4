// Package admission is the gate every trade intent passes before execution.
// A single mutex guards the daily counters and budget reservations, so the
// whole evaluate-and-reserve step is one critical section and two concurrent
// intents can never both claim the same slice of the budget.
package admission

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"supervisor/internal/ledger"
	"supervisor/internal/models"
	"supervisor/internal/registry"
	"supervisor/internal/rules"
	"supervisor/internal/tradingday"
)

// Rejection reason codes. The check order is fixed and callers may rely on
// it when reading audit logs: disabled symbol, trade count, loss halt,
// per-trade risk, budget, cooldown.
const (
	ReasonSymbolDisabled  = "SYMBOL_DISABLED"
	ReasonDailyTradeLimit = "DAILY_TRADE_LIMIT"
	ReasonDailyLossHalt   = "DAILY_LOSS_HALT"
	ReasonPerTradeRisk    = "PER_TRADE_RISK_LIMIT"
	ReasonBudgetExceeded  = "BUDGET_EXCEEDED"
	ReasonCooldownActive  = "COOLDOWN_ACTIVE"
)

var ErrInvalidIntent = errors.New("invalid trade intent")

// Intent is a proposed trade. It exists only for the duration of Evaluate.
type Intent struct {
	Symbol     string          `json:"symbol"`
	Side       string          `json:"side"`
	Quantity   decimal.Decimal `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	StrategyID string          `json:"strategy_id"`
}

// Decision is the outcome of Evaluate. Reason is empty on accept.
type Decision struct {
	Accepted bool         `json:"accepted"`
	Reason   string       `json:"reason,omitempty"`
	Trade    models.Trade `json:"trade"`
}

// Recorder receives settled trades for analytics.
type Recorder interface {
	RecordSettlement(trade models.Trade)
}

// reservation is budget held by an accepted trade until it settles or the
// reaper expires it. released guards against a double release when a late
// settle races the reaper.
type reservation struct {
	cost       decimal.Decimal
	acceptedAt time.Time
	released   bool
}

type Controller struct {
	Rules   *rules.Store
	Symbols *registry.Registry
	Ledger  *ledger.Ledger
	Agg     Recorder
	Clock   tradingday.Clock
	Logger  *zap.Logger

	mu          sync.Mutex
	day         time.Time
	tradesToday int
	lossToday   decimal.Decimal
	deployed    decimal.Decimal
	lastTradeAt map[string]time.Time
	open        map[string]*reservation
}

func NewController(ruleStore *rules.Store, symbols *registry.Registry, led *ledger.Ledger, agg Recorder, clock tradingday.Clock, logger *zap.Logger) *Controller {
	if clock == nil {
		clock = tradingday.SystemClock{}
	}
	return &Controller{
		Rules:       ruleStore,
		Symbols:     symbols,
		Ledger:      led,
		Agg:         agg,
		Clock:       clock,
		Logger:      logger,
		day:         tradingday.DayOf(clock.Now()),
		lastTradeAt: map[string]time.Time{},
		open:        map[string]*reservation{},
	}
}

// Evaluate runs the admission checks in their fixed order and, on accept,
// reserves budget and appends the trade to the ledger before the lock is
// released. Rejections are appended too, with their reason, for audit.
func (c *Controller) Evaluate(ctx context.Context, intent Intent) (Decision, error) {
	intent.Symbol = registry.Normalize(intent.Symbol)
	if intent.Symbol == "" || !intent.Quantity.IsPositive() || !intent.Price.IsPositive() {
		return Decision{}, ErrInvalidIntent
	}
	if intent.Side != models.SideBuy && intent.Side != models.SideSell {
		return Decision{}, ErrInvalidIntent
	}

	rs := c.Rules.Get()
	cost := intent.Quantity.Mul(intent.Price)

	c.mu.Lock()
	now := c.Clock.Now()
	c.rolloverLocked(now)

	if !c.Symbols.IsEnabled(intent.Symbol) {
		return c.rejectLocked(intent, now, ReasonSymbolDisabled)
	}
	if rs.MaxTradesPerDay > 0 && c.tradesToday+1 > rs.MaxTradesPerDay {
		return c.rejectLocked(intent, now, ReasonDailyTradeLimit)
	}
	if rs.MaxDailyLoss.IsPositive() && c.lossToday.Cmp(rs.MaxDailyLoss) >= 0 {
		return c.rejectLocked(intent, now, ReasonDailyLossHalt)
	}
	if rs.MaxRiskPerTrade.IsPositive() && cost.Cmp(rs.MaxRiskPerTrade) > 0 {
		return c.rejectLocked(intent, now, ReasonPerTradeRisk)
	}
	if rs.Budget.IsPositive() && c.deployed.Add(cost).Cmp(rs.Budget) > 0 {
		return c.rejectLocked(intent, now, ReasonBudgetExceeded)
	}
	if rs.CooldownSeconds > 0 {
		if last, ok := c.lastTradeAt[intent.Symbol]; ok {
			if now.Sub(last) < time.Duration(rs.CooldownSeconds)*time.Second {
				return c.rejectLocked(intent, now, ReasonCooldownActive)
			}
		}
	}

	trade := c.entryFor(intent, now)
	trade.Status = models.TradeStatusAccepted
	if err := c.Ledger.Append(trade); err != nil {
		c.mu.Unlock()
		return Decision{}, err
	}
	c.tradesToday++
	c.lastTradeAt[intent.Symbol] = now
	c.deployed = c.deployed.Add(cost)
	c.open[trade.ID] = &reservation{cost: cost, acceptedAt: now}
	c.mu.Unlock()

	if c.Logger != nil {
		c.Logger.Info("trade accepted",
			zap.String("trade_id", trade.ID),
			zap.String("symbol", intent.Symbol),
			zap.String("strategy_id", intent.StrategyID),
			zap.String("cost", cost.String()),
		)
	}
	return Decision{Accepted: true, Trade: trade}, nil
}

// rejectLocked appends a rejected entry and returns the decision. Caller
// holds c.mu; it is released here.
func (c *Controller) rejectLocked(intent Intent, now time.Time, reason string) (Decision, error) {
	trade := c.entryFor(intent, now)
	trade.Status = models.TradeStatusRejected
	trade.RejectReason = reason
	err := c.Ledger.Append(trade)
	c.mu.Unlock()
	if err != nil {
		return Decision{}, err
	}
	if c.Logger != nil {
		c.Logger.Info("trade rejected",
			zap.String("trade_id", trade.ID),
			zap.String("symbol", intent.Symbol),
			zap.String("reason", reason),
		)
	}
	return Decision{Accepted: false, Reason: reason, Trade: trade}, nil
}

func (c *Controller) entryFor(intent Intent, now time.Time) models.Trade {
	return models.Trade{
		ID:         ledger.NewTradeID(now),
		Timestamp:  now,
		Symbol:     intent.Symbol,
		Side:       intent.Side,
		StrategyID: intent.StrategyID,
		Quantity:   intent.Quantity,
		Price:      intent.Price,
	}
}

// Settle records the realized result of an accepted trade: the ledger entry
// transitions to filled, the budget reservation is released, and a loss
// counts toward today's halt threshold. The ledger persists first; if that
// fails no counter is touched and the caller may retry.
func (c *Controller) Settle(ctx context.Context, id string, pnl decimal.Decimal) (models.Trade, error) {
	now := c.Clock.Now()
	trade, err := c.Ledger.Settle(ctx, id, pnl, now)
	if err != nil {
		return models.Trade{}, err
	}

	c.mu.Lock()
	c.rolloverLocked(now)
	if res, ok := c.open[id]; ok && !res.released {
		res.released = true
		c.deployed = c.deployed.Sub(res.cost)
		if c.deployed.IsNegative() {
			if c.Logger != nil {
				c.Logger.Error("deployed capital went negative",
					zap.String("trade_id", id),
					zap.String("deployed", c.deployed.String()),
				)
			}
			c.deployed = decimal.Zero
		}
	}
	delete(c.open, id)
	if pnl.IsNegative() {
		c.lossToday = c.lossToday.Add(pnl.Neg())
	}
	c.mu.Unlock()

	if c.Agg != nil {
		c.Agg.RecordSettlement(trade)
	}
	if c.Logger != nil {
		c.Logger.Info("trade settled",
			zap.String("trade_id", id),
			zap.String("realized_pnl", pnl.String()),
		)
	}
	return trade, nil
}

// rolloverLocked resets daily counters when the trading day has changed.
// Budget reservations survive the boundary: deployed capital is released
// only by settlement or expiry.
func (c *Controller) rolloverLocked(now time.Time) {
	if tradingday.SameDay(now, c.day) {
		return
	}
	prev := c.day
	c.day = tradingday.DayOf(now)
	c.tradesToday = 0
	c.lossToday = decimal.Zero
	c.lastTradeAt = map[string]time.Time{}
	if c.Logger != nil {
		c.Logger.Info("trading day rolled over",
			zap.Time("from", prev),
			zap.Time("to", c.day),
		)
	}
}

// ExpireReservations releases budget held by trades accepted more than
// maxAge ago that never settled. The entry stays open in the ledger; a
// settle arriving later still records P&L but releases nothing twice.
func (c *Controller) ExpireReservations(maxAge time.Duration) int {
	now := c.Clock.Now()
	c.mu.Lock()
	released := 0
	for id, res := range c.open {
		if res.released || now.Sub(res.acceptedAt) < maxAge {
			continue
		}
		res.released = true
		c.deployed = c.deployed.Sub(res.cost)
		released++
		if c.Logger != nil {
			c.Logger.Warn("expired orphaned reservation",
				zap.String("trade_id", id),
				zap.String("cost", res.cost.String()),
				zap.Time("accepted_at", res.acceptedAt),
			)
		}
	}
	c.mu.Unlock()
	return released
}

// Restore rebuilds counters and open reservations from the ledger after a
// restart. Accepted-but-unsettled entries re-reserve their cost; entries
// from the current day rebuild trades_today, per-symbol cooldowns and the
// realized loss.
func (c *Controller) Restore(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.day = tradingday.DayOf(now)
	c.tradesToday = 0
	c.lossToday = decimal.Zero
	c.deployed = decimal.Zero
	c.lastTradeAt = map[string]time.Time{}
	c.open = map[string]*reservation{}

	for t := range c.Ledger.Query(ledger.Filter{}) {
		if t.Status == models.TradeStatusRejected {
			continue
		}
		if t.Status == models.TradeStatusAccepted {
			c.deployed = c.deployed.Add(t.Cost())
			c.open[t.ID] = &reservation{cost: t.Cost(), acceptedAt: t.Timestamp}
		}
		if tradingday.SameDay(t.Timestamp, now) {
			c.tradesToday++
			if last, ok := c.lastTradeAt[t.Symbol]; !ok || t.Timestamp.After(last) {
				c.lastTradeAt[t.Symbol] = t.Timestamp
			}
		}
		if t.Status == models.TradeStatusFilled && t.RealizedPnL != nil &&
			t.SettledAt != nil && tradingday.SameDay(*t.SettledAt, now) &&
			t.RealizedPnL.IsNegative() {
			c.lossToday = c.lossToday.Add(t.RealizedPnL.Neg())
		}
	}
}

// Counters is a point-in-time view of the controller's state.
type Counters struct {
	Day               time.Time       `json:"day"`
	TradesToday       int             `json:"trades_today"`
	RealizedLossToday decimal.Decimal `json:"realized_loss_today"`
	DeployedCapital   decimal.Decimal `json:"deployed_capital"`
	OpenReservations  int             `json:"open_reservations"`
}

func (c *Controller) Snapshot() Counters {
	c.mu.Lock()
	defer c.mu.Unlock()
	openCount := 0
	for _, res := range c.open {
		if !res.released {
			openCount++
		}
	}
	return Counters{
		Day:               c.day,
		TradesToday:       c.tradesToday,
		RealizedLossToday: c.lossToday,
		DeployedCapital:   c.deployed,
		OpenReservations:  openCount,
	}
}
