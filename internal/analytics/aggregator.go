// Package analytics derives performance figures from settled trades: win and
// loss rates, the equity curve, drawdown, and per-strategy / per-symbol
// attribution. Everything is a reduction over the ledger, so the state can be
// rebuilt from scratch at any time and incremental updates must agree with a
// full recompute.
package analytics

import (
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"supervisor/internal/ledger"
	"supervisor/internal/models"
)

type EquityPoint struct {
	T      time.Time       `json:"t"`
	Equity decimal.Decimal `json:"equity"`
}

type DrawdownPoint struct {
	T        time.Time       `json:"t"`
	Drawdown decimal.Decimal `json:"dd"`
}

// Stats is the dashboard's headline snapshot.
type Stats struct {
	RealizedPnL     decimal.Decimal `json:"realized_pnl"`
	UnrealizedPnL   decimal.Decimal `json:"unrealized_pnl"`
	Equity          decimal.Decimal `json:"equity"`
	WinRate         float64         `json:"win_rate"`
	LossRate        float64         `json:"loss_rate"`
	Trades          int             `json:"trades"`
	MaxDrawdown     decimal.Decimal `json:"max_drawdown"`
	CurrentDrawdown decimal.Decimal `json:"current_drawdown"`
}

type StrategyPerformance struct {
	Strategy string          `json:"strategy"`
	PnL      decimal.Decimal `json:"pnl"`
	WinRate  float64         `json:"win_rate"`
	Trades   int             `json:"trades"`
}

type SymbolPerformance struct {
	Symbol  string          `json:"symbol"`
	PnL     decimal.Decimal `json:"pnl"`
	WinRate float64         `json:"win_rate"`
	Trades  int             `json:"trades"`
}

type group struct {
	pnl    decimal.Decimal
	trades int
	wins   int
}

type Aggregator struct {
	Logger *zap.Logger

	mu              sync.RWMutex
	startingCapital decimal.Decimal
	realized        decimal.Decimal
	unrealized      decimal.Decimal
	settled         int
	wins            int
	losses          int
	equity          []EquityPoint
	drawdowns       []DrawdownPoint
	peak            decimal.Decimal
	maxDD           decimal.Decimal
	byStrategy      map[string]*group
	bySymbol        map[string]*group
}

func New(startingCapital decimal.Decimal, logger *zap.Logger) *Aggregator {
	a := &Aggregator{Logger: logger}
	a.resetLocked(startingCapital)
	return a
}

func (a *Aggregator) resetLocked(startingCapital decimal.Decimal) {
	a.startingCapital = startingCapital
	a.realized = decimal.Zero
	a.settled = 0
	a.wins = 0
	a.losses = 0
	a.equity = nil
	a.drawdowns = nil
	a.peak = startingCapital
	a.maxDD = decimal.Zero
	a.byStrategy = map[string]*group{}
	a.bySymbol = map[string]*group{}
}

// RecordSettlement folds one settled trade into the running aggregates and
// extends the equity curve.
func (a *Aggregator) RecordSettlement(trade models.Trade) {
	if trade.RealizedPnL == nil || trade.SettledAt == nil {
		if a.Logger != nil {
			a.Logger.Warn("settlement without pnl or timestamp ignored",
				zap.String("trade_id", trade.ID),
			)
		}
		return
	}
	a.mu.Lock()
	a.recordLocked(trade)
	a.mu.Unlock()
}

func (a *Aggregator) recordLocked(trade models.Trade) {
	pnl := *trade.RealizedPnL
	a.realized = a.realized.Add(pnl)
	a.settled++
	switch {
	case pnl.IsPositive():
		a.wins++
	case pnl.IsNegative():
		a.losses++
	}

	fold(a.byStrategy, trade.StrategyID, pnl)
	fold(a.bySymbol, trade.Symbol, pnl)

	a.extendCurveLocked(*trade.SettledAt)
}

// SetUnrealized takes a mark-to-market snapshot from the pricing collaborator
// and moves the equity curve accordingly.
func (a *Aggregator) SetUnrealized(v decimal.Decimal, at time.Time) {
	a.mu.Lock()
	a.unrealized = v
	a.extendCurveLocked(at)
	a.mu.Unlock()
}

// extendCurveLocked appends an equity point and its drawdown. Settlements may
// arrive out of timestamp order; the curve stays monotonic in t by clamping
// to the latest point already recorded.
func (a *Aggregator) extendCurveLocked(at time.Time) {
	if n := len(a.equity); n > 0 && at.Before(a.equity[n-1].T) {
		at = a.equity[n-1].T
	}
	eq := a.startingCapital.Add(a.realized).Add(a.unrealized)
	a.equity = append(a.equity, EquityPoint{T: at, Equity: eq})

	if eq.Cmp(a.peak) > 0 {
		a.peak = eq
	}
	dd := decimal.Zero
	if a.peak.IsPositive() && eq.Cmp(a.peak) < 0 {
		dd = a.peak.Sub(eq).Div(a.peak)
	}
	if dd.Cmp(a.maxDD) > 0 {
		a.maxDD = dd
	}
	a.drawdowns = append(a.drawdowns, DrawdownPoint{T: at, Drawdown: dd})
}

func (a *Aggregator) Stats() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s := Stats{
		RealizedPnL:   a.realized,
		UnrealizedPnL: a.unrealized,
		Equity:        a.startingCapital.Add(a.realized).Add(a.unrealized),
		Trades:        a.settled,
		MaxDrawdown:   a.maxDD,
	}
	if a.settled > 0 {
		s.WinRate = float64(a.wins) / float64(a.settled)
		s.LossRate = float64(a.losses) / float64(a.settled)
	}
	if n := len(a.drawdowns); n > 0 {
		s.CurrentDrawdown = a.drawdowns[n-1].Drawdown
	}
	return s
}

func (a *Aggregator) EquityCurve() []EquityPoint {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]EquityPoint, len(a.equity))
	copy(out, a.equity)
	return out
}

func (a *Aggregator) DrawdownSeries() []DrawdownPoint {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]DrawdownPoint, len(a.drawdowns))
	copy(out, a.drawdowns)
	return out
}

func (a *Aggregator) ByStrategy() []StrategyPerformance {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]StrategyPerformance, 0, len(a.byStrategy))
	for name, g := range a.byStrategy {
		out = append(out, StrategyPerformance{
			Strategy: name,
			PnL:      g.pnl,
			WinRate:  winRate(g),
			Trades:   g.trades,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Strategy < out[j].Strategy })
	return out
}

func (a *Aggregator) BySymbol() []SymbolPerformance {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]SymbolPerformance, 0, len(a.bySymbol))
	for name, g := range a.bySymbol {
		out = append(out, SymbolPerformance{
			Symbol:  name,
			PnL:     g.pnl,
			WinRate: winRate(g),
			Trades:  g.trades,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

func fold(m map[string]*group, key string, pnl decimal.Decimal) {
	g := m[key]
	if g == nil {
		g = &group{}
		m[key] = g
	}
	g.pnl = g.pnl.Add(pnl)
	g.trades++
	if pnl.IsPositive() {
		g.wins++
	}
}

func winRate(g *group) float64 {
	if g.trades == 0 {
		return 0
	}
	return float64(g.wins) / float64(g.trades)
}

// Recompute rebuilds all aggregates from the ledger, replaying settlements in
// settlement order. The unrealized snapshot is kept.
func (a *Aggregator) Recompute(led *ledger.Ledger) {
	var settled []models.Trade
	for t := range led.Query(ledger.Filter{Status: models.TradeStatusFilled}) {
		if t.RealizedPnL == nil || t.SettledAt == nil {
			continue
		}
		settled = append(settled, t)
	}
	sort.SliceStable(settled, func(i, j int) bool {
		return settled[i].SettledAt.Before(*settled[j].SettledAt)
	})

	a.mu.Lock()
	a.resetLocked(a.startingCapital)
	for _, t := range settled {
		a.recordLocked(t)
	}
	a.mu.Unlock()
	if a.Logger != nil {
		a.Logger.Info("analytics recomputed", zap.Int("settled_trades", len(settled)))
	}
}
