package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"supervisor/internal/ledger"
	"supervisor/internal/models"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func settled(id, symbol, strategy string, pnl int64, at time.Time) models.Trade {
	p := d(pnl)
	return models.Trade{
		ID:          id,
		Timestamp:   at.Add(-time.Hour),
		Symbol:      symbol,
		Side:        models.SideBuy,
		StrategyID:  strategy,
		Quantity:    d(1),
		Price:       d(100),
		Status:      models.TradeStatusFilled,
		RealizedPnL: &p,
		SettledAt:   &at,
	}
}

func at(h int) time.Time {
	return time.Date(2026, 7, 1, h, 0, 0, 0, time.UTC)
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestStats_EmptyAggregator(t *testing.T) {
	a := New(d(100000), nil)
	s := a.Stats()
	if s.WinRate != 0 || s.LossRate != 0 || s.Trades != 0 {
		t.Fatalf("stats=%+v want zeroed rates", s)
	}
	if s.Equity.Cmp(d(100000)) != 0 {
		t.Fatalf("equity=%s want starting capital", s.Equity)
	}
}

func TestRates_ZeroPnLCountsDenominatorOnly(t *testing.T) {
	a := New(d(1000), nil)
	a.RecordSettlement(settled("01", "AAPL", "s", 50, at(9)))
	a.RecordSettlement(settled("02", "AAPL", "s", -30, at(10)))
	a.RecordSettlement(settled("03", "AAPL", "s", 0, at(11)))
	a.RecordSettlement(settled("04", "AAPL", "s", 20, at(12)))

	s := a.Stats()
	if !approx(s.WinRate, 0.5) {
		t.Fatalf("winRate=%f want=0.5", s.WinRate)
	}
	if !approx(s.LossRate, 0.25) {
		t.Fatalf("lossRate=%f want=0.25", s.LossRate)
	}
	if s.WinRate+s.LossRate > 1 {
		t.Fatalf("winRate+lossRate=%f exceeds 1", s.WinRate+s.LossRate)
	}
	if s.Trades != 4 {
		t.Fatalf("trades=%d want=4", s.Trades)
	}
}

func TestEquityCurveAndDrawdown(t *testing.T) {
	a := New(d(1000), nil)
	// Equity 1100 (new peak), then 550 (dd 0.5), then back to 1000.
	a.RecordSettlement(settled("01", "AAPL", "s", 100, at(9)))
	a.RecordSettlement(settled("02", "AAPL", "s", -550, at(10)))
	a.RecordSettlement(settled("03", "AAPL", "s", 450, at(11)))

	curve := a.EquityCurve()
	if len(curve) != 3 {
		t.Fatalf("curve len=%d want=3", len(curve))
	}
	if curve[2].Equity.Cmp(d(1000)) != 0 {
		t.Fatalf("equity=%s want=1000", curve[2].Equity)
	}

	s := a.Stats()
	if s.MaxDrawdown.Cmp(decimal.NewFromFloat(0.5)) != 0 {
		t.Fatalf("maxDD=%s want=0.5", s.MaxDrawdown)
	}
	// Recovery lowers current drawdown but never max drawdown.
	if s.CurrentDrawdown.Cmp(s.MaxDrawdown) >= 0 {
		t.Fatalf("currentDD=%s not below maxDD=%s after recovery", s.CurrentDrawdown, s.MaxDrawdown)
	}
	if s.CurrentDrawdown.IsNegative() {
		t.Fatalf("currentDD=%s negative", s.CurrentDrawdown)
	}
}

func TestMaxDrawdownMonotonic(t *testing.T) {
	a := New(d(1000), nil)
	prev := decimal.Zero
	pnls := []int64{100, -200, 300, -400, 50, -50, 600}
	for i, pnl := range pnls {
		a.RecordSettlement(settled(string(rune('A'+i)), "AAPL", "s", pnl, at(9).Add(time.Duration(i)*time.Minute)))
		s := a.Stats()
		if s.MaxDrawdown.Cmp(prev) < 0 {
			t.Fatalf("maxDD decreased: %s -> %s", prev, s.MaxDrawdown)
		}
		prev = s.MaxDrawdown
	}
}

func TestCurveStaysMonotonicOnLateSettlement(t *testing.T) {
	a := New(d(1000), nil)
	a.RecordSettlement(settled("01", "AAPL", "s", 10, at(12)))
	a.RecordSettlement(settled("02", "AAPL", "s", 10, at(9))) // settled out of order

	curve := a.EquityCurve()
	for i := 1; i < len(curve); i++ {
		if curve[i].T.Before(curve[i-1].T) {
			t.Fatalf("curve not monotonic in t: %v before %v", curve[i].T, curve[i-1].T)
		}
	}
}

func TestUnrealizedMovesEquity(t *testing.T) {
	a := New(d(1000), nil)
	a.RecordSettlement(settled("01", "AAPL", "s", 100, at(9)))
	a.SetUnrealized(d(-200), at(10))

	s := a.Stats()
	if s.Equity.Cmp(d(900)) != 0 {
		t.Fatalf("equity=%s want=900", s.Equity)
	}
	if s.UnrealizedPnL.Cmp(d(-200)) != 0 {
		t.Fatalf("unrealized=%s want=-200", s.UnrealizedPnL)
	}
	if s.CurrentDrawdown.IsZero() {
		t.Fatalf("mark-to-market loss must show up in drawdown")
	}
}

func TestAttribution(t *testing.T) {
	a := New(d(1000), nil)
	a.RecordSettlement(settled("01", "AAPL", "momentum", 100, at(9)))
	a.RecordSettlement(settled("02", "TSLA", "momentum", -40, at(10)))
	a.RecordSettlement(settled("03", "AAPL", "reversion", 60, at(11)))

	strategies := a.ByStrategy()
	if len(strategies) != 2 {
		t.Fatalf("strategies=%d want=2", len(strategies))
	}
	if strategies[0].Strategy != "momentum" || strategies[0].PnL.Cmp(d(60)) != 0 {
		t.Fatalf("momentum=%+v want pnl=60", strategies[0])
	}
	if !approx(strategies[0].WinRate, 0.5) {
		t.Fatalf("momentum winRate=%f want=0.5", strategies[0].WinRate)
	}

	symbols := a.BySymbol()
	if len(symbols) != 2 || symbols[0].Symbol != "AAPL" {
		t.Fatalf("symbols=%+v want AAPL first", symbols)
	}
	if symbols[0].PnL.Cmp(d(160)) != 0 {
		t.Fatalf("AAPL pnl=%s want=160", symbols[0].PnL)
	}
}

func TestRecomputeMatchesIncremental(t *testing.T) {
	led := ledger.New(nil, nil)
	incremental := New(d(1000), nil)

	trades := []models.Trade{
		settled("01", "AAPL", "momentum", 100, at(12)),
		settled("02", "TSLA", "momentum", -250, at(9)),
		settled("03", "AAPL", "reversion", 0, at(10)),
		settled("04", "NVDA", "reversion", 75, at(11)),
	}
	for _, tr := range trades {
		if err := led.Append(tr); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	// Incremental path sees them in settlement order.
	for _, i := range []int{1, 2, 3, 0} {
		incremental.RecordSettlement(trades[i])
	}

	recomputed := New(d(1000), nil)
	recomputed.Recompute(led)

	a, b := incremental.Stats(), recomputed.Stats()
	if a.RealizedPnL.Cmp(b.RealizedPnL) != 0 || a.Trades != b.Trades {
		t.Fatalf("stats diverge: %+v vs %+v", a, b)
	}
	if !approx(a.WinRate, b.WinRate) || !approx(a.LossRate, b.LossRate) {
		t.Fatalf("rates diverge: %+v vs %+v", a, b)
	}
	if a.MaxDrawdown.Cmp(b.MaxDrawdown) != 0 {
		t.Fatalf("maxDD diverges: %s vs %s", a.MaxDrawdown, b.MaxDrawdown)
	}
	if len(incremental.EquityCurve()) != len(recomputed.EquityCurve()) {
		t.Fatalf("curve lengths diverge")
	}
}
