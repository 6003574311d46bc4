// Package ledger is the append-only record of trade evaluations and their
// realized results. In-memory state is authoritative for the hot path;
// accepted/rejected rows are persisted best-effort in the background, while
// settlements persist synchronously so a storage fault can be surfaced to
// the caller for retry.
package ledger

import (
	"context"
	"errors"
	"iter"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"supervisor/internal/models"
)

var (
	ErrTradeNotFound  = errors.New("trade not found")
	ErrAlreadySettled = errors.New("trade already settled")
	ErrNotSettleable  = errors.New("trade was not accepted")
	ErrDuplicateTrade = errors.New("trade id already appended")
)

// TradeStore is the persistence surface the ledger needs.
type TradeStore interface {
	InsertTrade(ctx context.Context, item *models.Trade) error
	MarkTradeSettled(ctx context.Context, id string, pnl decimal.Decimal, at time.Time) error
	ListTrades(ctx context.Context, limit int) ([]models.Trade, error)
}

type Ledger struct {
	Repo   TradeStore
	Logger *zap.Logger

	mu      sync.RWMutex
	entries []models.Trade
	byID    map[string]int
}

func New(repo TradeStore, logger *zap.Logger) *Ledger {
	return &Ledger{
		Repo:   repo,
		Logger: logger,
		byID:   map[string]int{},
	}
}

// Load rebuilds the in-memory ledger from persisted rows, oldest first.
func (l *Ledger) Load(ctx context.Context) error {
	if l.Repo == nil {
		return nil
	}
	items, err := l.Repo.ListTrades(ctx, 0)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.entries = items
	l.byID = make(map[string]int, len(items))
	for i, t := range items {
		l.byID[t.ID] = i
	}
	l.mu.Unlock()
	return nil
}

// Append records a trade. The entry is visible to readers immediately; the
// DB insert runs in the background so admission never blocks on storage.
func (l *Ledger) Append(trade models.Trade) error {
	l.mu.Lock()
	if _, ok := l.byID[trade.ID]; ok {
		l.mu.Unlock()
		return ErrDuplicateTrade
	}
	l.byID[trade.ID] = len(l.entries)
	l.entries = append(l.entries, trade)
	l.mu.Unlock()

	if l.Repo != nil {
		go func(item models.Trade) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := l.Repo.InsertTrade(ctx, &item); err != nil && l.Logger != nil {
				l.Logger.Warn("trade insert failed",
					zap.String("trade_id", item.ID),
					zap.Error(err),
				)
			}
		}(trade)
	}
	return nil
}

// Settle transitions an accepted entry to filled and records its realized
// P&L. The DB write is synchronous: if it fails the in-memory transition is
// reverted and the error returned, so the caller can retry without the
// ledger and the counters disagreeing.
func (l *Ledger) Settle(ctx context.Context, id string, pnl decimal.Decimal, at time.Time) (models.Trade, error) {
	l.mu.Lock()
	idx, ok := l.byID[id]
	if !ok {
		l.mu.Unlock()
		return models.Trade{}, ErrTradeNotFound
	}
	e := &l.entries[idx]
	switch e.Status {
	case models.TradeStatusFilled:
		l.mu.Unlock()
		return models.Trade{}, ErrAlreadySettled
	case models.TradeStatusRejected:
		l.mu.Unlock()
		return models.Trade{}, ErrNotSettleable
	}
	e.Status = models.TradeStatusFilled
	e.RealizedPnL = &pnl
	e.SettledAt = &at
	snapshot := *e
	l.mu.Unlock()

	if l.Repo != nil {
		if err := l.Repo.MarkTradeSettled(ctx, id, pnl, at); err != nil {
			l.mu.Lock()
			e := &l.entries[idx]
			e.Status = models.TradeStatusAccepted
			e.RealizedPnL = nil
			e.SettledAt = nil
			l.mu.Unlock()
			return models.Trade{}, err
		}
	}
	return snapshot, nil
}

// Get returns the entry for id, if any.
func (l *Ledger) Get(id string) (models.Trade, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	idx, ok := l.byID[id]
	if !ok {
		return models.Trade{}, false
	}
	return l.entries[idx], true
}

// Len reports the number of ledger entries.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Filter narrows a Query. Zero values match everything. From is inclusive,
// To exclusive.
type Filter struct {
	Symbol     string
	StrategyID string
	Status     string
	From       time.Time
	To         time.Time
}

func (f Filter) match(t models.Trade) bool {
	if f.Symbol != "" && t.Symbol != f.Symbol {
		return false
	}
	if f.StrategyID != "" && t.StrategyID != f.StrategyID {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if !f.From.IsZero() && t.Timestamp.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !t.Timestamp.Before(f.To) {
		return false
	}
	return true
}

// Query returns a restartable sequence over a consistent snapshot of the
// ledger in append order. Append order is not settlement order: settlements
// may arrive out of timestamp order relative to each other.
func (l *Ledger) Query(f Filter) iter.Seq[models.Trade] {
	snapshot := l.snapshot()
	return func(yield func(models.Trade) bool) {
		for _, t := range snapshot {
			if !f.match(t) {
				continue
			}
			if !yield(t) {
				return
			}
		}
	}
}

// Recent returns up to limit entries, newest first.
func (l *Ledger) Recent(limit int) []models.Trade {
	snapshot := l.snapshot()
	if limit <= 0 || limit > len(snapshot) {
		limit = len(snapshot)
	}
	out := make([]models.Trade, 0, limit)
	for i := len(snapshot) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, snapshot[i])
	}
	return out
}

func (l *Ledger) snapshot() []models.Trade {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.Trade, len(l.entries))
	copy(out, l.entries)
	return out
}
