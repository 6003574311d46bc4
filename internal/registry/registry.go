// Package registry tracks the tradable symbol universe. Unknown symbols are
// treated as disabled: admission fails closed.
package registry

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"supervisor/internal/models"
)

var (
	ErrDuplicateSymbol = errors.New("symbol already exists")
	ErrSymbolNotFound  = errors.New("symbol not found")
	ErrEmptyTicker     = errors.New("symbol is required")
)

// SymbolStore is the persistence surface the registry needs.
type SymbolStore interface {
	InsertSymbol(ctx context.Context, item *models.Symbol) error
	DeleteSymbolByTicker(ctx context.Context, ticker string) error
	UpdateSymbolEnabled(ctx context.Context, ticker string, enabled bool) error
	ListSymbols(ctx context.Context) ([]models.Symbol, error)
}

type Registry struct {
	Repo   SymbolStore
	Logger *zap.Logger

	mu      sync.RWMutex
	enabled map[string]bool
}

func New(repo SymbolStore, logger *zap.Logger) *Registry {
	return &Registry{
		Repo:    repo,
		Logger:  logger,
		enabled: map[string]bool{},
	}
}

// Load replaces the in-memory view with the persisted symbol set.
func (r *Registry) Load(ctx context.Context) error {
	if r.Repo == nil {
		return nil
	}
	items, err := r.Repo.ListSymbols(ctx)
	if err != nil {
		return err
	}
	next := make(map[string]bool, len(items))
	for _, s := range items {
		next[s.Ticker] = s.Enabled
	}
	r.mu.Lock()
	r.enabled = next
	r.mu.Unlock()
	return nil
}

// Normalize maps raw admin input to the canonical ticker form.
func Normalize(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

func (r *Registry) Add(ctx context.Context, ticker string) (models.Symbol, error) {
	t := Normalize(ticker)
	if t == "" {
		return models.Symbol{}, ErrEmptyTicker
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.enabled[t]; ok {
		return models.Symbol{}, ErrDuplicateSymbol
	}
	item := models.Symbol{Ticker: t, Enabled: true}
	if r.Repo != nil {
		if err := r.Repo.InsertSymbol(ctx, &item); err != nil {
			return models.Symbol{}, err
		}
	}
	r.enabled[t] = true
	if r.Logger != nil {
		r.Logger.Info("symbol added", zap.String("ticker", t))
	}
	return item, nil
}

func (r *Registry) Remove(ctx context.Context, ticker string) error {
	t := Normalize(ticker)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.enabled[t]; !ok {
		return ErrSymbolNotFound
	}
	if r.Repo != nil {
		if err := r.Repo.DeleteSymbolByTicker(ctx, t); err != nil {
			return err
		}
	}
	delete(r.enabled, t)
	if r.Logger != nil {
		r.Logger.Info("symbol removed", zap.String("ticker", t))
	}
	return nil
}

// SetEnabled toggles a symbol. The change applies to the next admission
// check; in-flight evaluations that already read the old value keep it.
func (r *Registry) SetEnabled(ctx context.Context, ticker string, enabled bool) error {
	t := Normalize(ticker)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.enabled[t]; !ok {
		return ErrSymbolNotFound
	}
	if r.Repo != nil {
		if err := r.Repo.UpdateSymbolEnabled(ctx, t, enabled); err != nil {
			return err
		}
	}
	r.enabled[t] = enabled
	if r.Logger != nil {
		r.Logger.Info("symbol toggled", zap.String("ticker", t), zap.Bool("enabled", enabled))
	}
	return nil
}

// IsEnabled returns false for unknown symbols.
func (r *Registry) IsEnabled(ticker string) bool {
	t := Normalize(ticker)
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enabled[t]
}

// List returns the registry contents sorted by ticker.
func (r *Registry) List() []models.Symbol {
	r.mu.RLock()
	out := make([]models.Symbol, 0, len(r.enabled))
	for t, e := range r.enabled {
		out = append(out, models.Symbol{Ticker: t, Enabled: e})
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out
}
