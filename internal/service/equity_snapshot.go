package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"supervisor/internal/analytics"
	"supervisor/internal/models"
	"supervisor/internal/repository"
)

// EquitySnapshotService persists a periodic snapshot of the aggregator's
// headline figures so the equity history survives restarts.
type EquitySnapshotService struct {
	Repo   repository.Repository
	Agg    *analytics.Aggregator
	Logger *zap.Logger
	Flags  *SystemSettingsService
}

func (s *EquitySnapshotService) RunOnce(ctx context.Context) error {
	if s == nil || s.Repo == nil || s.Agg == nil {
		return nil
	}
	if s.Flags != nil && !s.Flags.IsEnabled(ctx, FeatureEquitySnapshot, true) {
		return nil
	}
	stats := s.Agg.Stats()
	now := time.Now().UTC().Truncate(time.Minute)
	item := &models.EquitySnapshot{
		SnapshotAt:      now,
		Equity:          stats.Equity,
		RealizedPnL:     stats.RealizedPnL,
		UnrealizedPnL:   stats.UnrealizedPnL,
		MaxDrawdown:     stats.MaxDrawdown,
		CurrentDrawdown: stats.CurrentDrawdown,
		SettledTrades:   stats.Trades,
	}
	if err := s.Repo.InsertEquitySnapshot(ctx, item); err != nil {
		return err
	}
	if s.Logger != nil {
		s.Logger.Debug("equity snapshot persisted",
			zap.Time("snapshot_at", now),
			zap.String("equity", stats.Equity.String()),
		)
	}
	return nil
}

// ReservationReaperService expires budget reservations whose settlement
// never arrived.
type ReservationReaperService struct {
	Controller interface {
		ExpireReservations(maxAge time.Duration) int
	}
	MaxAge time.Duration
	Logger *zap.Logger
	Flags  *SystemSettingsService
}

func (s *ReservationReaperService) RunOnce(ctx context.Context) error {
	if s == nil || s.Controller == nil {
		return nil
	}
	if s.Flags != nil && !s.Flags.IsEnabled(ctx, FeatureReservationReaper, true) {
		return nil
	}
	maxAge := s.MaxAge
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	if n := s.Controller.ExpireReservations(maxAge); n > 0 && s.Logger != nil {
		s.Logger.Info("released orphaned reservations", zap.Int("count", n))
	}
	return nil
}
