package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"supervisor/internal/admission"
	"supervisor/internal/analytics"
	"supervisor/internal/config"
	cronrunner "supervisor/internal/cron"
	"supervisor/internal/db"
	"supervisor/internal/handler"
	"supervisor/internal/ledger"
	"supervisor/internal/logger"
	"supervisor/internal/registry"
	gormrepository "supervisor/internal/repository/gorm"
	"supervisor/internal/rules"
	"supervisor/internal/service"
	"supervisor/internal/tradingday"
)

func main() {
	cfgPath := os.Getenv("SUP_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("SUP_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)
	settingsSvc := &service.SystemSettingsService{Repo: store}
	if err := settingsSvc.EnsureDefaultSwitches(context.Background()); err != nil {
		logger.Warn("init default system switches failed", zap.Error(err))
	}

	bootCtx := context.Background()
	ruleStore, err := rules.NewStore(bootCtx, store, logger, rules.RuleSet{
		MaxRiskPerTrade: decimal.NewFromFloat(cfg.Risk.MaxRiskPerTrade),
		MaxDailyLoss:    decimal.NewFromFloat(cfg.Risk.MaxDailyLoss),
		MaxTradesPerDay: cfg.Risk.MaxTradesPerDay,
		CooldownSeconds: cfg.Risk.CooldownSeconds,
		Budget:          decimal.NewFromFloat(cfg.Risk.Budget),
	})
	if err != nil {
		logger.Fatal("risk rules init failed", zap.Error(err))
	}

	reg := registry.New(store, logger)
	if err := reg.Load(bootCtx); err != nil {
		logger.Fatal("symbol registry load failed", zap.Error(err))
	}

	led := ledger.New(store, logger)
	if err := led.Load(bootCtx); err != nil {
		logger.Fatal("ledger load failed", zap.Error(err))
	}

	agg := analytics.New(decimal.NewFromFloat(cfg.Risk.StartingCapital), logger)
	agg.Recompute(led)

	controller := admission.NewController(ruleStore, reg, led, agg, tradingday.SystemClock{}, logger)
	controller.Restore(time.Now().UTC())
	logger.Info("admission controller restored",
		zap.Int("ledger_entries", led.Len()),
		zap.Int("open_reservations", controller.Snapshot().OpenReservations),
	)

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(engine)
	symbolHandler := &handler.SymbolHandler{Registry: reg}
	symbolHandler.Register(engine)
	rulesHandler := &handler.RulesHandler{Rules: ruleStore}
	rulesHandler.Register(engine)
	tradeHandler := &handler.TradeHandler{Controller: controller}
	tradeHandler.Register(engine)
	dashboardHandler := &handler.DashboardHandler{
		Agg:        agg,
		Controller: controller,
		Ledger:     led,
		Repo:       store,
		TradeLimit: cfg.Reporting.TradeHistoryLimit,
	}
	dashboardHandler.Register(engine)
	switchesHandler := &handler.SwitchesHandler{Settings: settingsSvc}
	switchesHandler.Register(engine)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reaperSvc := &service.ReservationReaperService{
		Controller: controller,
		MaxAge:     cfg.Reservations.MaxAge,
		Logger:     logger,
		Flags:      settingsSvc,
	}
	snapshotSvc := &service.EquitySnapshotService{
		Repo:   store,
		Agg:    agg,
		Logger: logger,
		Flags:  settingsSvc,
	}

	if cfg.Cron.Enabled {
		cronRunner := cronrunner.New(logger, ctx)
		if _, err := cronRunner.Add("@every "+cfg.Reservations.SweepInterval.String(), func(ctx context.Context) {
			if err := reaperSvc.RunOnce(ctx); err != nil {
				logger.Warn("reservation sweep failed", zap.Error(err))
			}
		}); err != nil {
			logger.Warn("cron register reservation sweep failed", zap.Error(err))
		}
		if _, err := cronRunner.Add(cfg.Cron.EquitySnapshot, func(ctx context.Context) {
			if err := snapshotSvc.RunOnce(ctx); err != nil {
				logger.Warn("equity snapshot failed", zap.Error(err))
			}
		}); err != nil {
			logger.Warn("cron register equity snapshot failed", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	errCh := make(chan error, 2)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
