package config

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	App          AppConfig          `mapstructure:"app"`
	Server       ServerConfig       `mapstructure:"server"`
	Log          LogConfig          `mapstructure:"log"`
	DB           DBConfig           `mapstructure:"db"`
	Cron         CronConfig         `mapstructure:"cron"`
	Risk         RiskConfig         `mapstructure:"risk"`
	Reservations ReservationsConfig `mapstructure:"reservations"`
	Reporting    ReportingConfig    `mapstructure:"reporting"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gte=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type CronConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	EquitySnapshot string `mapstructure:"equity_snapshot"`
}

// RiskConfig seeds the rule set on first start. After that the admin API
// owns the values and the persisted row wins over these defaults.
type RiskConfig struct {
	MaxRiskPerTrade float64 `mapstructure:"max_risk_per_trade" validate:"gte=0"`
	MaxDailyLoss    float64 `mapstructure:"max_daily_loss" validate:"gte=0"`
	MaxTradesPerDay int     `mapstructure:"max_trades_per_day" validate:"gte=0"`
	CooldownSeconds int     `mapstructure:"cooldown_seconds" validate:"gte=0,lte=86400"`
	Budget          float64 `mapstructure:"budget" validate:"gte=0"`
	StartingCapital float64 `mapstructure:"starting_capital" validate:"gte=0"`
}

type ReservationsConfig struct {
	MaxAge        time.Duration `mapstructure:"max_age" validate:"gt=0"`
	SweepInterval time.Duration `mapstructure:"sweep_interval" validate:"gt=0"`
}

type ReportingConfig struct {
	TradeHistoryLimit int `mapstructure:"trade_history_limit" validate:"gt=0,lte=1000"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SUP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.equity_snapshot", "@every 1h")
	v.SetDefault("risk.max_risk_per_trade", 1000)
	v.SetDefault("risk.max_daily_loss", 5000)
	v.SetDefault("risk.max_trades_per_day", 10)
	v.SetDefault("risk.cooldown_seconds", 300)
	v.SetDefault("risk.budget", 100000)
	v.SetDefault("risk.starting_capital", 100000)
	v.SetDefault("reservations.max_age", "24h")
	v.SetDefault("reservations.sweep_interval", "10m")
	v.SetDefault("reporting.trade_history_limit", 50)

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
