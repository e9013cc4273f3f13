package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/velmie/fulfill"
	"github.com/velmie/fulfill/httpapi"
	"github.com/velmie/fulfill/market"
)

const envPrefix = "FULFILL"

var errDSNRequired = errors.New("mysql dsn is required (--mysql-dsn or FULFILL_MYSQL_DSN)")

// Config is the daemon configuration assembled from flags, env and config file.
type Config struct {
	Store     string          `mapstructure:"store"`
	MySQL     MySQLConfig     `mapstructure:"mysql"`
	Log       LogConfig       `mapstructure:"log"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Market    MarketConfig    `mapstructure:"market"`
	Chat      ChatConfig      `mapstructure:"chat"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Acquire   AcquireConfig   `mapstructure:"acquire"`
}

// MySQLConfig locates the durable store.
type MySQLConfig struct {
	DSN         string `mapstructure:"dsn"`
	TablePrefix string `mapstructure:"table_prefix"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// HTTPConfig configures the inbound webhook server.
type HTTPConfig struct {
	Addr      string  `mapstructure:"addr"`
	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`
}

// MarketConfig configures the marketplace client.
type MarketConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Token     string        `mapstructure:"token"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"`
	RateBurst int           `mapstructure:"rate_burst"`
}

// ChatConfig configures the chat gateway client.
type ChatConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// SchedulerConfig sizes the dispatch queue and its executor pool.
type SchedulerConfig struct {
	MaxActive    int           `mapstructure:"max_active"`
	PoolSize     int           `mapstructure:"pool_size"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	DrainTimeout time.Duration `mapstructure:"drain_timeout"`
}

// AcquireConfig sets marketplace pacing and login-code retries.
type AcquireConfig struct {
	PaceDelay      time.Duration `mapstructure:"pace_delay"`
	CodeAttempts   int           `mapstructure:"code_attempts"`
	CodeRetryDelay time.Duration `mapstructure:"code_retry_delay"`
}

func setDefaults(v *viper.Viper) {
	acquire := fulfill.DefaultAcquirerConfig()

	v.SetDefault("store", "mysql")
	v.SetDefault("mysql.dsn", "")
	v.SetDefault("mysql.table_prefix", "fulfill_")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.rate_limit", httpapi.DefaultRateLimit)
	v.SetDefault("http.rate_burst", httpapi.DefaultRateBurst)
	v.SetDefault("market.base_url", market.DefaultBaseURL)
	v.SetDefault("market.token", "")
	v.SetDefault("market.timeout", market.DefaultTimeout)
	v.SetDefault("market.rate_limit", market.DefaultRequestsPerSecond)
	v.SetDefault("market.rate_burst", market.DefaultBurst)
	v.SetDefault("chat.base_url", "")
	v.SetDefault("chat.token", "")
	v.SetDefault("chat.timeout", 10*time.Second)
	v.SetDefault("scheduler.max_active", fulfill.DefaultMaxActive)
	v.SetDefault("scheduler.pool_size", fulfill.DefaultPoolSize)
	v.SetDefault("scheduler.poll_interval", fulfill.DefaultPollInterval)
	v.SetDefault("scheduler.drain_timeout", fulfill.DefaultDrainTimeout)
	v.SetDefault("acquire.pace_delay", acquire.PaceDelay)
	v.SetDefault("acquire.code_attempts", acquire.CodeAttempts)
	v.SetDefault("acquire.code_retry_delay", acquire.CodeRetryDelay)
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if flag := flags.Lookup(name); flag != nil {
			_ = v.BindPFlag(key, flag)
		}
	}
}

func initConfig(v *viper.Viper, cmd *cobra.Command) error {
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	path, err := cmd.Flags().GetString("config")
	if err != nil || path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	return nil
}

func loadConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Store = strings.ToLower(strings.TrimSpace(cfg.Store))

	return cfg, nil
}
