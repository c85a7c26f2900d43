package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Prospect ProspectConfig `yaml:"prospect" mapstructure:"prospect"`
	Webhook  WebhookConfig  `yaml:"webhook" mapstructure:"webhook"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Reset    ResetConfig    `yaml:"reset" mapstructure:"reset"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the document store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// ProspectConfig holds Prospect API settings.
type ProspectConfig struct {
	Key            string  `yaml:"key" mapstructure:"key"`
	BaseURL        string  `yaml:"base_url" mapstructure:"base_url"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	Burst          int     `yaml:"burst" mapstructure:"burst"`
}

// WebhookConfig configures provider callbacks. An empty secret accepts
// all deliveries.
type WebhookConfig struct {
	Secret      string `yaml:"secret" mapstructure:"secret"`
	CallbackURL string `yaml:"callback_url" mapstructure:"callback_url"`
}

// ServerConfig configures the webhook server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// ResetConfig configures batched factory resets.
type ResetConfig struct {
	BatchSize     int `yaml:"batch_size" mapstructure:"batch_size"`
	SettleDelayMS int `yaml:"settle_delay_ms" mapstructure:"settle_delay_ms"`
	MaxPasses     int `yaml:"max_passes" mapstructure:"max_passes"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "leadscout.db")
	v.SetDefault("prospect.base_url", "https://api.prospect.dev/v1")
	v.SetDefault("prospect.requests_per_sec", 10)
	v.SetDefault("prospect.burst", 20)
	v.SetDefault("server.port", 8080)
	v.SetDefault("reset.batch_size", 100)
	v.SetDefault("reset.settle_delay_ms", 500)
	v.SetDefault("reset.max_passes", 20)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
