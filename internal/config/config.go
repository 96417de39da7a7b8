// Package config loads application configuration from config.yaml and
// PROSPECT_* environment variables.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Places  PlacesConfig  `yaml:"places" mapstructure:"places"`
	Scrape  ScrapeConfig  `yaml:"scrape" mapstructure:"scrape"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Export  ExportConfig  `yaml:"export" mapstructure:"export"`
	Webhook WebhookConfig `yaml:"webhook" mapstructure:"webhook"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// PlacesConfig holds the directory API credential.
type PlacesConfig struct {
	APIKey string `yaml:"api_key" mapstructure:"api_key"`
}

// ScrapeConfig tunes the rendering sources and the extraction engine.
type ScrapeConfig struct {
	DelayMS   int    `yaml:"delay_ms" mapstructure:"delay_ms"`
	Retries   int    `yaml:"retries" mapstructure:"retries"`
	Enrich    bool   `yaml:"enrich" mapstructure:"enrich"`
	Headless  bool   `yaml:"headless" mapstructure:"headless"`
	Proxy     string `yaml:"proxy" mapstructure:"proxy"`
	Region    string `yaml:"region" mapstructure:"region"`
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`
}

// Delay returns the inter-request pacing as a duration.
func (c ScrapeConfig) Delay() time.Duration {
	return time.Duration(c.DelayMS) * time.Millisecond
}

// StoreConfig configures the local lead database.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ExportConfig configures CSV output.
type ExportConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// WebhookConfig configures streaming delivery of yielded prospects.
type WebhookConfig struct {
	URL string `yaml:"url" mapstructure:"url"`
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
	v.SetEnvPrefix("PROSPECT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Empty ones still matter: viper only binds PROSPECT_* env
	// vars for keys it knows about.
	v.SetDefault("places.api_key", "")
	v.SetDefault("webhook.url", "")
	v.SetDefault("scrape.proxy", "")
	v.SetDefault("scrape.delay_ms", 1500)
	v.SetDefault("scrape.retries", 2)
	v.SetDefault("scrape.enrich", true)
	v.SetDefault("scrape.headless", true)
	v.SetDefault("scrape.region", "US")
	v.SetDefault("scrape.user_agent", "prospect-cli")
	v.SetDefault("store.path", "leads.db")
	v.SetDefault("export.path", "leads.csv")
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
