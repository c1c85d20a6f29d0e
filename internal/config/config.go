// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token    string  `yaml:"token"`
	Username string  `yaml:"username"`
	AdminIDs []int64 `yaml:"admin_ids"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type PaymentConfig struct {
	Cryptomus struct {
		MerchantUUID string `yaml:"merchant_uuid"`
		PaymentKey   string `yaml:"payment_key"`
		BaseURL      string `yaml:"base_url"`
	} `yaml:"cryptomus"`
}

type RatesConfig struct {
	FiatURL       string        `yaml:"fiat_url"`
	FiatToken     string        `yaml:"fiat_token"`
	CryptoURL     string        `yaml:"crypto_url"`
	FiatInterval  time.Duration `yaml:"fiat_interval"`
	CryptoInterval time.Duration `yaml:"crypto_interval"`
}

// WorkerConfig holds the fixed tick intervals of the reconciliation loops.
// Failures are retried at the next tick; there is no backoff.
type WorkerConfig struct {
	ProvisionInterval    time.Duration `yaml:"provision_interval"`
	DeprovisionInterval  time.Duration `yaml:"deprovision_interval"`
	DeletePacing         time.Duration `yaml:"delete_pacing"` // delay between deletes on one server
	MeteringInterval     time.Duration `yaml:"metering_interval"`
	ExpiryScanInterval   time.Duration `yaml:"expiry_scan_interval"`
	InvoiceInterval      time.Duration `yaml:"invoice_interval"`
	NotificationInterval time.Duration `yaml:"notification_interval"`
	QueueBatch           int           `yaml:"queue_batch"` // max jobs drained per tick
}

type WebConfig struct {
	Port      int    `yaml:"port"`
	LinkSecret string `yaml:"link_secret"` // signs subscription config-link tokens
	Domain    string `yaml:"domain"`       // public base for config links
}

type TestSubscriptionConfig struct {
	TrafficGB float64       `yaml:"traffic_gb"`
	Duration  time.Duration `yaml:"duration"`
}

type PricingConfig struct {
	PerGBUSD float64 `yaml:"per_gb_usd"` // base price before product multiplier
}

type Config struct {
	Bot      BotConfig              `yaml:"bot"`
	Log      LogConfig              `yaml:"log"`
	Database DatabaseConfig         `yaml:"database"`
	Redis    RedisConfig            `yaml:"redis"`
	Payment  PaymentConfig          `yaml:"payment"`
	Rates    RatesConfig            `yaml:"rates"`
	Workers  WorkerConfig           `yaml:"workers"`
	Web      WebConfig              `yaml:"web"`
	Test     TestSubscriptionConfig `yaml:"test_subscription"`
	Pricing  PricingConfig          `yaml:"pricing"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()

	// Minimal validation
	if cfg.Bot.Token == "" {
		return nil, errors.New("bot.token is required")
	}
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Payment.Cryptomus.MerchantUUID == "" || cfg.Payment.Cryptomus.PaymentKey == "" {
		return nil, errors.New("payment.cryptomus merchant_uuid and payment_key are required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Payment.Cryptomus.BaseURL == "" {
		cfg.Payment.Cryptomus.BaseURL = "https://api.cryptomus.com/v1"
	}
	if cfg.Rates.CryptoURL == "" {
		cfg.Rates.CryptoURL = "https://api.cryptomus.com/v1/exchange-rate/USD/list"
	}
	if cfg.Rates.FiatInterval <= 0 {
		cfg.Rates.FiatInterval = time.Hour
	}
	if cfg.Rates.CryptoInterval <= 0 {
		cfg.Rates.CryptoInterval = time.Minute
	}

	w := &cfg.Workers
	if w.ProvisionInterval <= 0 {
		w.ProvisionInterval = time.Second
	}
	if w.DeprovisionInterval <= 0 {
		w.DeprovisionInterval = time.Second
	}
	if w.DeletePacing <= 0 {
		w.DeletePacing = 200 * time.Millisecond
	}
	if w.MeteringInterval <= 0 {
		w.MeteringInterval = 15 * time.Second
	}
	if w.ExpiryScanInterval <= 0 {
		w.ExpiryScanInterval = time.Minute
	}
	if w.InvoiceInterval <= 0 {
		w.InvoiceInterval = 30 * time.Second
	}
	if w.NotificationInterval <= 0 {
		w.NotificationInterval = 2 * time.Second
	}
	if w.QueueBatch <= 0 {
		w.QueueBatch = 500
	}

	if cfg.Test.TrafficGB <= 0 {
		cfg.Test.TrafficGB = 1
	}
	if cfg.Test.Duration <= 0 {
		cfg.Test.Duration = 24 * time.Hour
	}
	if cfg.Web.Port == 0 {
		cfg.Web.Port = 8080
	}
	if cfg.Pricing.PerGBUSD <= 0 {
		cfg.Pricing.PerGBUSD = 0.5
	}
}
