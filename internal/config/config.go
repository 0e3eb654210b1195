package config

import (
	"time"

	"github.com/rickgao/altrates/internal/model"
)

// ServiceConfig is the root configuration for a rate service instance.
type ServiceConfig struct {
	Instance    InstanceConfig    `yaml:"instance"`
	Currency    CurrencyConfig    `yaml:"currency"`
	Feeds       FeedsConfig       `yaml:"feeds"`
	Cache       CacheConfig       `yaml:"cache"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
	Reporting   ReportingConfig   `yaml:"reporting"`
	History     HistoryConfig     `yaml:"history"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// InstanceConfig identifies this instance.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// CurrencyConfig selects the currency universe.
type CurrencyConfig struct {
	Altcoins       []string             `yaml:"altcoins"`
	Altcurrency    string               `yaml:"altcurrency"`
	Static         bool                 `yaml:"static"` // No feeds; conversions only
	BitcoinAverage BitcoinAverageConfig `yaml:"bitcoin_average"`
}

// BitcoinAverageConfig holds the BTC provider credentials.
type BitcoinAverageConfig struct {
	PublicKey string `yaml:"public_key"`
	SecretKey string `yaml:"secret_key"`
}

// FeedsConfig holds upstream endpoints.
type FeedsConfig struct {
	TickerURL            string        `yaml:"ticker_url"`        // Baseline aggregator
	StreamURL            string        `yaml:"stream_url"`        // Market summary stream
	StreamReconnectDelay time.Duration `yaml:"stream_reconnect_delay"`
	ReconnectOnReject    bool          `yaml:"reconnect_on_reject"` // Drop the stream when a candidate is rejected
	ProviderRestURL      string        `yaml:"provider_rest_url"`
	ProviderWSURL        string        `yaml:"provider_ws_url"`
	RequestTimeout       time.Duration `yaml:"request_timeout"`
	MaxRetries           int           `yaml:"max_retries"`
}

// CacheConfig holds rate cache settings.
type CacheConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// MaintenanceConfig holds scheduler settings.
type MaintenanceConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// ReportingConfig holds error and change log spacing.
type ReportingConfig struct {
	WarningWindow time.Duration `yaml:"warning_window"`
	InformWindow  time.Duration `yaml:"inform_window"`
}

// HistoryConfig holds optional rate history persistence settings.
type HistoryConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Database      DBConfig      `yaml:"database"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}

// LoggingConfig holds log handler settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Currencies resolves the configured currency universe.
func (c *ServiceConfig) Currencies() model.Currencies {
	return model.NewCurrencies(c.Currency.Altcoins, c.Currency.Altcurrency)
}
