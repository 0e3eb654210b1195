package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultAltcurrency          = "BAT"
	DefaultTickerURL            = "https://api.coinmarketcap.com/v1/ticker/"
	DefaultStreamURL            = "wss://socket.bittrex.com/signalr"
	DefaultStreamReconnectDelay = 15 * time.Second
	DefaultProviderRestURL      = "https://apiv2.bitcoinaverage.com"
	DefaultProviderWSURL        = "wss://apiv2.bitcoinaverage.com/websocket/ticker"
	DefaultRequestTimeout       = 30 * time.Second
	DefaultMaxRetries           = 3
	DefaultCacheTTL             = 60 * time.Second
	DefaultMaintenanceInterval  = 5 * time.Minute
	DefaultWarningWindow        = 15 * time.Minute
	DefaultInformWindow         = 1 * time.Minute
	DefaultDBPort               = 5432
	DefaultDBSSLMode            = "prefer"
	DefaultMaxConns             = 10
	DefaultMinConns             = 2
	DefaultBatchSize            = 500
	DefaultFlushInterval        = 5 * time.Second
	DefaultBufferSize           = 1000
	DefaultMetricsPort          = 9090
	DefaultMetricsPath          = "/metrics"
	DefaultLogLevel             = "info"
	DefaultLogFormat            = "text"
)

func (c *ServiceConfig) applyDefaults() {
	// Currency defaults
	if c.Currency.Altcurrency == "" {
		c.Currency.Altcurrency = DefaultAltcurrency
	}

	// Feed defaults
	if c.Feeds.TickerURL == "" {
		c.Feeds.TickerURL = DefaultTickerURL
	}
	if c.Feeds.StreamURL == "" {
		c.Feeds.StreamURL = DefaultStreamURL
	}
	if c.Feeds.StreamReconnectDelay == 0 {
		c.Feeds.StreamReconnectDelay = DefaultStreamReconnectDelay
	}
	if c.Feeds.ProviderRestURL == "" {
		c.Feeds.ProviderRestURL = DefaultProviderRestURL
	}
	if c.Feeds.ProviderWSURL == "" {
		c.Feeds.ProviderWSURL = DefaultProviderWSURL
	}
	if c.Feeds.RequestTimeout == 0 {
		c.Feeds.RequestTimeout = DefaultRequestTimeout
	}
	if c.Feeds.MaxRetries == 0 {
		c.Feeds.MaxRetries = DefaultMaxRetries
	}

	if c.Cache.TTL == 0 {
		c.Cache.TTL = DefaultCacheTTL
	}
	if c.Maintenance.Interval == 0 {
		c.Maintenance.Interval = DefaultMaintenanceInterval
	}

	// Reporting defaults
	if c.Reporting.WarningWindow == 0 {
		c.Reporting.WarningWindow = DefaultWarningWindow
	}
	if c.Reporting.InformWindow == 0 {
		c.Reporting.InformWindow = DefaultInformWindow
	}

	// History defaults
	applyDBDefaults(&c.History.Database)
	if c.History.BatchSize == 0 {
		c.History.BatchSize = DefaultBatchSize
	}
	if c.History.FlushInterval == 0 {
		c.History.FlushInterval = DefaultFlushInterval
	}
	if c.History.BufferSize == 0 {
		c.History.BufferSize = DefaultBufferSize
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}

	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
