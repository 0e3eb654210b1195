package config

import (
	"errors"
	"fmt"

	"github.com/rickgao/altrates/internal/model"
)

// Validate checks that all required fields are set and values are valid.
func (c *ServiceConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	cs := c.Currencies()
	if len(cs.Altcoins()) == 0 {
		return errors.New("currency.altcoins must name at least one altcoin")
	}
	for _, alt := range cs.Altcoins() {
		if _, ok := model.Decimals[alt]; !ok {
			return fmt.Errorf("currency.altcoins: unsupported altcoin %s", alt)
		}
	}

	if cs.IsAlt(model.BTC) && !c.Currency.Static {
		if c.Currency.BitcoinAverage.PublicKey == "" {
			return errors.New("currency.bitcoin_average.public_key is required when BTC is configured")
		}
		if c.Currency.BitcoinAverage.SecretKey == "" {
			return errors.New("currency.bitcoin_average.secret_key is required when BTC is configured")
		}
	}

	if c.Feeds.StreamReconnectDelay < 0 {
		return errors.New("feeds.stream_reconnect_delay must be >= 0")
	}
	if c.Feeds.MaxRetries < 0 {
		return errors.New("feeds.max_retries must be >= 0")
	}
	if c.Cache.TTL < 0 {
		return errors.New("cache.ttl must be >= 0")
	}
	if c.Maintenance.Interval <= 0 {
		return errors.New("maintenance.interval must be > 0")
	}

	if c.History.Enabled {
		if err := c.History.Database.validate("history.database"); err != nil {
			return err
		}
		if c.History.BatchSize < 1 {
			return errors.New("history.batch_size must be >= 1")
		}
		if c.History.BufferSize < 1 {
			return errors.New("history.buffer_size must be >= 1")
		}
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
