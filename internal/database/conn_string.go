package database

import (
	"net"
	"net/url"
	"strconv"

	"github.com/rickgao/altrates/internal/config"
	"github.com/rickgao/altrates/internal/version"
)

// BuildConnString builds a PostgreSQL connection URL from config. The
// password is escaped and the service name is sent as application_name.
func BuildConnString(cfg config.DBConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = config.DefaultDBSSLMode
	}

	q := url.Values{}
	q.Set("sslmode", sslMode)
	q.Set("application_name", version.Name)

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     "/" + cfg.Name,
		RawQuery: q.Encode(),
	}
	return u.String()
}
