// Package config loads the server configuration from environment variables.
package config

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	AppName     string `env:"APP_NAME,     default=Billboard Server"`
	ListenAddr  string `env:"LISTEN_ADDR,  default=:4444"`
	MetricsAddr string `env:"METRICS_ADDR, default=:9090"`
	DBPath      string `env:"DB_PATH,      default=./data/billboard.db"`
	LogLevel    string `env:"LOG_LEVEL,    default=info"`
	LogPretty   bool   `env:"LOG_PRETTY,   default=false"`

	// SessionTTL is the fixed session period; tokens expire this long
	// after login unless revoked first.
	SessionTTL time.Duration `env:"SESSION_TTL, default=24h"`

	// ViewerToken is the credential display clients present to fetch the
	// schedule list without logging in.
	ViewerToken string `env:"VIEWER_TOKEN, default=viewer"`

	// Seed administrator, created only when the user table is empty.
	// AdminPasswordHash is the client-side hash of the admin password (32
	// hex chars), the same value a control panel would send at login.
	AdminUsername     string `env:"ADMIN_USERNAME,      default=admin"`
	AdminPasswordHash string `env:"ADMIN_PASSWORD_HASH, default=21232F297A57A5A743894A0E4A801FC3"`
}

// Load reads configuration from the environment.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, errors.Wrap(err, "[config.Load] envconfig.Process")
	}
	return &cfg, nil
}
