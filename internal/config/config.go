// Package config resolves tally settings from .env files and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/julianstephens/tally/internal/auth"
	"github.com/julianstephens/tally/internal/constants"
)

// Environment variables read by Load.
const (
	EnvBackend            = "TALLY_BACKEND"
	EnvConfigDir          = "TALLY_CONFIG_DIR"
	EnvDebug              = "TALLY_DEBUG"
	EnvAddr               = "TALLY_ADDR"
	EnvGoogleClientID     = "TALLY_GOOGLE_CLIENT_ID"
	EnvGoogleClientSecret = "TALLY_GOOGLE_CLIENT_SECRET"
	EnvGoogleRedirectURL  = "TALLY_GOOGLE_REDIRECT_URL"
	EnvSessionTTL         = "TALLY_SESSION_TTL"
)

// BackendKind says how Backend is reached.
type BackendKind string

const (
	BackendSQLite   BackendKind = "sqlite"
	BackendPostgres BackendKind = "postgres"
	BackendRemote   BackendKind = "remote"
)

// KeyringBackend selects PostgreSQL with the connection string stored in
// the OS keyring.
const KeyringBackend = "postgres"

type Config struct {
	// Backend is a SQLite path, a PostgreSQL connection string, the word
	// "postgres", or the http(s) URL of a tally server. Empty means the
	// default SQLite database in ConfigDir.
	Backend    string
	ConfigDir  string
	Debug      bool
	Addr       string
	Google     auth.OAuthConfig
	SessionTTL time.Duration
}

// Load reads <configDir>/.env and ./.env without overriding variables
// that are already set, then builds a Config. configDir may be empty to
// use TALLY_CONFIG_DIR or the default.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = getEnv(EnvConfigDir, constants.DefaultConfigDir)
	}
	dir, err := ExpandHome(configDir)
	if err != nil {
		return nil, err
	}

	for _, path := range []string{filepath.Join(dir, ".env"), ".env"} {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	cfg := &Config{
		Backend:   getEnv(EnvBackend, ""),
		ConfigDir: dir,
		Debug:     getEnvAsBool(EnvDebug, false),
		Addr:      getEnv(EnvAddr, constants.DefaultServerAddr),
		Google: auth.OAuthConfig{
			ClientID:     getEnv(EnvGoogleClientID, ""),
			ClientSecret: getEnv(EnvGoogleClientSecret, ""),
			RedirectURL:  getEnv(EnvGoogleRedirectURL, ""),
		},
		SessionTTL: DefaultSessionTTL(),
	}

	if v := os.Getenv(EnvSessionTTL); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", EnvSessionTTL, v, err)
		}
		cfg.SessionTTL = ttl
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.SessionTTL < time.Minute {
		return fmt.Errorf("%s must be at least 1m, got %s", EnvSessionTTL, c.SessionTTL)
	}
	if c.Addr == "" {
		return fmt.Errorf("%s is required", EnvAddr)
	}
	return nil
}

// Kind classifies Backend.
func (c *Config) Kind() BackendKind {
	b := strings.TrimSpace(c.Backend)
	switch {
	case strings.HasPrefix(b, "http://"), strings.HasPrefix(b, "https://"):
		return BackendRemote
	case b == KeyringBackend,
		strings.HasPrefix(b, "postgres://"), strings.HasPrefix(b, "postgresql://"):
		return BackendPostgres
	default:
		return BackendSQLite
	}
}

// DefaultSessionTTL is the access token lifetime when none is configured.
func DefaultSessionTTL() time.Duration {
	return constants.DefaultSessionTTLMin * time.Minute
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
