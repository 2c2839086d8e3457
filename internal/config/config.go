package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	clientEnvPrefix = "CLIENT_"
)

type Config struct {
	Env     string `env:"APP_ENV" envDefault:"development"`
	AppPort string `env:"APP_PORT" envDefault:"8080"`
	BaseURL string `env:"SERVER_URL" envDefault:"http://localhost:8080"`

	// ClientOrigins are the frontends allowed to drive the OAuth flow.
	// They are used for provider redirect URIs and CORS.
	ClientOrigins    []string `env:"CLIENT_ORIGINS" envSeparator:","`
	LoginRedirectURL string   `env:"LOGIN_REDIRECT_URL"`

	AccessTokenSecret  string        `env:"ACCESS_TOKEN_SECRET_KEY"`
	RefreshTokenSecret string        `env:"REFRESH_TOKEN_SECRET_KEY"`
	AccessTokenTTL     time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"1h"`
	RefreshTokenTTL    time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"720h"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleIssuer       string `env:"GOOGLE_ISSUER" envDefault:"https://accounts.google.com"`

	GitHubClientID     string `env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string `env:"GITHUB_CLIENT_SECRET"`

	ProviderTimeout time.Duration `env:"PROVIDER_HTTP_TIMEOUT" envDefault:"15s"`

	DatabaseDriver string `env:"DATABASE_DRIVER" envDefault:"postgres"`
	DatabaseDSN    string `env:"DATABASE_DSN"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	CallbackRateLimit  int           `env:"CALLBACK_RATE_LIMIT" envDefault:"10"`
	CallbackRateWindow time.Duration `env:"CALLBACK_RATE_WINDOW" envDefault:"1m"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.ClientOrigins = collectClientOrigins(cfg.ClientOrigins, os.Environ())

	if cfg.LoginRedirectURL == "" && len(cfg.ClientOrigins) > 0 {
		cfg.LoginRedirectURL = cfg.ClientOrigins[0] + "/auth/login"
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c Config) Validate() error {
	var errs []error

	if c.AccessTokenSecret == "" {
		errs = append(errs, errors.New("ACCESS_TOKEN_SECRET_KEY is required"))
	}
	if c.RefreshTokenSecret == "" {
		errs = append(errs, errors.New("REFRESH_TOKEN_SECRET_KEY is required"))
	}
	if c.AccessTokenSecret != "" && c.AccessTokenSecret == c.RefreshTokenSecret {
		errs = append(errs, errors.New("access and refresh token secrets must differ"))
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("token ttls must be positive"))
	}

	switch c.DatabaseDriver {
	case DriverPostgres, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver))
	}
	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("DATABASE_DSN is required"))
	}

	if !isValidOrigin(c.BaseURL) {
		errs = append(errs, fmt.Errorf("SERVER_URL %q is not a valid url", c.BaseURL))
	}

	return errors.Join(errs...)
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

func (c Config) GitHubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

func (c Config) RateLimitEnabled() bool {
	return c.RedisAddr != "" && c.CallbackRateLimit > 0
}

// collectClientOrigins merges the CLIENT_ORIGINS list with legacy CLIENT_*
// variables (CLIENT_1, CLIENT_WEB, ...). Invalid urls are dropped and
// trailing slashes trimmed. Order: CLIENT_ORIGINS first, then CLIENT_* by name.
func collectClientOrigins(listed []string, environ []string) []string {
	candidates := append([]string(nil), listed...)

	var named []string
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "CLIENT_ORIGINS" || !strings.HasPrefix(key, clientEnvPrefix) {
			continue
		}
		named = append(named, key+"="+value)
	}
	sort.Strings(named)
	for _, kv := range named {
		_, value, _ := strings.Cut(kv, "=")
		candidates = append(candidates, value)
	}

	seen := make(map[string]bool, len(candidates))
	origins := make([]string, 0, len(candidates))
	for _, c := range candidates {
		c = strings.TrimRight(strings.TrimSpace(c), "/")
		if c == "" || seen[c] || !isValidOrigin(c) {
			continue
		}
		seen[c] = true
		origins = append(origins, c)
	}
	return origins
}

func isValidOrigin(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
