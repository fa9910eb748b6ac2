// Package config loads the server configuration from an optional file,
// a .env file and POPIS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// POPIS_HTTP_ADDR for http.addr.
const EnvPrefix = "POPIS"

type Config struct {
	HTTP struct {
		Addr         string        `mapstructure:"addr"`
		ReadTimeout  time.Duration `mapstructure:"read_timeout"`
		WriteTimeout time.Duration `mapstructure:"write_timeout"`
		CORSOrigins  []string      `mapstructure:"cors_origins"`
	} `mapstructure:"http"`

	Database struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`

	Auth struct {
		// JWTSecret overrides the secret persisted in the database.
		JWTSecret         string        `mapstructure:"jwt_secret"`
		AccessTTL         time.Duration `mapstructure:"access_ttl"`
		RefreshTTL        time.Duration `mapstructure:"refresh_ttl"`
		AllowRegistration bool          `mapstructure:"allow_registration"`
	} `mapstructure:"auth"`

	Registry struct {
		StockPrefix string `mapstructure:"stock_prefix"`
	} `mapstructure:"registry"`

	Inventory struct {
		ProtectNonZeroDelete bool `mapstructure:"protect_nonzero_delete"`
	} `mapstructure:"inventory"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
		Path   string `mapstructure:"path"`
	} `mapstructure:"log"`

	Metrics struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"metrics"`
}

var defaults = map[string]any{
	"http.addr":                        ":8080",
	"http.read_timeout":                "30s",
	"http.write_timeout":               "60s",
	"http.cors_origins":                []string{},
	"database.path":                    "popis.sqlite3",
	"auth.jwt_secret":                  "",
	"auth.access_ttl":                  "30m",
	"auth.refresh_ttl":                 "24h",
	"auth.allow_registration":          true,
	"registry.stock_prefix":            "INV-",
	"inventory.protect_nonzero_delete": false,
	"log.level":                        "info",
	"log.format":                       "text",
	"log.path":                         "",
	"metrics.enabled":                  true,
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	c, err := load(newViper())
	if err != nil {
		panic(fmt.Sprintf("decoding default config: %v", err))
	}
	return c
}

// Load reads the configuration. An empty path skips the config file; a
// .env file in the working directory is loaded when present.
func Load(path string) (Config, error) {
	// Missing .env is fine; variables already set in the environment win.
	_ = godotenv.Load()

	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	c, err := load(v)
	if err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func load(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	return c, nil
}

// Validate rejects values the server cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if c.Auth.AccessTTL <= 0 {
		errs = append(errs, errors.New("auth.access_ttl must be positive"))
	}
	if c.Auth.RefreshTTL < c.Auth.AccessTTL {
		errs = append(errs, errors.New("auth.refresh_ttl must not be shorter than auth.access_ttl"))
	}
	if c.Registry.StockPrefix == "" {
		errs = append(errs, errors.New("registry.stock_prefix is required"))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not one of text, json", c.Log.Format))
	}

	return errors.Join(errs...)
}
