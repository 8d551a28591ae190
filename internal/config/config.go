// Package config loads service settings from defaults, an optional
// switchboard.yaml, SWITCHBOARD_* environment variables and flags.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "SWITCHBOARD"
	fileName  = "switchboard"
)

type Config struct {
	Server  ServerConfig            `mapstructure:"server"`
	Log     LogConfig               `mapstructure:"log"`
	Cache   CacheConfig             `mapstructure:"cache"`
	HTTP    HTTPConfig              `mapstructure:"http"`
	Catalog CatalogConfig           `mapstructure:"catalog"`
	Breaker BreakerConfig           `mapstructure:"breaker"`
	Sources map[string]SourceConfig `mapstructure:"sources"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// Warmup fetches every source once before serving.
	Warmup bool `mapstructure:"warmup"`
}

type LogConfig struct {
	Format string `mapstructure:"format"`
	Level  string `mapstructure:"level"`
}

type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
	// Dir holds the git working copies and metadata documents.
	Dir string `mapstructure:"dir"`
}

type HTTPConfig struct {
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	UserAgent  string        `mapstructure:"user_agent"`
}

type CatalogConfig struct {
	ManifestURL     string        `mapstructure:"manifest_url"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

type BreakerConfig struct {
	Threshold int64         `mapstructure:"threshold"`
	Cooldown  time.Duration `mapstructure:"cooldown"`
}

// SourceConfig overrides the defaults of one upstream source.
type SourceConfig struct {
	URL      string        `mapstructure:"url"`
	TTL      time.Duration `mapstructure:"ttl"`
	Disabled bool          `mapstructure:"disabled"`
}

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"host":       "server.host",
	"port":       "server.port",
	"warmup":     "server.warmup",
	"log-format": "log.format",
	"log-level":  "log.level",
	"cache-dir":  "cache.dir",
	"cache-ttl":  "cache.ttl",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 7000)
	v.SetDefault("server.warmup", true)
	v.SetDefault("log.format", "json")
	v.SetDefault("log.level", "info")
	v.SetDefault("cache.ttl", time.Hour)
	v.SetDefault("cache.dir", filepath.Join(".", "cache"))
	v.SetDefault("http.timeout", 30*time.Second)
	v.SetDefault("http.max_retries", 5)
	v.SetDefault("http.user_agent", "switchboard")
	v.SetDefault("catalog.manifest_url", "https://launchermeta.mojang.com/mc/game/version_manifest.json")
	v.SetDefault("catalog.refresh_interval", time.Hour)
	v.SetDefault("breaker.threshold", 5)
	v.SetDefault("breaker.cooldown", 30*time.Second)
	v.SetDefault("sources", map[string]any{
		"parchment": map[string]any{"ttl": "3h"},
	})
}

// Load reads the configuration. file may be empty, in which case
// switchboard.yaml is looked up in the working directory and skipped if
// missing. flags may be nil.
func Load(file string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(fileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that would otherwise fail at first use.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive, got %s", c.Cache.TTL)
	}
	if c.HTTP.MaxRetries < 0 {
		return fmt.Errorf("http.max_retries must not be negative, got %d", c.HTTP.MaxRetries)
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be positive, got %s", c.HTTP.Timeout)
	}
	if _, err := url.ParseRequestURI(c.Catalog.ManifestURL); err != nil {
		return fmt.Errorf("catalog.manifest_url: %w", err)
	}
	for name, src := range c.Sources {
		if src.URL == "" {
			continue
		}
		if _, err := url.Parse(src.URL); err != nil {
			return fmt.Errorf("sources.%s.url: %w", name, err)
		}
	}
	return nil
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Source returns the overrides for name with the cache TTL filled in.
func (c *Config) Source(name string) SourceConfig {
	src := c.Sources[name]
	if src.TTL <= 0 {
		src.TTL = c.Cache.TTL
	}
	return src
}
