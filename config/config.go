package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. PORTAL_IDENTITY_URL
const EnvPrefix = "PORTAL"

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Identity  IdentityConfig  `mapstructure:"identity"`
	Challenge ChallengeConfig `mapstructure:"challenge"`
	Redirect  RedirectConfig  `mapstructure:"redirect"`
	Cookie    CookieConfig    `mapstructure:"cookie"`
	Screen    ScreenConfig    `mapstructure:"screen"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Events    EventsConfig    `mapstructure:"events"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Env    string `mapstructure:"env"`
}

type IdentityConfig struct {
	URL string `mapstructure:"url"`
	// Timeout of identity calls, zero leaves them to transport defaults
	Timeout time.Duration `mapstructure:"timeout"`
}

type ChallengeConfig struct {
	URL     string        `mapstructure:"url"`
	SiteKey string        `mapstructure:"site_key"`
	Timeout time.Duration `mapstructure:"timeout"`
	// StaticToken replaces the challenge service when URL is empty
	StaticToken string `mapstructure:"static_token"`
}

type RedirectConfig struct {
	Domains []string `mapstructure:"domains"`
}

type CookieConfig struct {
	AccessName  string `mapstructure:"access_name"`
	RefreshName string `mapstructure:"refresh_name"`
	Domain      string `mapstructure:"domain"`
	Secure      bool   `mapstructure:"secure"`
	HTTPOnly    bool   `mapstructure:"http_only"`
}

type ScreenConfig struct {
	TTL           time.Duration `mapstructure:"ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	RedirectDelay time.Duration `mapstructure:"redirect_delay"`
	ConfirmDelay  time.Duration `mapstructure:"confirm_delay"`
}

type RedisConfig struct {
	// URL of the Redis server. Empty keeps snapshots in memory and events in process.
	URL string `mapstructure:"url"`
}

type EventsConfig struct {
	Topic string `mapstructure:"topic"`
}

type RateLimitConfig struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
	Burst    int           `mapstructure:"burst"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":9000")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.env", "prod")

	v.SetDefault("identity.url", "http://localhost:8080/api/v1/")
	v.SetDefault("identity.timeout", time.Duration(0))

	v.SetDefault("challenge.url", "")
	v.SetDefault("challenge.site_key", "")
	v.SetDefault("challenge.timeout", 5*time.Second)
	v.SetDefault("challenge.static_token", "dev")

	v.SetDefault("redirect.domains", []string{"localhost", "myponyasia.com"})

	v.SetDefault("cookie.access_name", "SID-MYPONYASIA")
	v.SetDefault("cookie.refresh_name", "SIDR-MYPONYASIA")
	v.SetDefault("cookie.domain", "")
	v.SetDefault("cookie.secure", true)
	v.SetDefault("cookie.http_only", true)

	v.SetDefault("screen.ttl", 15*time.Minute)
	v.SetDefault("screen.sweep_interval", time.Minute)
	v.SetDefault("screen.redirect_delay", time.Second)
	v.SetDefault("screen.confirm_delay", time.Second)

	v.SetDefault("redis.url", "")

	v.SetDefault("events.topic", "portal.events")

	v.SetDefault("ratelimit.requests", 20)
	v.SetDefault("ratelimit.window", time.Minute)
	v.SetDefault("ratelimit.burst", 20)
}

// Load reads the configuration from defaults, the optional file at path and
// PORTAL_* environment variables, in increasing order of precedence.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the server cannot start with
func (c *Config) Validate() error {
	if c.Identity.URL == "" {
		return errors.New("identity.url is required")
	}
	if c.Challenge.URL == "" && c.Challenge.StaticToken == "" {
		return errors.New("challenge.url or challenge.static_token is required")
	}
	if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
		return errors.New("ratelimit.requests and ratelimit.window must be positive")
	}
	if c.RateLimit.Burst <= 0 {
		return errors.New("ratelimit.burst must be positive")
	}
	return nil
}
