package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"xquest/internal/events"
	"xquest/internal/middleware"
	"xquest/internal/repository"
	"xquest/pkg/auth"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	configPath   = "./"
	configName   = "config"
	configFormat = "yaml"
)

const (
	storageFile     = "file"
	storagePostgres = "postgres"

	minJWTSecretLen = 32
)

type Config struct {
	Server    ServerConfig               `mapstructure:"server"`
	Storage   StorageConfig              `mapstructure:"storage"`
	Quests    QuestsConfig               `mapstructure:"quests"`
	Google    auth.ProviderConfig        `mapstructure:"google"`
	X         XConfig                    `mapstructure:"x"`
	JWT       auth.JWTConfig             `mapstructure:"jwt"`
	RateLimit middleware.RateLimitConfig `mapstructure:"rateLimit"`
	Events    EventsConfig               `mapstructure:"events"`
	Metrics   MetricsConfig              `mapstructure:"metrics"`

	LogLevel string `mapstructure:"logLevel"`
}

type ServerConfig struct {
	Host          string `mapstructure:"host"`
	Port          string `mapstructure:"port"`
	// TrustedProxies lists the proxies whose X-Forwarded-For is believed.
	// Empty means the peer address is the client IP.
	TrustedProxies []string `mapstructure:"trustedProxies"`
	FrontendURL   string `mapstructure:"frontendURL"`
	SecureCookies bool   `mapstructure:"secureCookies"`
}

type StorageConfig struct {
	Driver   string            `mapstructure:"driver"`
	File     FileStorageConfig `mapstructure:"file"`
	Database repository.Config `mapstructure:"database"`
}

type FileStorageConfig struct {
	Path string `mapstructure:"path"`
}

type QuestsConfig struct {
	CatalogPath    string `mapstructure:"catalogPath"`
	GuardCompleted bool   `mapstructure:"guardCompleted"`
}

type XConfig struct {
	auth.ProviderConfig `mapstructure:",squash"`

	APIBaseURL string        `mapstructure:"apiBaseURL"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type EventsConfig struct {
	AMQP events.AMQPConfig `mapstructure:"amqp"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logLevel", "info")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "3000")
	v.SetDefault("server.frontendURL", "http://localhost:3000")
	v.SetDefault("server.trustedProxies", []string{})
	v.SetDefault("storage.driver", storageFile)
	v.SetDefault("storage.file.path", "data/users.json")
	v.SetDefault("x.timeout", 10*time.Second)
	v.SetDefault("jwt.ttl", 7*24*time.Hour)
	v.SetDefault("rateLimit.rps", 5)
	v.SetDefault("rateLimit.burst", 30)
	v.SetDefault("events.amqp.exchange", "quests")
	v.SetDefault("events.amqp.retryDelay", 2*time.Second)
	v.SetDefault("metrics.enabled", true)

	// Keys without a default are invisible to AutomaticEnv during Unmarshal.
	for _, key := range []string{
		"storage.database.host", "storage.database.port", "storage.database.user",
		"storage.database.password", "storage.database.name", "storage.database.sslmode",
		"quests.catalogPath",
		"google.clientId", "google.clientSecret", "google.redirectUrl",
		"x.clientId", "x.clientSecret", "x.redirectUrl", "x.apiBaseURL",
		"jwt.secret",
		"events.amqp.url",
	} {
		v.SetDefault(key, "")
	}
}

// LoadConfig reads config.yaml from the working directory. A missing file is
// fine as long as the environment supplies what is needed; APP_ prefixed
// variables override file values, and an optional .env is loaded first.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName(configName)
	v.AddConfigPath(configPath)
	v.SetConfigType(configFormat)

	v.AutomaticEnv()
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case storageFile:
		if c.Storage.File.Path == "" {
			return fmt.Errorf("storage.file.path is required")
		}
	case storagePostgres:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if len(c.JWT.Secret) < minJWTSecretLen {
		return fmt.Errorf("jwt.secret must be at least %d characters", minJWTSecretLen)
	}
	return nil
}
