// Package config loads the server configuration from defaults, an optional
// YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. LIVE_SERVER_PORT.
const EnvPrefix = "LIVE"

// Feed backends.
const (
	FeedMemory   = "memory"
	FeedPostgres = "postgres"
	FeedNATS     = "nats"
)

// Storage backends.
const (
	StorageFS  = "fs"
	StorageGCS = "gcs"
)

// Config is the full server configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Feed     FeedConfig     `mapstructure:"feed"`
	Storage  StorageConfig  `mapstructure:"storage"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port       int    `mapstructure:"port"`
	CORSOrigin string `mapstructure:"cors_origin"`
}

// DatabaseConfig configures the Postgres connection.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// FeedConfig selects how row changes reach subscribers.
type FeedConfig struct {
	Backend string `mapstructure:"backend"`
	Channel string `mapstructure:"channel"`
	NATSURL string `mapstructure:"nats_url"`
	Buffer  int    `mapstructure:"buffer"`
}

// StorageConfig selects where uploaded resumes are kept.
type StorageConfig struct {
	Backend         string `mapstructure:"backend"`
	Bucket          string `mapstructure:"bucket"`
	Root            string `mapstructure:"root"`
	PublicURL       string `mapstructure:"public_url"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

// LLMConfig configures image text extraction.
type LLMConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// AuthConfig configures host accounts.
type AuthConfig struct {
	JWTSecret       string `mapstructure:"jwt_secret"`
	ExpirationHours int    `mapstructure:"expiration_hours"`
	BcryptCost      int    `mapstructure:"bcrypt_cost"`
	Pepper          string `mapstructure:"pepper"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	JSON  bool `mapstructure:"json"`
	Debug bool `mapstructure:"debug"`
}

// legacyEnv maps config keys to unprefixed variables that are also honoured.
var legacyEnv = map[string]string{
	"database.url":          "DATABASE_URL",
	"llm.api_key":           "GEMINI_API_KEY",
	"auth.jwt_secret":       "JWT_SECRET",
	"auth.expiration_hours": "JWT_EXPIRATION_HOURS",
	"auth.bcrypt_cost":      "BCRYPT_COST",
	"auth.pepper":           "PASSWORD_PEPPER",
	"server.port":           "PORT",
}

// New returns a viper instance with defaults and environment bindings set.
// Callers may bind command-line flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		_ = v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env)
	}
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origin", "*")
	v.SetDefault("database.url", "")
	v.SetDefault("feed.backend", FeedPostgres)
	v.SetDefault("feed.channel", "live_changes")
	v.SetDefault("feed.nats_url", "nats://127.0.0.1:4222")
	v.SetDefault("feed.buffer", 64)
	v.SetDefault("storage.backend", StorageFS)
	v.SetDefault("storage.bucket", "resumes")
	v.SetDefault("storage.root", "./data/uploads")
	v.SetDefault("storage.public_url", "/files")
	v.SetDefault("storage.credentials_file", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.expiration_hours", 24)
	v.SetDefault("auth.bcrypt_cost", 12)
	v.SetDefault("auth.pepper", "")
	v.SetDefault("log.json", false)
	v.SetDefault("log.debug", false)
}

// LoadDotEnv loads .env files into the environment. Missing files are ignored.
func LoadDotEnv(files ...string) {
	_ = godotenv.Load(files...)
}

// Load reads the optional config file into v and returns the validated config.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("live")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enum and range values. Required secrets are checked by the
// components that need them.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config error: 'server.port' must be between 1 and 65535, got %d", c.Server.Port)
	}
	switch c.Feed.Backend {
	case FeedMemory, FeedPostgres, FeedNATS:
	default:
		return fmt.Errorf("config error: 'feed.backend' must be memory, postgres or nats, got %q", c.Feed.Backend)
	}
	switch c.Storage.Backend {
	case StorageFS, StorageGCS:
	default:
		return fmt.Errorf("config error: 'storage.backend' must be fs or gcs, got %q", c.Storage.Backend)
	}
	if c.Feed.Buffer < 1 {
		return fmt.Errorf("config error: 'feed.buffer' must be positive")
	}
	return nil
}

// JWT returns the token configuration.
func (c *Config) JWT() (*JWTConfig, error) {
	return NewJWTConfig(c.Auth.JWTSecret, c.Auth.ExpirationHours)
}

// Password returns the password hashing configuration.
func (c *Config) Password() (*PasswordConfig, error) {
	return NewPasswordConfig(c.Auth.BcryptCost, c.Auth.Pepper)
}
