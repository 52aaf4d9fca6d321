package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"UD_contest_bot/internal/repository"
	"UD_contest_bot/internal/telegram"
	"UD_contest_bot/pkg/redis"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	configPath   = "./"
	configName   = "config"
	configFormat = "yaml"
)

type Config struct {
	Database repository.Config `yaml:"database"`
	Redis    redis.Config      `yaml:"redis"`
	Telegram telegram.Config   `yaml:"telegram"`
	Server   ServerConfig      `yaml:"server"`
	Flow     FlowConfig        `yaml:"flow"`

	// Admins may read any user's data and watch the registration feed.
	Admins    []int64 `yaml:"admins"`
	DebugAuth bool    `yaml:"debugAuth"`
	LogLevel  string  `yaml:"logLevel"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

type FlowConfig struct {
	// SessionTTL bounds how long an unfinished registration is kept. Zero keeps it forever.
	SessionTTL time.Duration `yaml:"sessionTTL"`
	Regions    []string      `yaml:"regions"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "contest")
	v.SetDefault("database.sslMode", "disable")

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.poolSize", 10)
	v.SetDefault("redis.minIdleConns", 0)
	v.SetDefault("redis.dialTimeout", 5*time.Second)
	v.SetDefault("redis.readTimeout", 3*time.Second)
	v.SetDefault("redis.writeTimeout", 3*time.Second)

	v.SetDefault("telegram.botToken", "")
	v.SetDefault("telegram.debug", false)
	v.SetDefault("telegram.updateTimeout", 60)
	v.SetDefault("telegram.workers", 32)

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.shutdownTimeout", 10*time.Second)

	v.SetDefault("flow.sessionTTL", 72*time.Hour)
	v.SetDefault("flow.regions", []string{})

	v.SetDefault("admins", []int64{})
	v.SetDefault("debugAuth", false)
	v.SetDefault("logLevel", "info")
}

// LoadConfig reads config.yaml from dir, then applies APP_* environment overrides.
// A .env file in dir, if present, is loaded into the environment first.
func LoadConfig(dir string) (*Config, error) {
	if err := godotenv.Load(dir + ".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	v.SetConfigName(configName)
	v.AddConfigPath(dir)
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
	if c.Telegram.BotToken == "" {
		return errors.New("telegram.botToken is required")
	}
	if c.Flow.SessionTTL < 0 {
		return errors.New("flow.sessionTTL must not be negative")
	}
	return nil
}
