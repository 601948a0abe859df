// Package config reads service settings from app.env and the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	HTTPAddr       string        `mapstructure:"HTTP_ADDR"`
	GRPCAddr       string        `mapstructure:"GRPC_ADDR"`
	Store          string        `mapstructure:"STORE"`
	DatabaseDSN    string        `mapstructure:"DATABASE_DSN"`
	RedisAddr      string        `mapstructure:"REDIS_ADDR"`
	JWTSecret      string        `mapstructure:"JWT_SECRET"`
	AllowedOrigins []string      `mapstructure:"ALLOWED_ORIGINS"`
	RulesDir       string        `mapstructure:"RULES_DIR"`
	RulesProfile   string        `mapstructure:"RULES_PROFILE"`
	RulesReload    time.Duration `mapstructure:"RULES_RELOAD_INTERVAL"`
	StoryGraph     string        `mapstructure:"STORY_GRAPH"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`
}

var keys = []string{
	"HTTP_ADDR", "GRPC_ADDR", "STORE", "DATABASE_DSN", "REDIS_ADDR", "JWT_SECRET",
	"ALLOWED_ORIGINS", "RULES_DIR", "RULES_PROFILE", "RULES_RELOAD_INTERVAL", "STORY_GRAPH", "LOG_LEVEL",
}

// Load reads path/app.env if present, then the environment on top.
func Load(path string) (Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("GRPC_ADDR", ":9090")
	v.SetDefault("STORE", "memory")
	v.SetDefault("RULES_PROFILE", "default")
	v.SetDefault("RULES_RELOAD_INTERVAL", "0s")
	v.SetDefault("ALLOWED_ORIGINS", "*")
	v.SetDefault("LOG_LEVEL", "info")
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", k, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	switch c.Store {
	case "memory":
	case "postgres":
		if c.DatabaseDSN == "" {
			errs = append(errs, errors.New("DATABASE_DSN is required for STORE=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE must be memory or postgres, got %q", c.Store))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.RulesReload < 0 {
		errs = append(errs, errors.New("RULES_RELOAD_INTERVAL must be >= 0"))
	}
	return errors.Join(errs...)
}
