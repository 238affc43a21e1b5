package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName               string
	AppEnv                string
	AppPort               string
	DatabaseURL           string
	RedisURL              string
	JWTSecret             string
	AveragesCacheTTL      time.Duration
	RatingAlpha           float64
	DefaultConversionRate float64
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("LIGA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "LIGA Progression API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("averages.cache_ttl", "5m")
	v.SetDefault("rating.alpha", 0.2)
	v.SetDefault("rewards.default_rate", 1.5)

	ttlString := v.GetString("averages.cache_ttl")
	if ttlString == "" {
		ttlString = "5m"
	}

	ttl, err := time.ParseDuration(ttlString)
	if err != nil {
		return Config{}, fmt.Errorf("invalid averages cache ttl: %w", err)
	}

	cfg := Config{
		AppName:               v.GetString("app.name"),
		AppEnv:                v.GetString("app.env"),
		AppPort:               v.GetString("app.port"),
		DatabaseURL:           v.GetString("database.url"),
		RedisURL:              v.GetString("redis.url"),
		JWTSecret:             v.GetString("jwt.secret"),
		AveragesCacheTTL:      ttl,
		RatingAlpha:           v.GetFloat64("rating.alpha"),
		DefaultConversionRate: v.GetFloat64("rewards.default_rate"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.RatingAlpha <= 0 || cfg.RatingAlpha > 1 {
		cfg.RatingAlpha = 0.2
	}

	if cfg.DefaultConversionRate <= 0 {
		cfg.DefaultConversionRate = 1.5
	}

	return cfg, nil
}
