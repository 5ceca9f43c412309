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
	AppName          string
	AppEnv           string
	AppPort          string
	DatabaseURL      string
	RedisURL         string
	NATSURL          string
	EventChannel     string
	JWTSecret        string
	ListingCacheTTL  time.Duration
	RequestTimeout   time.Duration
	AssignRateLimit  int
	AssignRateWindow time.Duration
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
	v.SetEnvPrefix("AGENCY")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Agency Ops API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("events.channel", "agency:assignments")
	v.SetDefault("listing.cache_ttl", "2m")
	v.SetDefault("http.request_timeout", "15s")
	v.SetDefault("assign.rate_limit", 30)
	v.SetDefault("assign.rate_window", "1m")

	ttl, err := parseDuration(v, "listing.cache_ttl", 2*time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid listing cache ttl: %w", err)
	}

	timeout, err := parseDuration(v, "http.request_timeout", 15*time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("invalid request timeout: %w", err)
	}

	window, err := parseDuration(v, "assign.rate_window", time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid assign rate window: %w", err)
	}

	cfg := Config{
		AppName:          v.GetString("app.name"),
		AppEnv:           v.GetString("app.env"),
		AppPort:          v.GetString("app.port"),
		DatabaseURL:      v.GetString("database.url"),
		RedisURL:         v.GetString("redis.url"),
		NATSURL:          v.GetString("nats.url"),
		EventChannel:     v.GetString("events.channel"),
		JWTSecret:        v.GetString("jwt.secret"),
		ListingCacheTTL:  ttl,
		RequestTimeout:   timeout,
		AssignRateLimit:  v.GetInt("assign.rate_limit"),
		AssignRateWindow: window,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.AssignRateLimit <= 0 {
		cfg.AssignRateLimit = 30
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return fallback, nil
	}
	return time.ParseDuration(raw)
}
