package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/noah-isme/payrelay/internal/gateway"
)

// RouteCreateOrder is the only route that writes new ledger rows.
const RouteCreateOrder = "create-order"

// DefaultRoutes lists every relay route in mount order.
var DefaultRoutes = []string{RouteCreateOrder, "get-order", "get-payments", "get-payment", "order-status"}

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv string
	Port   string

	GatewayClientID     string
	GatewayClientSecret string
	GatewayEnv          gateway.Environment
	GatewayBaseURL      string

	DatabaseURL         string
	DatabaseServiceRole string
	RedisURL            string

	CORSAllowedOrigins []string
	Routes             []string

	AuthJWTSecret   string
	AuthJWTIssuer   string
	AuthJWTAudience string

	RateLimitMax    int
	RateLimitWindow time.Duration

	BodyLimitBytes         int64
	SecurityHeadersEnabled bool
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	gatewayEnv, err := gateway.ParseEnvironment(k.String("GATEWAY_ENV"))
	if err != nil {
		return nil, fmt.Errorf("GATEWAY_ENV: %w", err)
	}

	cfg := &Config{
		AppEnv:                 valueOrDefault(k.String("APP_ENV"), "development"),
		Port:                   valueOrDefault(k.String("PORT"), "8080"),
		GatewayClientID:        strings.TrimSpace(k.String("GATEWAY_CLIENT_ID")),
		GatewayClientSecret:    strings.TrimSpace(k.String("GATEWAY_CLIENT_SECRET")),
		GatewayEnv:             gatewayEnv,
		GatewayBaseURL:         strings.TrimSpace(k.String("GATEWAY_BASE_URL")),
		DatabaseURL:            strings.TrimSpace(k.String("DATABASE_URL")),
		DatabaseServiceRole:    strings.TrimSpace(k.String("DATABASE_SERVICE_ROLE")),
		RedisURL:               strings.TrimSpace(k.String("REDIS_URL")),
		CORSAllowedOrigins:     splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		Routes:                 splitAndTrim(k.String("RELAY_ROUTES")),
		AuthJWTSecret:          k.String("AUTH_JWT_SECRET"),
		AuthJWTIssuer:          strings.TrimSpace(k.String("AUTH_JWT_ISSUER")),
		AuthJWTAudience:        strings.TrimSpace(k.String("AUTH_JWT_AUDIENCE")),
		RateLimitMax:           parseInt(k.String("RATE_LIMIT_MAX"), 120),
		RateLimitWindow:        parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),
		BodyLimitBytes:         int64(parseInt(k.String("BODY_LIMIT_BYTES"), 1<<20)),
		SecurityHeadersEnabled: parseBool(k.String("SECURITY_HEADERS_ENABLED"), true),
	}
	if len(cfg.Routes) == 0 {
		cfg.Routes = slices.Clone(DefaultRoutes)
	}
	for _, route := range cfg.Routes {
		if !slices.Contains(DefaultRoutes, route) {
			return nil, fmt.Errorf("RELAY_ROUTES: unknown route %q", route)
		}
	}

	if cfg.GatewayClientID == "" || cfg.GatewayClientSecret == "" {
		return nil, errors.New("GATEWAY_CLIENT_ID and GATEWAY_CLIENT_SECRET are required")
	}
	if cfg.RouteEnabled(RouteCreateOrder) && cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required when create-order is enabled")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// RouteEnabled reports whether the named relay route should be mounted.
func (c *Config) RouteEnabled(route string) bool {
	return slices.Contains(c.Routes, route)
}

// AuthEnabled reports whether callers must present a bearer token.
func (c *Config) AuthEnabled() bool {
	return strings.TrimSpace(c.AuthJWTSecret) != ""
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func parseBool(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
