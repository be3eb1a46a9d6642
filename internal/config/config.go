package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ProgrammerDavid1234/study-hub-software-engineering/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Backend modes.
const (
	BackendMemory = "memory"
	BackendHTTP   = "http"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	Backend   BackendConfig
	Postgres  PostgresConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Portal    PortalConfig
	LogLevel  string
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// BackendConfig selects and configures the hosted auth/data backend.
type BackendConfig struct {
	Mode           string
	URL            string
	AnonKey        string
	ProjectRef     string
	Timeout        time.Duration
	DuplicateCheck bool
	VerifyTokens   bool
	// memory mode only
	JWTSecret   string
	AutoConfirm bool
	AccessTTL   time.Duration
}

type PostgresConfig struct {
	URL     string
	Timeout time.Duration
}

type MongoDBConfig struct {
	URI        string
	Database   string
	Timeout    time.Duration
	SessionTTL time.Duration
}

type RedisConfig struct {
	Host       string
	Port       string
	Password   string
	DB         int
	SessionTTL time.Duration
}

type RateLimitConfig struct {
	Enabled bool
	RPS     float64
	Burst   int
	Window  time.Duration
}

// PortalConfig tunes per-browser portal clients.
type PortalConfig struct {
	CookieName   string
	SecureCookie bool
	IdleTTL      time.Duration
	ReadyTimeout time.Duration
	LoginPath    string
}

// Addr returns host:port for the HTTP listener.
func (s ServerConfig) Addr() string { return s.Host + ":" + s.Port }

// Enabled reports whether a Redis host is configured.
func (r RedisConfig) Enabled() bool { return r.Host != "" }

// Addr returns host:port for the Redis client.
func (r RedisConfig) Addr() string {
	port := r.Port
	if port == "" {
		port = "6379"
	}
	return r.Host + ":" + port
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env")

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_ENVIRONMENT", "development")
	v.SetDefault("SERVER_READ_TIMEOUT", 30)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 30)

	v.SetDefault("BACKEND_MODE", BackendMemory)
	v.SetDefault("BACKEND_TIMEOUT", 10)
	v.SetDefault("BACKEND_PROJECT_REF", "local")
	v.SetDefault("BACKEND_DUPLICATE_CHECK", true)
	v.SetDefault("BACKEND_VERIFY_TOKENS", false)
	v.SetDefault("BACKEND_AUTO_CONFIRM", true)
	v.SetDefault("BACKEND_ACCESS_TTL", 60)

	v.SetDefault("DATABASE_TIMEOUT", 10)
	v.SetDefault("MONGODB_DATABASE", "studyhub")
	v.SetDefault("MONGODB_TIMEOUT", 10)
	v.SetDefault("SESSION_TTL", 10080)
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("RATE_LIMIT_ENABLED", true)
	v.SetDefault("RATE_LIMIT_RPS", 5)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("RATE_LIMIT_WINDOW", 1)

	v.SetDefault("PORTAL_CLIENT_COOKIE", "studyhub_client")
	v.SetDefault("PORTAL_IDLE_TTL", 30)
	v.SetDefault("PORTAL_READY_TIMEOUT", 5)
	v.SetDefault("PORTAL_LOGIN_PATH", "/student/login")

	v.SetDefault("LOG_LEVEL", "info")

	env := v.GetString("SERVER_ENVIRONMENT")
	sessionTTL := time.Duration(v.GetInt("SESSION_TTL")) * time.Minute
	secureCookie := env == "production"
	if v.IsSet("PORTAL_SECURE_COOKIE") {
		secureCookie = v.GetBool("PORTAL_SECURE_COOKIE")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			Host:         v.GetString("SERVER_HOST"),
			Environment:  env,
			ReadTimeout:  time.Duration(v.GetInt("SERVER_READ_TIMEOUT")) * time.Second,
			WriteTimeout: time.Duration(v.GetInt("SERVER_WRITE_TIMEOUT")) * time.Second,
		},
		Backend: BackendConfig{
			Mode:           strings.ToLower(v.GetString("BACKEND_MODE")),
			URL:            strings.TrimRight(v.GetString("BACKEND_URL"), "/"),
			AnonKey:        v.GetString("BACKEND_ANON_KEY"),
			ProjectRef:     v.GetString("BACKEND_PROJECT_REF"),
			Timeout:        time.Duration(v.GetInt("BACKEND_TIMEOUT")) * time.Second,
			DuplicateCheck: v.GetBool("BACKEND_DUPLICATE_CHECK"),
			VerifyTokens:   v.GetBool("BACKEND_VERIFY_TOKENS"),
			JWTSecret:      v.GetString("BACKEND_JWT_SECRET"),
			AutoConfirm:    v.GetBool("BACKEND_AUTO_CONFIRM"),
			AccessTTL:      time.Duration(v.GetInt("BACKEND_ACCESS_TTL")) * time.Minute,
		},
		Postgres: PostgresConfig{
			URL:     v.GetString("DATABASE_URL"),
			Timeout: time.Duration(v.GetInt("DATABASE_TIMEOUT")) * time.Second,
		},
		MongoDB: MongoDBConfig{
			URI:        v.GetString("MONGODB_URI"),
			Database:   v.GetString("MONGODB_DATABASE"),
			Timeout:    time.Duration(v.GetInt("MONGODB_TIMEOUT")) * time.Second,
			SessionTTL: sessionTTL,
		},
		Redis: RedisConfig{
			Host:       v.GetString("REDIS_HOST"),
			Port:       v.GetString("REDIS_PORT"),
			Password:   v.GetString("REDIS_PASSWORD"),
			DB:         v.GetInt("REDIS_DB"),
			SessionTTL: sessionTTL,
		},
		RateLimit: RateLimitConfig{
			Enabled: v.GetBool("RATE_LIMIT_ENABLED"),
			RPS:     v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:   v.GetInt("RATE_LIMIT_BURST"),
			Window:  time.Duration(v.GetInt("RATE_LIMIT_WINDOW")) * time.Second,
		},
		Portal: PortalConfig{
			CookieName:   v.GetString("PORTAL_CLIENT_COOKIE"),
			SecureCookie: secureCookie,
			IdleTTL:      time.Duration(v.GetInt("PORTAL_IDLE_TTL")) * time.Minute,
			ReadyTimeout: time.Duration(v.GetInt("PORTAL_READY_TIMEOUT")) * time.Second,
			LoginPath:    v.GetString("PORTAL_LOGIN_PATH"),
		},
		LogLevel: v.GetString("LOG_LEVEL"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Backend.Mode {
	case BackendMemory:
		if c.Backend.JWTSecret == "" {
			logger.Warnf("BACKEND_JWT_SECRET is not set; using a development secret")
			c.Backend.JWTSecret = "studyhub-development-secret-change-me"
		}
	case BackendHTTP:
		if c.Backend.URL == "" || c.Backend.AnonKey == "" {
			return fmt.Errorf("BACKEND_URL and BACKEND_ANON_KEY are required when BACKEND_MODE=%s", BackendHTTP)
		}
		if _, err := url.ParseRequestURI(c.Backend.URL); err != nil {
			return fmt.Errorf("invalid BACKEND_URL: %w", err)
		}
	default:
		return fmt.Errorf("unknown BACKEND_MODE %q (want %s or %s)", c.Backend.Mode, BackendMemory, BackendHTTP)
	}
	if _, ok := logger.ParseLevel(c.LogLevel); !ok {
		logger.Warnf("unknown LOG_LEVEL %q; using info", c.LogLevel)
	}
	if !strings.HasPrefix(c.Portal.LoginPath, "/") {
		return fmt.Errorf("PORTAL_LOGIN_PATH must be an absolute path, got %q", c.Portal.LoginPath)
	}
	if c.RateLimit.Enabled && c.RateLimit.RPS <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be positive")
	}
	return nil
}
