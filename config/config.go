package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	AfterPay AfterPayConfig
	Server   ServerConfig
	Session  SessionConfig
	Redis    RedisConfig
	JWT      JWTConfig
}

type DatabaseConfig struct {
	Host     string
	User     string
	Password string
	DBName   string
}

// AfterPayConfig holds the provider endpoints. Credentials live in the
// per-country settings rows, not here.
type AfterPayConfig struct {
	SandboxURL    string
	ProductionURL string
}

type ServerConfig struct {
	Port       string
	Domain     string
	WebstoreID int
}

type SessionConfig struct {
	Secret string
	Domain string
	MaxAge int
}

type RedisConfig struct {
	URL               string
	WorkerConcurrency int
}

type JWTConfig struct {
	Secret string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     os.Getenv("DB_HOST"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			DBName:   os.Getenv("DB_NAME"),
		},
		AfterPay: AfterPayConfig{
			SandboxURL:    os.Getenv("AFTERPAY_SANDBOX_URL"),
			ProductionURL: os.Getenv("AFTERPAY_PRODUCTION_URL"),
		},
		Server: ServerConfig{
			Port:       os.Getenv("SERVER_PORT"),
			Domain:     os.Getenv("SERVER_DOMAIN"),
			WebstoreID: intEnv("WEBSTORE_ID", 1),
		},
		Session: SessionConfig{
			Secret: os.Getenv("SESSION_SECRET"),
			Domain: os.Getenv("SESSION_DOMAIN"),
			MaxAge: intEnv("SESSION_MAX_AGE", 3600),
		},
		Redis: RedisConfig{
			URL:               os.Getenv("REDIS_URL"),
			WorkerConcurrency: intEnv("WORKER_CONCURRENCY", 2),
		},
		JWT: JWTConfig{
			Secret: os.Getenv("JWT_SECRET"),
		},
	}

	if cfg.AfterPay.SandboxURL == "" {
		cfg.AfterPay.SandboxURL = "https://sandbox.afterpay.io"
	}
	if cfg.AfterPay.ProductionURL == "" {
		cfg.AfterPay.ProductionURL = "https://api.afterpay.io"
	}
	if cfg.Redis.URL == "" {
		cfg.Redis.URL = "redis://localhost:6379/0"
		log.Printf("Warning: REDIS_URL not set, using default: %s", cfg.Redis.URL)
	}
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}

	return cfg
}

func intEnv(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Printf("Warning: invalid %s value %q, using default %d", key, v, fallback)
	}
	return fallback
}
