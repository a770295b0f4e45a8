package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Audit     AuditConfig
}

type ServerConfig struct {
	Host    string
	Port    int
	DevMode bool
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience string
	TTL      time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	Username string
	DB       int
}

// RateLimitConfig carries the three hard tiers plus the slowdown layer.
type RateLimitConfig struct {
	LoginWindow    time.Duration
	LoginMax       int
	GeneralWindow  time.Duration
	GeneralMax     int
	CriticalWindow time.Duration
	CriticalMax    int

	SlowdownWindow    time.Duration
	SlowdownThreshold int
	SlowdownStep      time.Duration
	SlowdownMax       time.Duration
}

type AuditConfig struct {
	Retention time.Duration
	PurgeCron string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:    getEnv("SERVER_HOST", "localhost"),
			Port:    getEnvAsInt("SERVER_PORT", 8080),
			DevMode: getEnv("DEV_MODE", "false") == "true",
		},
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvAsInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			Name:     getEnv("POSTGRES_DB", "relato"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			Secret:   getEnv("JWT_SECRET", ""),
			Issuer:   getEnv("JWT_ISSUER", "relato-api"),
			Audience: getEnv("JWT_AUDIENCE", "relato-clients"),
			TTL:      getEnvAsDuration("JWT_TTL", 24*time.Hour),
		},
		Redis: RedisConfig{
			Addr:     fmt.Sprintf("%s:%d", getEnv("REDIS_HOST", "localhost"), getEnvAsInt("REDIS_PORT", 6379)),
			Password: getEnv("REDIS_PASSWORD", ""),
			Username: getEnv("REDIS_USERNAME", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		RateLimit: RateLimitConfig{
			LoginWindow:    getEnvAsDuration("RATE_LOGIN_WINDOW", 15*time.Minute),
			LoginMax:       getEnvAsInt("RATE_LOGIN_MAX", 5),
			GeneralWindow:  getEnvAsDuration("RATE_GENERAL_WINDOW", 15*time.Minute),
			GeneralMax:     getEnvAsInt("RATE_GENERAL_MAX", 100),
			CriticalWindow: getEnvAsDuration("RATE_CRITICAL_WINDOW", 5*time.Minute),
			CriticalMax:    getEnvAsInt("RATE_CRITICAL_MAX", 10),

			SlowdownWindow:    getEnvAsDuration("SLOWDOWN_WINDOW", 15*time.Minute),
			SlowdownThreshold: getEnvAsInt("SLOWDOWN_THRESHOLD", 50),
			SlowdownStep:      getEnvAsDuration("SLOWDOWN_STEP", 500*time.Millisecond),
			SlowdownMax:       getEnvAsDuration("SLOWDOWN_MAX", 20*time.Second),
		},
		Audit: AuditConfig{
			Retention: getEnvAsDuration("AUDIT_RETENTION", 90*24*time.Hour),
			PurgeCron: getEnv("AUDIT_PURGE_CRON", "0 3 * * *"),
		},
	}

	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
