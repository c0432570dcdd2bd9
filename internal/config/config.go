package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds the application configuration
type AppConfig struct {
	ServerPort  string
	DatabaseURL string // empty selects the in-memory store
	AutoMigrate bool
	JWTSecret   string
	TokenMaxAge time.Duration

	RedisURL    string // empty selects the in-process presence tracker
	PresenceTTL time.Duration

	// RecallWindow bounds how long after sending a message may be recalled. Zero means no limit.
	RecallWindow time.Duration
	SystemAPIKey string

	UploadDir      string
	UploadBaseURL  string
	UploadMaxBytes int64

	CORSOrigins []string
	LogLevel    string
	Environment string
}

// Global variable to hold the loaded configuration
var Cfg *AppConfig

// LoadConfig loads configuration from environment variables.
// It first tries to load from a .env file if present.
func LoadConfig(envPath ...string) {
	envFile := ".env"
	if len(envPath) > 0 {
		envFile = envPath[0]
	}

	if err := godotenv.Load(envFile); err != nil {
		// Not fatal: production usually injects real environment variables.
		log.Printf("Warning: Could not load %s file: %v. Relying on environment variables.", envFile, err)
	}

	Cfg = &AppConfig{
		ServerPort:     getEnv("PORT", "8080"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		AutoMigrate:    getBool("AUTO_MIGRATE", true),
		JWTSecret:      getEnv("JWT_SECRET", "a_very_long_and_secure_default_secret_key_please_change_this"),
		TokenMaxAge:    time.Hour * time.Duration(getInt("TOKEN_HOURS", 72)),
		RedisURL:       getEnv("REDIS_URL", ""),
		PresenceTTL:    getDuration("PRESENCE_TTL", 60*time.Second),
		RecallWindow:   getDuration("RECALL_WINDOW", 0),
		SystemAPIKey:   getEnv("SYSTEM_API_KEY", ""),
		UploadDir:      getEnv("UPLOAD_DIR", "./uploads"),
		UploadBaseURL:  getEnv("UPLOAD_BASE_URL", "/uploads"),
		UploadMaxBytes: int64(getInt("UPLOAD_MAX_BYTES", 20<<20)),
		CORSOrigins:    splitList(getEnv("CORS_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000")),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		Environment:    getEnv("APP_ENV", "production"),
	}

	log.Printf("Configuration loaded: Port=%s, DB_URL_Host=%s, TokenMaxAge=%v, RecallWindow=%v",
		Cfg.ServerPort, GetDBHost(Cfg.DatabaseURL), Cfg.TokenMaxAge, Cfg.RecallWindow)
}

// IsDevelopment reports whether APP_ENV selects development behaviour (verbose logs, debug gin mode).
func (c *AppConfig) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, "development")
}

// getEnv reads an environment variable or returns a default value
func getEnv(key string, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("Warning: Invalid %s value '%s', using default %d. Error: %v", key, raw, fallback, err)
		return fallback
	}
	return v
}

func getBool(key string, fallback bool) bool {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("Warning: Invalid %s value '%s', using default %v. Error: %v", key, raw, fallback, err)
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("Warning: Invalid %s value '%s', using default %v. Error: %v", key, raw, fallback, err)
		return fallback
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// GetDBHost extracts host:port from a DB URL for logging, to avoid logging full credentials
func GetDBHost(dbURL string) string {
	if dbURL == "" {
		return "in-memory"
	}
	parts := strings.Split(dbURL, "@")
	if len(parts) > 1 {
		hostAndDB := strings.Split(parts[1], "/")
		if len(hostAndDB) > 0 {
			return hostAndDB[0]
		}
	}
	return "unknown (could not parse DB_URL for host)"
}
