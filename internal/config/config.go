// Package config holds the grievance domain constants and the environment-driven
// runtime configuration shared by the API server, the escalator and the admin CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the runtime configuration read from the environment.
type Config struct {
	Port        string
	DatabaseURL string

	RedisAddr     string
	RedisPassword string

	JWTSecret string

	// UnassignedGrace is how long a validated complaint may wait for assignment
	// before the unassigned sweep escalates it.
	UnassignedGrace time.Duration
	// DefaultDeadline is added to the assignment time when the supervisor gives no deadline.
	DefaultDeadline time.Duration
	StoreTimeout    time.Duration

	EscalationCron string

	RateLimitRPS   int
	RateLimitBurst int
	CORSOrigins    []string

	S3Bucket        string
	S3Region        string
	S3Endpoint      string
	S3PublicBaseURL string

	TelegramBotToken string
}

// Load reads the configuration from the process environment.
// Call godotenv.Load beforehand to pick up a local .env file.
func Load() (*Config, error) {
	cfg := &Config{
		Port:             getEnvOrDefault("PORT", "8080"),
		DatabaseURL:      databaseURL(),
		RedisAddr:        getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		EscalationCron:   getEnvOrDefault("ESCALATION_CRON", "*/10 * * * *"),
		RateLimitRPS:     getEnvInt("RATE_LIMIT_RPS", 20),
		RateLimitBurst:   getEnvInt("RATE_LIMIT_BURST", 40),
		CORSOrigins:      getEnvList("CORS_ORIGINS", []string{"http://localhost:3000", "http://127.0.0.1:3000"}),
		S3Bucket:         os.Getenv("S3_BUCKET"),
		S3Region:         getEnvOrDefault("S3_REGION", "us-east-1"),
		S3Endpoint:       os.Getenv("S3_ENDPOINT"),
		S3PublicBaseURL:  os.Getenv("S3_PUBLIC_BASE_URL"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
	}

	var err error
	if cfg.UnassignedGrace, err = getEnvDuration("UNASSIGNED_GRACE", DefaultUnassignedGrace); err != nil {
		return nil, err
	}
	if cfg.DefaultDeadline, err = getEnvDuration("DEFAULT_DEADLINE", DefaultDeadline); err != nil {
		return nil, err
	}
	if cfg.StoreTimeout, err = getEnvDuration("STORE_TIMEOUT", DefaultStoreTimeout); err != nil {
		return nil, err
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is not set")
	}
	if cfg.UnassignedGrace <= 0 {
		return nil, fmt.Errorf("UNASSIGNED_GRACE must be positive, got %s", cfg.UnassignedGrace)
	}
	return cfg, nil
}

func databaseURL() string {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		return v
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		getEnvOrDefault("DB_HOST", "localhost"),
		getEnvOrDefault("DB_USER", "user"),
		getEnvOrDefault("DB_PASSWORD", "password"),
		getEnvOrDefault("DB_NAME", "grievancedb"),
		getEnvOrDefault("DB_PORT", "5432"),
	)
}

func getEnvOrDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil || i < 0 {
		return def
	}
	return i
}

func getEnvDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getEnvList(key string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
