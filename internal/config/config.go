package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	// Model gateway
	LLMProvider     string // "anthropic" or "openai"
	AnthropicAPIKey string
	OpenAIAPIKey    string
	ModelName       string

	// Persistence
	RedisURL string

	// World data directories, comma-separated
	DataDirs []string

	// Turn orchestration
	MaxToolCalls     int
	ResolveThreshold float64
}

func Load() *Config {
	// Missing .env is fine; real env vars still apply.
	_ = godotenv.Load()

	return &Config{
		Port:             getEnv("PORT", "8080"),
		Environment:      getEnv("ENVIRONMENT", "development"),
		LogLevel:         parseLogLevel(getEnv("LOG_LEVEL", "info")),
		LLMProvider:      strings.ToLower(getEnv("LLM_PROVIDER", "anthropic")),
		AnthropicAPIKey:  getEnv("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		ModelName:        getEnv("MODEL_NAME", "claude-sonnet-4-20250514"),
		RedisURL:         getEnv("REDIS_URL", "redis://localhost:6379"),
		DataDirs:         splitDirs(getEnv("DATA_DIRS", "./data/world")),
		MaxToolCalls:     getEnvInt("MAX_TOOL_CALLS", 5),
		ResolveThreshold: getEnvFloat("RESOLVE_THRESHOLD", 0.75),
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func splitDirs(value string) []string {
	var dirs []string
	for _, dir := range strings.Split(value, ",") {
		if dir = strings.TrimSpace(dir); dir != "" {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
