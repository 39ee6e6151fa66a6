package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server  ServerConfig
	Session SessionConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all (e.g. http://localhost:3000)
}

// SessionConfig holds the classroom session policy knobs. All of them
// have fixed defaults and are externalized only for operational tuning.
type SessionConfig struct {
	ArchiveCap          int // completed polls retained
	ChatCap             int // chat messages retained
	MinOptions          int
	MaxOptions          int
	MaxQuestionLen      int
	MinTimeLimitSeconds int
	MaxTimeLimitSeconds int
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load() // .env

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		},
		Session: SessionConfig{
			ArchiveCap:          getEnvInt("ARCHIVE_CAP", 50),
			ChatCap:             getEnvInt("CHAT_CAP", 100),
			MinOptions:          getEnvInt("POLL_MIN_OPTIONS", 2),
			MaxOptions:          getEnvInt("POLL_MAX_OPTIONS", 6),
			MaxQuestionLen:      getEnvInt("POLL_MAX_QUESTION_LEN", 100),
			MinTimeLimitSeconds: getEnvInt("POLL_MIN_TIME_LIMIT_SEC", 1),
			MaxTimeLimitSeconds: getEnvInt("POLL_MAX_TIME_LIMIT_SEC", 600),
		},
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
