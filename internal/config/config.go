package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Config holds all runtime configuration, loaded from the environment.
type Config struct {
	Port          string
	MongoURI      string
	MongoDB       string
	JWTSecret     string
	TokenExpiry   int // hours
	SweepSchedule string
}

// LoadConfig reads configuration from a .env file if present, falling back
// to the process environment.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found, relying on environment variables")
	}

	return &Config{
		Port:          getEnv("PORT", "8080"),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:       getEnv("MONGO_DB", "combatid"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		TokenExpiry:   getEnvInt("TOKEN_EXPIRY_HOURS", 72),
		SweepSchedule: getEnv("NOTIFICATION_SWEEP_SCHEDULE", "@every 1m"),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		log.WithField(key, value).Warn("Invalid integer in environment, using fallback")
		return fallback
	}
	return parsed
}
