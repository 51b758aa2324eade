// Package config provides configuration helpers for voxagent commands.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/shodh-ai/voxagent/internal/log"
)

// Default server configuration.
const (
	DefaultListenAddr = ":8080"
	DefaultPagePath   = "speakingpage"
	DefaultVoice      = "Puck"
)

// LoadDotenv loads a .env file if one exists next to the binary.
// Missing files are not an error; real environment variables win.
func LoadDotenv() {
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file loaded", "err", err)
	}
}

// Env returns the value of an environment variable or a default.
func Env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// EnvFloat returns a float environment variable or a default.
func EnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		log.Warn("invalid float in environment, using default", "key", key, "value", v)
	}
	return fallback
}

// GoogleAPIKey returns the Gemini API key from GOOGLE_API_KEY.
// Returns an empty string if unset; callers decide whether that is fatal.
func GoogleAPIKey() string {
	return os.Getenv("GOOGLE_API_KEY")
}

// RedisAddr returns the redis address for history archival from REDIS_ADDR.
// An empty value disables archival.
func RedisAddr() string {
	return os.Getenv("REDIS_ADDR")
}

// ListenAddr returns the gateway listen address from LISTEN_ADDR or default.
func ListenAddr() string {
	return Env("LISTEN_ADDR", DefaultListenAddr)
}

// PersonaDir returns the persona YAML directory from PERSONA_DIR.
// Empty means built-in personas only.
func PersonaDir() string {
	return os.Getenv("PERSONA_DIR")
}
