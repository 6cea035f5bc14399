package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port   string
	AppEnv string

	// Comma-separated origin allowlist. Empty means wildcard outside
	// production.
	CORSOrigins []string

	// Redis address; empty falls back to the in-memory store (dev only).
	RedisURL string

	ImageProvider    string // mock | huggingface | openai
	EnableFallback   bool
	FallbackProvider string // huggingface | openai
	OpenAIKey        string
	HuggingFaceKey   string
}

// Load reads configuration from the environment. A .env file is honored
// when present but never required.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:             getEnv("PORT", "8080"),
		AppEnv:           getEnv("APP_ENV", "development"),
		CORSOrigins:      splitCSV(os.Getenv("CORS_ORIGIN")),
		RedisURL:         os.Getenv("REDIS_URL"),
		ImageProvider:    getEnv("IMAGE_PROVIDER", "mock"),
		EnableFallback:   getBool("ENABLE_FALLBACK", false),
		FallbackProvider: os.Getenv("FALLBACK_PROVIDER"),
		OpenAIKey:        os.Getenv("OPENAI_API_KEY"),
		HuggingFaceKey:   os.Getenv("HUGGINGFACE_API_KEY"),
	}
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func splitCSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
