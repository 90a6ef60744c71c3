// internal/platform/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Store backends.
const (
	BackendMongo  = "mongo"
	BackendMemory = "memory"
)

// Server captures the settings of cmd/server.
type Server struct {
	Addr           string
	StoreBackend   string
	MongoURI       string
	MongoDatabase  string
	JournalDSN     string
	LogLevel       string
	RateLimitRPS   float64
	RateLimitBurst int
	OTLPEndpoint   string
	ServiceName    string
}

// FromEnv builds a Server config from environment variables.
func FromEnv() (Server, error) {
	cfg := Server{
		Addr:          getEnv("MEDIATHEQUE_ADDR", ":5000"),
		StoreBackend:  getEnv("STORE_BACKEND", BackendMongo),
		MongoURI:      getEnv("MONGO_URI", "mongodb://mongo:27017/"),
		MongoDatabase: getEnv("MONGO_DATABASE", "mediathequeprojet"),
		JournalDSN:    getEnv("JOURNAL_DATABASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		OTLPEndpoint:  getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:   getEnv("OTEL_SERVICE_NAME", "mediatheque"),
	}

	rps, err := strconv.ParseFloat(getEnv("RATE_LIMIT_RPS", "50"), 64)
	if err != nil || rps < 0 {
		return Server{}, fmt.Errorf("invalid RATE_LIMIT_RPS: %q", os.Getenv("RATE_LIMIT_RPS"))
	}
	burst, err := strconv.Atoi(getEnv("RATE_LIMIT_BURST", "100"))
	if err != nil || burst < 1 {
		return Server{}, fmt.Errorf("invalid RATE_LIMIT_BURST: %q", os.Getenv("RATE_LIMIT_BURST"))
	}
	cfg.RateLimitRPS = rps
	cfg.RateLimitBurst = burst

	switch cfg.StoreBackend {
	case BackendMongo, BackendMemory:
	default:
		return Server{}, fmt.Errorf("invalid STORE_BACKEND: %q", cfg.StoreBackend)
	}
	return cfg, nil
}

// Expire captures the settings of cmd/expire.
type Expire struct {
	BaseURL  string
	LogLevel string
}

func ExpireFromEnv() Expire {
	return Expire{
		BaseURL:  getEnv("MEDIATHEQUE_URL", "http://localhost:5000"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
