package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds every tunable the service reads. It is built once at process
// start and passed by pointer; nothing reads the environment after LoadConfig
// returns.
type Config struct {
	// Backend selection: when Local is true the service talks to Ollama and a
	// plain-HTTP OpenSearch with no request signing.
	Local bool

	// Vector store
	OpenSearchURL  string
	IndexName      string
	OpenSearchUser string
	OpenSearchPass string
	PoolSize       int

	// Object storage
	S3Bucket  string
	LocalRoot string
	AWSRegion string

	// Models
	GeminiAPIKey string
	ChatModel    string
	EmbedModel   string
	OllamaURL    string
	Temperature  float32

	// Ingestion
	RasterDPI float64

	// HTTP server
	Port        string
	GinMode     string
	CORSOrigins []string

	// Background worker
	RedisAddr         string
	RedisPassword     string
	WorkerConcurrency int

	LogLevel string
}

// LoadConfig reads the environment (and .env if present) into an immutable
// Config. Required fields are validated here so components can assume they
// are set.
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		Local:             getEnvBool("LOCAL", false),
		OpenSearchURL:     getEnv("OPENSEARCH_URL", "http://localhost:9200"),
		IndexName:         getEnv("INDEX_NAME", "doc-pages"),
		OpenSearchUser:    getEnv("OPENSEARCH_USER", ""),
		OpenSearchPass:    getEnv("OPENSEARCH_PASSWORD", ""),
		PoolSize:          getEnvInt("OPENSEARCH_POOL_SIZE", 20),
		S3Bucket:          getEnv("S3_BUCKET", ""),
		LocalRoot:         getEnv("LOCAL_STORAGE_ROOT", "."),
		AWSRegion:         getEnv("AWS_REGION", "us-east-1"),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		ChatModel:         getEnv("CHAT_MODEL", "gemini-2.0-flash"),
		EmbedModel:        getEnv("EMBED_MODEL", "text-embedding-004"),
		OllamaURL:         getEnv("OLLAMA_URL", "http://localhost:11434"),
		Temperature:       getEnvFloat32("MODEL_TEMP", 0.0),
		RasterDPI:         getEnvFloat64("RASTER_DPI", 150),
		Port:              getEnv("PORT", "8080"),
		GinMode:           getEnv("GIN_MODE", "debug"),
		CORSOrigins:       strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 20),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}

	// Validate required fields
	if !cfg.Local && cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required unless LOCAL=1")
	}

	if !cfg.Local && cfg.S3Bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET is required unless LOCAL=1")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatValue)
		}
	}
	return defaultValue
}

func getEnvFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
