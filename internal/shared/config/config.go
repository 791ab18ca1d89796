package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	CORSAllowOrigin []string
	DatabaseURL     string
	RedisAddr       string

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	InputBucket     string
	OutputBucket    string

	LLMProvider string
	LLMModel    string
	LLMAPIKey   string
	LLMTimeout  time.Duration
	LLMMaxRetry time.Duration

	TranscribeLanguage     string
	TranscribeMaxWait      time.Duration
	TranscribePollInterval time.Duration

	SweepEnabled    bool
	SweepInterval   time.Duration
	ClaimBatchSize  int
	WorkerPoolSize  int
	WorkerQueueSize int

	AutoSeedDemo bool
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	for _, path := range []string{".env", "cmd/.env"} {
		_ = godotenv.Load(path)
	}

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Port:            getEnv("PORT", "8080"),
		Env:             env,
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000")),
		DatabaseURL:     dbURL,
		RedisAddr:       getEnv("REDIS_ADDR", ""),

		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:       getEnv("AWS_REGION", "us-east-1"),
		InputBucket:     getEnv("S3_BUCKET_INPUT", "qa-system-input"),
		OutputBucket:    getEnv("S3_BUCKET_OUTPUT", "qa-system-output"),

		LLMProvider: getEnv("LLM_PROVIDER", "openai"),
		LLMModel:    getEnv("LLM_MODEL", "gpt-4o"),
		LLMAPIKey:   getEnv("OPENAI_API_KEY", ""),
		LLMTimeout:  getDuration("LLM_TIMEOUT", 45*time.Second),
		LLMMaxRetry: getDuration("LLM_MAX_RETRY_TIME", 30*time.Second),

		TranscribeLanguage:     getEnv("TRANSCRIBE_LANGUAGE", "en-US"),
		TranscribeMaxWait:      getDuration("TRANSCRIBE_MAX_WAIT", 15*time.Minute),
		TranscribePollInterval: getDuration("TRANSCRIBE_POLL_INTERVAL", 5*time.Second),

		SweepEnabled:    getBool("SWEEP_ENABLED", true),
		SweepInterval:   getDuration("SWEEP_INTERVAL", time.Hour),
		ClaimBatchSize:  getInt("CLAIM_BATCH_SIZE", 10),
		WorkerPoolSize:  getInt("WORKER_POOL_SIZE", 4),
		WorkerQueueSize: getInt("WORKER_QUEUE_SIZE", 64),

		AutoSeedDemo: getBool("AUTO_SEED_DEMO", false),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("config %s invalid int: %v", key, err)
		return def
	}
	return val
}

func getBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("config %s invalid bool: %v", key, err)
		return def
	}
	return val
}

func getDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("config %s invalid duration: %v", key, err)
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}
