package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment        string
	Domains            []string
	CertCacheDir       string
	HTTPPort           string
	HTTPSPort          string
	MaxDocumentBytes   int64
	ContextBudgetWords int
	OverlapWords       int
	ConcurrencyLimit   int
	RetryAttempts      int
	RetryBaseDelay     time.Duration
	CallTimeout        time.Duration
	JobTimeout         time.Duration
	JobRetention       time.Duration
	SweepInterval      time.Duration
	ProviderRPS        float64
	OpenAIAPIURL       string
	OpenAIAPIKey       string
	OpenAIModel        string
	MaxOutputTokens    int
	DatabaseURL        string
	LogDir             string
}

var isTest bool

func init() {
	isTest = os.Getenv("GO_ENVIRONMENT") == "test"
	if !isTest {
		err := godotenv.Load()
		if err != nil {
			log.Println("Warning: Error loading .env file:", err)
		}
	}
}

func Load() Config {
	return Config{
		Environment:        getEnv("ENVIRONMENT", "development"),
		Domains:            []string{getEnv("DOMAIN", "example.com")},
		CertCacheDir:       getEnv("CERT_CACHE_DIR", "/etc/letsencrypt/live/example.com"),
		HTTPPort:           getEnv("HTTP_PORT", "8086"),
		HTTPSPort:          getEnv("HTTPS_PORT", "443"),
		MaxDocumentBytes:   int64(getEnvAsInt("MAX_DOCUMENT_MB", 50)) << 20,
		ContextBudgetWords: getEnvAsInt("CONTEXT_BUDGET_WORDS", 3000),
		OverlapWords:       getEnvAsInt("CHUNK_OVERLAP_WORDS", 1000),
		ConcurrencyLimit:   getEnvAsInt("CONCURRENCY_LIMIT", 5),
		RetryAttempts:      getEnvAsInt("RETRY_ATTEMPTS", 3),
		RetryBaseDelay:     time.Duration(getEnvAsInt("RETRY_BASE_DELAY_MS", 2000)) * time.Millisecond,
		CallTimeout:        time.Duration(getEnvAsInt("PROVIDER_CALL_TIMEOUT", 120)) * time.Second,
		JobTimeout:         time.Duration(getEnvAsInt("JOB_TIMEOUT", 900)) * time.Second,
		JobRetention:       time.Duration(getEnvAsInt("JOB_RETENTION", 3600)) * time.Second,
		SweepInterval:      time.Duration(getEnvAsInt("SWEEP_INTERVAL", 300)) * time.Second,
		ProviderRPS:        getEnvAsFloat("PROVIDER_RPS", 2),
		OpenAIAPIURL:       getEnv("OPENAI_API_URL", "https://api.openai.com/v1/chat/completions"),
		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:        getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		MaxOutputTokens:    getEnvAsInt("MAX_OUTPUT_TOKENS", 1024),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		LogDir:             getEnv("LOG_DIR", "logs"),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}
