package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL  string
	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string
	BucketName   string

	CrawlAPIURL string
	CrawlAPIKey string
	MaxPages    int
	MaxDepth    int

	AIAPIKey   string
	EmbedModel string
	EmbedDim   int

	ChunkStrategy  string // "paragraph", "sentence" or "words"
	ChunkMaxTokens int

	RefreshSchedule string // cron expression
	RefreshSecret   string // shared secret for the scheduled trigger
	IngestWorkers   int

	Port string
}

// LoadConfig loads the environment variables and returns config
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		AwsAccessKey: getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey: getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:    getEnv("AWS_REGION", "us-east-2"),
		BucketName:   getEnv("BUCKET_NAME", "ingesta-docs"),

		CrawlAPIURL: getEnv("CRAWL_API_URL", "https://api.firecrawl.dev/v1"),
		CrawlAPIKey: getEnv("CRAWL_API_KEY", ""),
		MaxPages:    getEnvInt("CRAWL_MAX_PAGES", 50),
		MaxDepth:    getEnvInt("CRAWL_MAX_DEPTH", 3),

		AIAPIKey:   getEnv("GEMINI_API_KEY", ""),
		EmbedModel: getEnv("EMBED_MODEL", "text-embedding-004"),
		EmbedDim:   getEnvInt("EMBED_DIM", 768),

		ChunkStrategy:  getEnv("CHUNK_STRATEGY", "paragraph"),
		ChunkMaxTokens: getEnvInt("CHUNK_MAX_TOKENS", 512),

		RefreshSchedule: getEnv("REFRESH_SCHEDULE", "0 3 * * *"),
		RefreshSecret:   getEnv("REFRESH_SECRET", ""),
		IngestWorkers:   getEnvInt("INGEST_WORKERS", 4),

		Port: getEnv("PORT", "8080"),
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}
	if cfg.RefreshSecret == "" {
		log.Fatal("REFRESH_SECRET not set")
	}

	return cfg
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}
