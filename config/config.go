package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"career-coach-backend/internal/domain"

	"github.com/joho/godotenv"
)

type Config struct {
	Port   string
	DBUrl  string
	AppEnv string
	// Clerk session tokens (RS256, verified against the instance JWKS)
	ClerkIssuer  string
	ClerkJWKSURL string
	FrontendURL  string
	// Redis/Upstash Configuration
	UpstashRedisURL      string
	UpstashRedisPassword string
	// Rate Limiting Configuration
	RateLimitWindowSeconds    int
	RateLimitProfileThreshold int
	RateLimitGlobalThreshold  int
	// Kafka (industry insight enrichment events); empty brokers disables publishing
	KafkaBrokers      []string
	KafkaInsightTopic string
	// Upper bound for the profile update transaction
	ProfileTxTimeout time.Duration
}

func LoadConfig() (*Config, error) {
	// .env is only present locally
	_ = godotenv.Load()

	cfg := &Config{
		Port:   getEnv("PORT", "8080"),
		DBUrl:  getEnv("DATABASE_URL", ""),
		AppEnv: getEnv("APP_ENV", "development"),
		// Strip trailing slash so the JWKS path does not double up
		ClerkIssuer:  strings.TrimRight(getEnv("CLERK_ISSUER", ""), "/"),
		ClerkJWKSURL: getEnv("CLERK_JWKS_URL", ""),
		FrontendURL:  strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:3000"), "/"),
		// Redis/Upstash Configuration
		UpstashRedisURL:      getEnv("UPSTASH_REDIS_URL", ""),
		UpstashRedisPassword: getEnv("UPSTASH_REDIS_PASSWORD", ""),
		// Rate Limiting Configuration
		RateLimitWindowSeconds:    getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60),
		RateLimitProfileThreshold: getEnvInt("RATE_LIMIT_PROFILE_THRESHOLD", 20),
		RateLimitGlobalThreshold:  getEnvInt("RATE_LIMIT_GLOBAL_THRESHOLD", 100),
		// Kafka
		KafkaBrokers:      getEnvList("KAFKA_BROKERS"),
		KafkaInsightTopic: getEnv("KAFKA_INSIGHT_TOPIC", "industry_insight.events"),
		ProfileTxTimeout:  getEnvDuration("PROFILE_TX_TIMEOUT", domain.DefaultProfileTxTimeout),
	}

	if cfg.ClerkJWKSURL == "" && cfg.ClerkIssuer != "" {
		cfg.ClerkJWKSURL = cfg.ClerkIssuer + "/.well-known/jwks.json"
	}

	if cfg.DBUrl == "" {
		log.Println("WARNING: DATABASE_URL is missing. Application may fail to connect.")
	}
	if cfg.ClerkJWKSURL == "" {
		log.Println("WARNING: CLERK_ISSUER/CLERK_JWKS_URL not configured. Every session token will be rejected.")
	}
	if cfg.UpstashRedisURL == "" {
		log.Println("WARNING: UPSTASH_REDIS_URL not configured. Rate limiting will use in-memory fallback.")
	}

	return cfg, nil
}

// IsProduction reports whether APP_ENV selects the production profile
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt returns an integer environment variable or fallback if not set/invalid
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("10s", "1500ms") or a bare number of
// milliseconds. Non-positive or malformed values fall back.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil && ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}

// getEnvList splits a comma separated variable, dropping blanks
func getEnvList(key string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
