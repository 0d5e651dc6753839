package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort    string
	DatabaseURL string
	LogLevel    string
	JWTSecret   string

	// Completion provider (OpenAI-compatible gateway).
	OpenAIAPIKey  string
	OpenAIBaseURL string
	ChatModel     string

	// External enrichment providers. Optional: a missing key degrades
	// the corresponding component to empty results instead of failing.
	SerpAPIKey      string
	PlacesAPIKey    string
	StripeSecretKey string

	FreeMessagesPerDay int
}

var AppConfig Config

func LoadConfig() {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = Config{
		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", "sme_agent.db"),
		LogLevel:    getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:   getEnv("JWT_SECRET", ""),

		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://ai.gateway.lovable.dev/v1"),
		ChatModel:     getEnv("CHAT_MODEL", "google/gemini-2.5-flash"),

		SerpAPIKey:      getEnv("SERP_API_KEY", ""),
		PlacesAPIKey:    getEnv("GOOGLE_PLACES_API_KEY", ""),
		StripeSecretKey: getEnv("STRIPE_SECRET_KEY", ""),

		FreeMessagesPerDay: getEnvAsInt("FREE_MESSAGES_PER_DAY", 3),
	}

	if AppConfig.JWTSecret == "" {
		log.Println("Warning: JWT_SECRET not set, all chat requests will be treated as anonymous")
	}
	if AppConfig.SerpAPIKey == "" {
		log.Println("Warning: SERP_API_KEY not set, web search will return no candidates")
	}
	if AppConfig.PlacesAPIKey == "" {
		log.Println("Warning: GOOGLE_PLACES_API_KEY not set, candidates will rank without ratings")
	}
	if AppConfig.StripeSecretKey == "" {
		log.Println("Warning: STRIPE_SECRET_KEY not set, all users will be treated as unsubscribed")
	}
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
