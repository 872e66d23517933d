package config

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	MongoURI    string
	DBName      string
	Environment string
	AppId       string

	// ReportDBURI points at the Postgres database holding the historical
	// report tables and the stream-event tables.
	ReportDBURI string

	// Advertising platform credentials.
	AdsClientID     string
	AdsClientSecret string
	AdsRefreshToken string
	AdsProfileID    string
	AdsEndpoint     string
	LWAEndpoint     string

	// AIKeys is the credential pool for the relevance-classification
	// service, rotated round-robin between batches.
	AIKeys     []string
	AIEndpoint string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	} else {
		log.Println("Loaded .env file successfully")
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:      getEnv("DB_NAME", "adpilot"),
		Environment: getEnv("ENVIRONMENT", "development"),
		AppId:       getEnv("APP_ID", "adpilot"),

		ReportDBURI: getEnv("REPORT_DB_URI", "postgres://localhost:5432/ads_reports?sslmode=disable"),

		AdsClientID:     getEnv("ADS_CLIENT_ID", ""),
		AdsClientSecret: getEnv("ADS_CLIENT_SECRET", ""),
		AdsRefreshToken: getEnv("ADS_REFRESH_TOKEN", ""),
		AdsProfileID:    getEnv("ADS_PROFILE_ID", ""),
		AdsEndpoint:     getEnv("ADS_ENDPOINT", "https://advertising-api.amazon.com"),
		LWAEndpoint:     getEnv("LWA_ENDPOINT", "https://api.amazon.com/auth/o2/token"),

		AIKeys:     splitList(getEnv("AI_API_KEYS", "")),
		AIEndpoint: getEnv("AI_ENDPOINT", "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash:generateContent"),
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
