package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string
	MongoURI    string
	MongoDBName string
	JWTSecret   string

	// Email Configuration
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	FromName     string
	NotifyEmail  string
}

func Load() *Config {
	// .env is optional; deployments usually inject env vars directly
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	smtpPort, _ := strconv.Atoi(getEnv("SMTP_PORT", "2525"))

	return &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", "user:password@tcp(localhost:3306)/unidos?charset=utf8mb4&parseTime=True&loc=Local"),
		MongoURI:    getEnv("MONGODB_URI", "mongodb://127.0.0.1:27017"),
		MongoDBName: getEnv("MONGODB_DB", "unidos"),
		JWTSecret:   getEnv("JWT_SECRET", "your-secret-key"),

		// Email settings
		SMTPHost:     getEnv("SMTP_HOST", "sandbox.smtp.mailtrap.io"),
		SMTPPort:     smtpPort,
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		FromEmail:    getEnv("FROM_EMAIL", "noreply@unidos.org"),
		FromName:     getEnv("FROM_NAME", "Unidos"),
		NotifyEmail:  getEnv("NOTIFY_EMAIL", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
