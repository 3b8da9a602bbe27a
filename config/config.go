package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// DefaultWebhookURL is the automation endpoint that receives confirmed enrollments
	DefaultWebhookURL = "https://aaqibabbas03.app.n8n.cloud/webhook-test/ea8546ad-fadc-4207-a41a-576ebcd7cb74"

	// DefaultSchedulingWidgetURL is the embedded appointment calendar
	DefaultSchedulingWidgetURL = "https://calendar.google.com/calendar/u/0/appointments/schedules/AcZssZ3PR-1ThwqqJ07Q1Ij4zFxoSYJhR6RktilNAnFvwFqTgPGZLUT7gQXRKQA1cdKIQg4g0f6Lon4D"
)

// This function will Load the ENVIRONMENT VARIABLES from .env if GO_ENV variable is not set
func LoadENV() error {
	goEnv := os.Getenv("GO_ENV")

	if goEnv == "" || goEnv == "development" {
		// A missing .env is fine in development, variables may come from the shell
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	return nil
}

type EnvironmentVariable struct {
	// All variables
	GO_ENV       string
	DB_DRIVER    string
	DB_USER_NAME string
	DB_PASSWORD  string
	DB_NAME      string
	DB_HOST      string
	DB_PORT      string
	DB_SSL_MODE  string
	PORT         int
	// HTTP
	ALLOWED_ORIGINS string
	// Redis Configuration
	REDIS_URL string
	// Enrollment workflow
	WEBHOOK_URL           string
	SCHEDULING_WIDGET_URL string
	SUCCESS_RESET_DELAY   time.Duration
	SESSION_TTL           time.Duration
	// Kafka event sink (optional)
	KAFKA_BROKERS []string
	KAFKA_TOPIC   string
	// Background jobs
	CRON_ENABLED bool
}

func Get() (*EnvironmentVariable, error) {

	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err != nil {
		port = 8080
	}

	resetSeconds, err := strconv.Atoi(os.Getenv("SUCCESS_RESET_SECONDS"))
	if err != nil || resetSeconds <= 0 {
		resetSeconds = 3
	}

	sessionMinutes, err := strconv.Atoi(os.Getenv("SESSION_TTL_MINUTES"))
	if err != nil || sessionMinutes <= 0 {
		sessionMinutes = 60
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}

	envVariables := &EnvironmentVariable{
		GO_ENV:       os.Getenv("GO_ENV"),
		DB_DRIVER:    getEnvOrDefault("DB_DRIVER", "gorm"),
		DB_USER_NAME: os.Getenv("DB_USER_NAME"),
		DB_PASSWORD:  os.Getenv("DB_PASSWORD"),
		DB_NAME:      os.Getenv("DB_NAME"),
		DB_HOST:      getEnvOrDefault("DB_HOST", "localhost"),
		DB_PORT:      getEnvOrDefault("DB_PORT", "5432"),
		DB_SSL_MODE:  getEnvOrDefault("DB_SSL_MODE", "disable"),
		PORT:         port,
		// HTTP
		ALLOWED_ORIGINS: getEnvOrDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000"),
		// Redis
		REDIS_URL: os.Getenv("REDIS_URL"),
		// Enrollment
		WEBHOOK_URL:           getEnvOrDefault("WEBHOOK_URL", DefaultWebhookURL),
		SCHEDULING_WIDGET_URL: getEnvOrDefault("SCHEDULING_WIDGET_URL", DefaultSchedulingWidgetURL),
		SUCCESS_RESET_DELAY:   time.Duration(resetSeconds) * time.Second,
		SESSION_TTL:           time.Duration(sessionMinutes) * time.Minute,
		// Kafka
		KAFKA_BROKERS: brokers,
		KAFKA_TOPIC:   getEnvOrDefault("KAFKA_TOPIC", "enrollment-events"),
		// Cron, enabled unless explicitly turned off
		CRON_ENABLED: os.Getenv("CRON_ENABLED") != "false",
	}

	return envVariables, nil
}

// getEnvOrDefault returns the environment variable value or a default
func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
