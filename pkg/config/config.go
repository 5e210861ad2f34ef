package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Log          LogConfig
	Organization OrganizationConfig
	Engine       EngineConfig
	Calendar     CalendarConfig
	Operator     OperatorConfig
}

type ServerConfig struct {
	Port         string
	Mode         string
	ReadTimeout  int
	WriteTimeout int
}

type DatabaseConfig struct {
	Path string
}

type LogConfig struct {
	Level  string
	Format string
}

// OrganizationConfig describes the company running the console.
type OrganizationConfig struct {
	Timezone           *time.Location
	TimezoneName       string
	Domains            []string
	OwnerEmail         string
	DefaultCountryCode string
	MinPhoneDigits     int
}

type EngineConfig struct {
	ScanDays          int
	SnoozeDays        int
	Concurrency       int
	Workers           int
	GenerationCron    string
	WorkerPollSeconds int
}

type CalendarConfig struct {
	Source         string
	CalDAVURL      string
	CalDAVUsername string
	CalDAVPassword string
	CalDAVToken    string
	CalDAVPath     string
	ICSURL         string
}

type OperatorConfig struct {
	Token string
}

var AppConfig *Config

// Load loads configuration from .env file and environment variables
func Load() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	tzName := getEnv("ORG_TIMEZONE", "America/Mexico_City")
	tz, err := time.LoadLocation(tzName)
	if err != nil {
		return fmt.Errorf("invalid ORG_TIMEZONE: %w", err)
	}

	AppConfig = &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Mode:         getEnv("GIN_MODE", "release"),
			ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./salesconsole.db"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Organization: OrganizationConfig{
			Timezone:           tz,
			TimezoneName:       tzName,
			Domains:            getEnvAsList("ORG_DOMAINS", nil),
			OwnerEmail:         strings.ToLower(getEnv("CALENDAR_OWNER_EMAIL", "")),
			DefaultCountryCode: strings.TrimPrefix(getEnv("DEFAULT_COUNTRY_CODE", "52"), "+"),
			MinPhoneDigits:     getEnvAsInt("MIN_PHONE_DIGITS", 10),
		},
		Engine: EngineConfig{
			ScanDays:          getEnvAsInt("SCAN_DAYS", 21),
			SnoozeDays:        getEnvAsInt("SNOOZE_DAYS", 1),
			Concurrency:       getEnvAsInt("GENERATION_CONCURRENCY", 4),
			Workers:           getEnvAsInt("GENERATION_WORKERS", 1),
			GenerationCron:    getEnv("GENERATION_CRON", ""),
			WorkerPollSeconds: getEnvAsInt("WORKER_POLL_SECONDS", 10),
		},
		Calendar: CalendarConfig{
			Source:         getEnv("CALENDAR_SOURCE", "caldav"),
			CalDAVURL:      getEnv("CALDAV_URL", ""),
			CalDAVUsername: getEnv("CALDAV_USERNAME", ""),
			CalDAVPassword: getEnv("CALDAV_PASSWORD", ""),
			CalDAVToken:    getEnv("CALDAV_BEARER_TOKEN", ""),
			CalDAVPath:     getEnv("CALDAV_CALENDAR_PATH", ""),
			ICSURL:         getEnv("ICS_URL", ""),
		},
		Operator: OperatorConfig{
			Token: getEnv("OPERATOR_TOKEN", ""),
		},
	}

	if AppConfig.Engine.ScanDays < 1 {
		return fmt.Errorf("SCAN_DAYS must be positive, got %d", AppConfig.Engine.ScanDays)
	}

	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable into lower-cased, trimmed entries
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var items []string
	for _, part := range strings.Split(value, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			items = append(items, part)
		}
	}
	return items
}
