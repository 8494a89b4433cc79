package config

import (
	"fmt"
	"os"
	"strconv"

	// Load environment variables from .env files when present.
	_ "github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Billing       BillingConfig
	Import        ImportConfig
	Observability ObservabilityConfig
}

type ServerConfig struct {
	Host               string
	Port               int
	BaseURL            string
	RateLimitPerSecond int
	RateLimitBurst     int
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// BillingConfig carries the settlement requisites printed on receipts and the
// fallback charge amounts used when a period has no explicit tariff.
type BillingConfig struct {
	BankAccount         string
	BankBIK             string
	BankName            string
	RecipientINN        string
	DefaultMembership   string // fallback membership fee, rubles
	DefaultElectricityK string // fallback electricity price per kWh, rubles
}

type ImportConfig struct {
	MaxFileSizeBytes int64
	MaxRows          int
	PreviewRowCap    int
}

type ObservabilityConfig struct {
	MetricsEnabled  bool
	MetricsPort     int
	DebtSnapshotJob string // cron spec, empty disables the job
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:               getEnv("SERVER_HOST", "localhost"),
			Port:               getEnvAsInt("SERVER_PORT", 8080),
			BaseURL:            getEnv("BASE_URL", "http://localhost:8080"),
			RateLimitPerSecond: getEnvAsInt("SERVER_RATE_LIMIT_PER_SECOND", 100),
			RateLimitBurst:     getEnvAsInt("SERVER_RATE_LIMIT_BURST", 200),
		},
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvAsInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", "postgres"),
			Database: getEnv("POSTGRES_DB", "snt-dev"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		Billing: BillingConfig{
			BankAccount:         getEnv("BILLING_BANK_ACCOUNT", ""),
			BankBIK:             getEnv("BILLING_BANK_BIK", ""),
			BankName:            getEnv("BILLING_BANK_NAME", ""),
			RecipientINN:        getEnv("BILLING_RECIPIENT_INN", ""),
			DefaultMembership:   getEnv("BILLING_DEFAULT_MEMBERSHIP", "1500"),
			DefaultElectricityK: getEnv("BILLING_DEFAULT_ELECTRICITY_KWH", "6.50"),
		},
		Import: ImportConfig{
			MaxFileSizeBytes: getEnvAsInt64("IMPORT_MAX_FILE_SIZE", 10<<20),
			MaxRows:          getEnvAsInt("IMPORT_MAX_ROWS", 20000),
			PreviewRowCap:    getEnvAsInt("IMPORT_PREVIEW_ROW_CAP", 200),
		},
		Observability: ObservabilityConfig{
			MetricsEnabled:  getEnvAsBool("METRICS_ENABLED", true),
			MetricsPort:     getEnvAsInt("METRICS_PORT", 9090),
			DebtSnapshotJob: getEnv("DEBT_SNAPSHOT_JOB", "0 2 * * *"),
		},
	}

	return cfg, nil
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
