package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	DatabaseURL string
	Port        string
	Environment string
	RedisURL    string // empty disables distributed locking

	// Retailer price feed
	PriceFeedURL       string
	PriceFeedAPIKey    string
	PriceFeedRetailers []string // empty means every retailer the feed lists

	// SMTP settings for price-drop emails
	EmailHost     string
	EmailPort     int
	EmailUser     string
	EmailPassword string
	FromEmail     string

	NotifyCooldown time.Duration
	DropThreshold  decimal.Decimal
	MinPSUWattage  decimal.Decimal

	AllocationMode string // "random" or "midpoint"
	AllocationSeed int64
	StrictCase     bool

	CatalogTTL time.Duration
}

func Load() *Config {
	defaultDSN := "root:password@tcp(127.0.0.1:3306)/pc_agent_db?charset=utf8mb4&parseTime=True&loc=Local"

	return &Config{
		DatabaseURL: getEnv("DATABASE_URL", defaultDSN),
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		RedisURL:    getEnv("REDIS_URL", ""),

		PriceFeedURL:       getEnv("PRICE_FEED_URL", ""),
		PriceFeedAPIKey:    getEnv("PRICE_FEED_API_KEY", ""),
		PriceFeedRetailers: getEnvList("PRICE_FEED_RETAILERS"),

		EmailHost:     getEnv("EMAIL_HOST", "smtp.gmail.com"),
		EmailPort:     getEnvInt("EMAIL_PORT", 587),
		EmailUser:     getEnv("EMAIL_USER", ""),
		EmailPassword: getEnv("EMAIL_PASSWORD", ""),
		FromEmail:     getEnv("FROM_EMAIL", "noreply@pcbuilder.local"),

		NotifyCooldown: getEnvDuration("NOTIFY_COOLDOWN", 24*time.Hour),
		DropThreshold:  getEnvDecimal("DROP_THRESHOLD", decimal.NewFromFloat(0.05)),
		MinPSUWattage:  getEnvDecimal("MIN_PSU_WATTAGE", decimal.NewFromInt(450)),

		AllocationMode: getEnv("ALLOCATION_MODE", "random"),
		AllocationSeed: int64(getEnvInt("ALLOCATION_SEED", 0)),
		StrictCase:     getEnvBool("STRICT_CASE", false),

		CatalogTTL: getEnvDuration("CATALOG_TTL", time.Minute),
	}
}

// IsDevelopment reports whether verbose logging should be enabled.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if d, err := decimal.NewFromString(os.Getenv(key)); err == nil && d.IsPositive() {
		return d
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
