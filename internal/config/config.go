package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Auction  AuctionConfig
	App      AppConfig
}

// DatabaseConfig holds database connection settings. Driver is either
// "sqlite" (default, file-backed like the lab deployments) or "postgres".
type DatabaseConfig struct {
	Driver     string
	SQLitePath string
	Host       string
	Port       string
	User       string
	Password   string
	DBName     string
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port string
}

// AuctionConfig holds the experiment parameters.
type AuctionConfig struct {
	TotalRounds          int
	RequiredParticipants int
	TierBoundary         int
	RandomizeRoles       bool
	RandomSeed           int64
}

// AppConfig holds application-specific settings
type AppConfig struct {
	JWTSecret           string
	RequireSessionToken bool
	AllowedOrigins      []string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", "sqlite"),
			SQLitePath: getEnv("SQLITE_PATH", "auction.db"),
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnv("DB_PORT", "5432"),
			User:       getEnv("DB_USER", "postgres"),
			Password:   getEnv("DB_PASSWORD", ""),
			DBName:     getEnv("DB_NAME", "water_auction"),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "5000"),
		},
		Auction: AuctionConfig{
			TotalRounds:          getEnvInt("AUCTION_TOTAL_ROUNDS", 8),
			RequiredParticipants: getEnvInt("AUCTION_REQUIRED_PARTICIPANTS", 4),
			TierBoundary:         getEnvInt("AUCTION_TIER_BOUNDARY", 10),
			RandomizeRoles:       getEnvBool("AUCTION_RANDOMIZE_ROLES", false),
			RandomSeed:           int64(getEnvInt("AUCTION_RANDOM_SEED", 0)),
		},
		App: AppConfig{
			JWTSecret:           getEnv("JWT_SECRET", ""),
			RequireSessionToken: getEnvBool("AUCTION_REQUIRE_SESSION_TOKEN", false),
			AllowedOrigins:      splitList(getEnv("ALLOWED_ORIGINS", "*")),
		},
	}

	// Validate required fields
	if config.Auction.TotalRounds <= 0 {
		return nil, fmt.Errorf("AUCTION_TOTAL_ROUNDS must be positive")
	}
	if config.Auction.RequiredParticipants <= 0 {
		return nil, fmt.Errorf("AUCTION_REQUIRED_PARTICIPANTS must be positive")
	}
	if config.Auction.TierBoundary <= 0 {
		return nil, fmt.Errorf("AUCTION_TIER_BOUNDARY must be positive")
	}
	if config.App.RequireSessionToken && config.App.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required when AUCTION_REQUIRE_SESSION_TOKEN is enabled")
	}
	switch config.Database.Driver {
	case "sqlite", "postgres":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", config.Database.Driver)
	}

	return config, nil
}

// GetDSN returns the PostgreSQL connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt gets an integer environment variable with a fallback default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

// getEnvBool gets a boolean environment variable with a fallback default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
