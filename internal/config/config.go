package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	CORS     CORSConfig
	Game     GameConfig
	Orders   OrderConfig
	Costs    CostConfig
	Market   MarketConfig
	Logging  LoggingConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port string
	Host string
	Addr string // Combined host:port for convenience
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Path string
}

// CORSConfig holds CORS-specific configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// GameConfig holds the defaults applied to newly created games.
type GameConfig struct {
	InitialCapital decimal.Decimal
	Currency       string
	TotalDays      int
	Venue          string
}

// OrderConfig holds order sanity limits. Zero disables a limit.
type OrderConfig struct {
	MaxQuantity int64
	MaxPrice    decimal.Decimal
}

// CostConfig points to an optional YAML cost schedule.
// An empty path means the built-in schedule.
type CostConfig struct {
	SchedulePath string
}

// MarketConfig holds price-source configuration.
type MarketConfig struct {
	BaseURL      string
	SymbolSuffix string
	Timeout      time.Duration
	// RefreshSchedule is a cron spec for refreshing mark prices of active games.
	// Empty disables the scheduler.
	RefreshSchedule string
}

// LoggingConfig holds zerolog settings.
type LoggingConfig struct {
	Level  string
	Format string // "json" or "console"
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	initialCapital, err := getEnvDecimal("GAME_INITIAL_CAPITAL", "1000000")
	if err != nil {
		return nil, err
	}
	totalDays, err := getEnvInt("GAME_TOTAL_DAYS", 30)
	if err != nil {
		return nil, err
	}
	maxQuantity, err := getEnvInt("ORDER_MAX_QUANTITY", 10000)
	if err != nil {
		return nil, err
	}
	maxPrice, err := getEnvDecimal("ORDER_MAX_PRICE", "100000")
	if err != nil {
		return nil, err
	}
	timeout, err := time.ParseDuration(getEnv("MARKET_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid MARKET_TIMEOUT: %w", err)
	}

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "5001"),
			Host: getEnv("SERVER_HOST", "localhost"),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/trading_simulator.db"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost")),
		},
		Game: GameConfig{
			InitialCapital: initialCapital,
			Currency:       strings.ToUpper(getEnv("GAME_CURRENCY", "INR")),
			TotalDays:      totalDays,
			Venue:          strings.ToUpper(getEnv("GAME_VENUE", "NSE")),
		},
		Orders: OrderConfig{
			MaxQuantity: int64(maxQuantity),
			MaxPrice:    maxPrice,
		},
		Costs: CostConfig{
			SchedulePath: os.Getenv("COST_SCHEDULE_PATH"),
		},
		Market: MarketConfig{
			BaseURL:         getEnv("MARKET_BASE_URL", "https://query2.finance.yahoo.com"),
			SymbolSuffix:    getEnv("MARKET_SYMBOL_SUFFIX", ".NS"),
			Timeout:         timeout,
			RefreshSchedule: getEnv("MARK_REFRESH_SCHEDULE", "0 18 * * 1-5"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Combine host and port
	config.Server.Addr = fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port)

	return config, nil
}

// Validate checks values that have no meaningful fallback.
func (c *Config) Validate() error {
	if !c.Game.InitialCapital.IsPositive() {
		return fmt.Errorf("GAME_INITIAL_CAPITAL must be positive, got %s", c.Game.InitialCapital)
	}
	if c.Game.TotalDays <= 0 {
		return fmt.Errorf("GAME_TOTAL_DAYS must be positive, got %d", c.Game.TotalDays)
	}
	if c.Orders.MaxQuantity < 0 || c.Orders.MaxPrice.IsNegative() {
		return fmt.Errorf("order limits must not be negative")
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvDecimal(key, defaultValue string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(getEnv(key, defaultValue))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
