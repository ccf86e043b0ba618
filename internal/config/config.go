package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	settlement "delivery-settlement/internal/settlement/domain"
)

// Config is the service configuration.
type Config struct {
	DatabaseURL       string                     `yaml:"database_url"`
	OrdersDatabaseURL string                     `yaml:"orders_database_url"`
	HTTPAddr          string                     `yaml:"http_addr"`
	LogLevel          string                     `yaml:"log_level"`
	JWTSecret         string                     `yaml:"-"`
	InitSchema        bool                       `yaml:"init_schema"`
	Payables          PayablesConfig             `yaml:"payables"`
	Accounts          settlement.ExpenseAccounts `yaml:"accounts"`
	Concurrency       int                        `yaml:"concurrency"`
	Schedule          ScheduleConfig             `yaml:"schedule"`
}

// PayablesConfig locates the accounts-payable API. An empty base URL keeps
// bills in process.
type PayablesConfig struct {
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"-"`
}

// ScheduleConfig holds UTC trigger times in the "15:04" layout.
type ScheduleConfig struct {
	WeeklyDay    string `yaml:"weekly_day"`
	WeeklyAt     string `yaml:"weekly_at"`
	DailyResetAt string `yaml:"daily_reset_at"`
}

// Load reads .env when present, then the YAML file named by
// SETTLEMENT_CONFIG, then environment overrides.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		HTTPAddr:    ":8080",
		LogLevel:    "info",
		InitSchema:  true,
		Accounts:    settlement.DefaultExpenseAccounts(),
		Concurrency: 4,
		Schedule: ScheduleConfig{
			WeeklyDay:    "monday",
			WeeklyAt:     "02:00",
			DailyResetAt: "00:00",
		},
	}

	if path := os.Getenv("SETTLEMENT_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.DatabaseURL = getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", cfg.DatabaseURL))
	cfg.OrdersDatabaseURL = getenvDefault("ORDERS_DATABASE_URL", cfg.OrdersDatabaseURL)
	cfg.HTTPAddr = getenvDefault("HTTP_ADDR", cfg.HTTPAddr)
	cfg.LogLevel = getenvDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.JWTSecret = getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", ""))
	cfg.InitSchema = getenvBoolDefault("INIT_SCHEMA", cfg.InitSchema)
	cfg.Payables.BaseURL = getenvDefault("PAYABLES_BASE_URL", cfg.Payables.BaseURL)
	cfg.Payables.Token = getenvDefault("PAYABLES_TOKEN", "")
	cfg.Accounts.CourierCommission = getenvDefault("COURIER_EXPENSE_ACCOUNT", cfg.Accounts.CourierCommission)
	cfg.Accounts.RestaurantPayment = getenvDefault("RESTAURANT_EXPENSE_ACCOUNT", cfg.Accounts.RestaurantPayment)
	cfg.Concurrency = getenvIntDefault("SETTLEMENT_CONCURRENCY", cfg.Concurrency)
	cfg.Schedule.WeeklyDay = getenvDefault("SETTLEMENT_WEEKLY_DAY", cfg.Schedule.WeeklyDay)
	cfg.Schedule.WeeklyAt = getenvDefault("SETTLEMENT_WEEKLY_AT", cfg.Schedule.WeeklyAt)
	cfg.Schedule.DailyResetAt = getenvDefault("COURIER_DAILY_RESET_AT", cfg.Schedule.DailyResetAt)

	return cfg, cfg.Validate()
}

// Validate checks required settings.
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("config: DATABASE_URL or PG_DSN is required")
	}
	if c.JWTSecret == "" {
		return errors.New("config: AUTH_JWT_SECRET is required")
	}
	if c.Concurrency < 1 {
		return errors.New("config: settlement concurrency must be positive")
	}
	if _, err := c.Schedule.Weekday(); err != nil {
		return err
	}
	for _, at := range []string{c.Schedule.WeeklyAt, c.Schedule.DailyResetAt} {
		if at == "" {
			continue
		}
		if _, err := time.Parse("15:04", at); err != nil {
			return fmt.Errorf("config: invalid schedule time %q", at)
		}
	}
	return nil
}

// OrdersURL returns the order platform database URL, defaulting to the
// service database.
func (c Config) OrdersURL() string {
	if c.OrdersDatabaseURL != "" {
		return c.OrdersDatabaseURL
	}
	return c.DatabaseURL
}

// Weekday parses the weekly run day.
func (s ScheduleConfig) Weekday() (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(s.WeeklyDay))
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.ToLower(d.String()) == name || strings.ToLower(d.String()[:3]) == name {
			return d, nil
		}
	}
	return time.Monday, fmt.Errorf("config: invalid weekly day %q", s.WeeklyDay)
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBoolDefault(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
