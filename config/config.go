package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"adledger/database"
	"adledger/models"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// DefaultWalletAddressPattern matches user-friendly TON wallet addresses
const DefaultWalletAddressPattern = `^(EQ|UQ)[a-zA-Z0-9_-]{48}$`

// LedgerRules holds the reward and withdrawal rules enforced by the ledger
type LedgerRules struct {
	WelcomeBonus         decimal.Decimal
	RewardPerAd          decimal.Decimal
	DailyAdLimit         int
	CommissionRate       decimal.Decimal // Fraction of each ad reward paid to the referrer
	ReferrerBonus        decimal.Decimal // One-time bonus paid to the referrer on attach
	ReferredBonus        decimal.Decimal // One-time bonus paid to the new user on attach
	ChannelJoinBonus     decimal.Decimal // One-time bonus for joining the announcement channel
	GroupJoinBonus       decimal.Decimal // One-time bonus for joining the community group
	MinimumWithdrawal    decimal.Decimal
	WalletAddressPattern string
	AdDurationSeconds    int
}

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string
	DatabaseName string

	// Ledger rules
	Ledger LedgerRules

	// Storage and cache behaviour
	StorageTimeout time.Duration
	CacheTTL       time.Duration

	// Redis configuration (read cache, disabled when empty)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// NATS configuration (event stream, disabled when empty)
	NATSServers string

	// HTTP API configuration
	HTTPAddr    string
	AdminAPIKey string

	// Telegram configuration
	TelegramToken       string
	TelegramAdminChatID int64

	// Discord admin channel for withdrawal notices
	DiscordToken          string
	DiscordAdminChannelID string

	// Withdrawal webhook
	WithdrawalWebhookURL     string
	WebhookTimeout           time.Duration
	WithdrawalNotifyInterval time.Duration
	WithdrawalNotifyBatch    int

	// OpenTelemetry configuration
	OTelEnabled              bool
	OTelServiceName          string
	OTelExporterType         string // "console", "otlp" or "none"
	OTelOTLPEndpoint         string
	OTelExportIntervalMillis int

	// Logging
	LogLevel string

	// Environment
	Environment string // "development", "production" or "test"
}

// fileConfig mirrors the optional YAML overlay
type fileConfig struct {
	Ledger struct {
		WelcomeBonus         string `yaml:"welcome_bonus"`
		RewardPerAd          string `yaml:"reward_per_ad"`
		DailyAdLimit         int    `yaml:"daily_ad_limit"`
		CommissionRate       string `yaml:"commission_rate"`
		ReferrerBonus        string `yaml:"referrer_bonus"`
		ReferredBonus        string `yaml:"referred_bonus"`
		ChannelJoinBonus     string `yaml:"channel_join_bonus"`
		GroupJoinBonus       string `yaml:"group_join_bonus"`
		MinimumWithdrawal    string `yaml:"minimum_withdrawal"`
		WalletAddressPattern string `yaml:"wallet_address_pattern"`
		AdDurationSeconds    int    `yaml:"ad_duration_seconds"`
	} `yaml:"ledger"`
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			if os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// DefaultLedgerRules returns the rules used when nothing overrides them
func DefaultLedgerRules() LedgerRules {
	return LedgerRules{
		WelcomeBonus:         decimal.Zero,
		RewardPerAd:          decimal.RequireFromString("0.0005"),
		DailyAdLimit:         50,
		CommissionRate:       decimal.RequireFromString("0.10"),
		ReferrerBonus:        decimal.RequireFromString("0.01"),
		ReferredBonus:        decimal.RequireFromString("0.005"),
		ChannelJoinBonus:     decimal.RequireFromString("0.005"),
		GroupJoinBonus:       decimal.RequireFromString("0.005"),
		MinimumWithdrawal:    decimal.RequireFromString("0.05"),
		WalletAddressPattern: DefaultWalletAddressPattern,
		AdDurationSeconds:    15,
	}
}

// load loads configuration from an optional .env file, an optional YAML file and the environment
func load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found, using system environment variables")
	}

	config := &Config{
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),

		Ledger: DefaultLedgerRules(),

		StorageTimeout: 5 * time.Second,
		CacheTTL:       5 * time.Second,

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		NATSServers: os.Getenv("NATS_SERVERS"),

		HTTPAddr:    getEnvWithDefault("HTTP_ADDR", ":8080"),
		AdminAPIKey: os.Getenv("ADMIN_API_KEY"),

		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),

		DiscordToken:          os.Getenv("DISCORD_TOKEN"),
		DiscordAdminChannelID: os.Getenv("DISCORD_ADMIN_CHANNEL_ID"),

		WithdrawalWebhookURL:     os.Getenv("WITHDRAWAL_WEBHOOK_URL"),
		WebhookTimeout:           10 * time.Second,
		WithdrawalNotifyInterval: 10 * time.Second,
		WithdrawalNotifyBatch:    50,

		OTelEnabled:              os.Getenv("OTEL_ENABLED") == "true",
		OTelServiceName:          getEnvWithDefault("OTEL_SERVICE_NAME", "adledger"),
		OTelExporterType:         getEnvWithDefault("OTEL_EXPORTER_TYPE", "console"),
		OTelOTLPEndpoint:         getEnvWithDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTelExportIntervalMillis: 30000,

		LogLevel: getEnvWithDefault("LOG_LEVEL", "info"),

		Environment: os.Getenv("ENVIRONMENT"),
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := applyFile(config, path); err != nil {
			return nil, err
		}
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}

	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if config.DatabaseName != "" && strings.TrimSpace(config.DatabaseName) == "" {
			return nil, fmt.Errorf("DATABASE_NAME cannot be empty when provided")
		}
	}

	if err := config.Ledger.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyFile overlays ledger rules from a YAML file
func applyFile(config *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	rules := &config.Ledger
	decimals := []struct {
		raw    string
		target *decimal.Decimal
		name   string
	}{
		{fc.Ledger.WelcomeBonus, &rules.WelcomeBonus, "welcome_bonus"},
		{fc.Ledger.RewardPerAd, &rules.RewardPerAd, "reward_per_ad"},
		{fc.Ledger.CommissionRate, &rules.CommissionRate, "commission_rate"},
		{fc.Ledger.ReferrerBonus, &rules.ReferrerBonus, "referrer_bonus"},
		{fc.Ledger.ReferredBonus, &rules.ReferredBonus, "referred_bonus"},
		{fc.Ledger.ChannelJoinBonus, &rules.ChannelJoinBonus, "channel_join_bonus"},
		{fc.Ledger.GroupJoinBonus, &rules.GroupJoinBonus, "group_join_bonus"},
		{fc.Ledger.MinimumWithdrawal, &rules.MinimumWithdrawal, "minimum_withdrawal"},
	}
	for _, d := range decimals {
		if d.raw == "" {
			continue
		}
		value, err := decimal.NewFromString(d.raw)
		if err != nil {
			return fmt.Errorf("invalid ledger.%s in %s: %w", d.name, path, err)
		}
		*d.target = value
	}

	if fc.Ledger.DailyAdLimit != 0 {
		rules.DailyAdLimit = fc.Ledger.DailyAdLimit
	}
	if fc.Ledger.WalletAddressPattern != "" {
		rules.WalletAddressPattern = fc.Ledger.WalletAddressPattern
	}
	if fc.Ledger.AdDurationSeconds != 0 {
		rules.AdDurationSeconds = fc.Ledger.AdDurationSeconds
	}

	return nil
}

// applyEnvOverrides overrides defaults with environment variables when they are set
func applyEnvOverrides(config *Config) error {
	decimals := map[string]*decimal.Decimal{
		"WELCOME_BONUS":      &config.Ledger.WelcomeBonus,
		"REWARD_PER_AD":      &config.Ledger.RewardPerAd,
		"COMMISSION_RATE":    &config.Ledger.CommissionRate,
		"REFERRER_BONUS":     &config.Ledger.ReferrerBonus,
		"REFERRED_BONUS":     &config.Ledger.ReferredBonus,
		"CHANNEL_JOIN_BONUS": &config.Ledger.ChannelJoinBonus,
		"GROUP_JOIN_BONUS":   &config.Ledger.GroupJoinBonus,
		"MINIMUM_WITHDRAWAL": &config.Ledger.MinimumWithdrawal,
	}
	for key, target := range decimals {
		raw := os.Getenv(key)
		if raw == "" {
			continue
		}
		value, err := decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*target = value
	}

	ints := map[string]*int{
		"DAILY_AD_LIMIT":          &config.Ledger.DailyAdLimit,
		"AD_DURATION_SECONDS":     &config.Ledger.AdDurationSeconds,
		"REDIS_DB":                &config.RedisDB,
		"WITHDRAWAL_NOTIFY_BATCH": &config.WithdrawalNotifyBatch,
		"OTEL_EXPORT_INTERVAL_MS": &config.OTelExportIntervalMillis,
	}
	for key, target := range ints {
		raw := os.Getenv(key)
		if raw == "" {
			continue
		}
		value, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*target = value
	}

	durations := map[string]*time.Duration{
		"STORAGE_TIMEOUT":            &config.StorageTimeout,
		"CACHE_TTL":                  &config.CacheTTL,
		"WEBHOOK_TIMEOUT":            &config.WebhookTimeout,
		"WITHDRAWAL_NOTIFY_INTERVAL": &config.WithdrawalNotifyInterval,
	}
	for key, target := range durations {
		raw := os.Getenv(key)
		if raw == "" {
			continue
		}
		value, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*target = value
	}

	if pattern := os.Getenv("WALLET_ADDRESS_PATTERN"); pattern != "" {
		config.Ledger.WalletAddressPattern = pattern
	}

	if chatID := os.Getenv("TELEGRAM_ADMIN_CHAT_ID"); chatID != "" {
		parsed, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid TELEGRAM_ADMIN_CHAT_ID: %w", err)
		}
		config.TelegramAdminChatID = parsed
	}

	return nil
}

// Validate checks that the ledger rules are internally consistent
func (r LedgerRules) Validate() error {
	amounts := map[string]decimal.Decimal{
		"welcome bonus":      r.WelcomeBonus,
		"reward per ad":      r.RewardPerAd,
		"referrer bonus":     r.ReferrerBonus,
		"referred bonus":     r.ReferredBonus,
		"channel join bonus": r.ChannelJoinBonus,
		"group join bonus":   r.GroupJoinBonus,
		"minimum withdrawal": r.MinimumWithdrawal,
	}
	for name, value := range amounts {
		if value.IsNegative() {
			return fmt.Errorf("%s cannot be negative", name)
		}
		// Amounts are stored as NUMERIC(20,8)
		if !value.Equal(value.Truncate(models.MoneyScale)) {
			return fmt.Errorf("%s has more than %d decimal places: %s", name, models.MoneyScale, value)
		}
	}

	if r.CommissionRate.IsNegative() || r.CommissionRate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("commission rate must be between 0 and 1, got %s", r.CommissionRate)
	}
	if r.DailyAdLimit <= 0 {
		return fmt.Errorf("daily ad limit must be positive, got %d", r.DailyAdLimit)
	}
	if _, err := regexp.Compile(r.WalletAddressPattern); err != nil {
		return fmt.Errorf("invalid wallet address pattern: %w", err)
	}

	return nil
}

// getEnvWithDefault returns the environment variable value or a default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:              "test",
		Ledger:                   DefaultLedgerRules(),
		StorageTimeout:           5 * time.Second,
		CacheTTL:                 5 * time.Second,
		WebhookTimeout:           time.Second,
		WithdrawalNotifyInterval: time.Second,
		WithdrawalNotifyBatch:    10,
		OTelServiceName:          "adledger-test",
		OTelExporterType:         "none",
		LogLevel:                 "debug",
	}
}
