package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Gemini        GeminiConfig
	OpenFoodFacts OpenFoodFactsConfig `mapstructure:"openfoodfacts"`
	Cache         CacheConfig
	Storage       StorageConfig
	Stripe        StripeConfig
	Identity      IdentityConfig
	Scan          ScanConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig holds the MySQL connection settings
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// GeminiConfig holds the vision model settings
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// OpenFoodFactsConfig holds the product database settings
type OpenFoodFactsConfig struct {
	FoodBaseURL      string `mapstructure:"food_base_url"`
	CosmeticsBaseURL string `mapstructure:"cosmetics_base_url"`
	UserAgent        string `mapstructure:"user_agent"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// StorageConfig holds the scan photo bucket settings. Storage is optional;
// when disabled, history entries keep no thumbnails.
type StorageConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// StripeConfig holds billing configuration
type StripeConfig struct {
	SecretKey           string        `mapstructure:"secret_key"`
	WebhookSecret       string        `mapstructure:"webhook_secret"`
	BaseURL             string        `mapstructure:"base_url"`
	ConfirmPollInterval time.Duration `mapstructure:"confirm_poll_interval"`
	ConfirmPollAttempts int           `mapstructure:"confirm_poll_attempts"`
}

// IdentityConfig holds the auth provider settings
type IdentityConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	APIKey        string        `mapstructure:"api_key"`
	VerifyTimeout time.Duration `mapstructure:"verify_timeout"`
	SessionTTL    time.Duration `mapstructure:"session_ttl"`
}

// ScanConfig holds scan pipeline tuning
type ScanConfig struct {
	DailyLimit        int           `mapstructure:"daily_limit"`
	ImageFetchTimeout time.Duration `mapstructure:"image_fetch_timeout"`
	PersistTimeout    time.Duration `mapstructure:"persist_timeout"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/purescan/")

	// Environment variable settings
	v.SetEnvPrefix("PURESCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})

	// Gemini defaults
	v.SetDefault("gemini.model", "gemini-flash-latest")

	// Product database defaults
	v.SetDefault("openfoodfacts.food_base_url", "https://world.openfoodfacts.org")
	v.SetDefault("openfoodfacts.cosmetics_base_url", "https://world.openbeautyfacts.org")
	v.SetDefault("openfoodfacts.user_agent", "PureScan/1.0 (support@purescan.app)")

	// Cache defaults
	v.SetDefault("cache.ttl", "24h")

	// Storage defaults
	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.bucket", "purescan-scans")
	v.SetDefault("storage.use_ssl", false)

	// Billing defaults
	v.SetDefault("stripe.confirm_poll_interval", "2s")
	v.SetDefault("stripe.confirm_poll_attempts", 10)

	// Identity defaults
	v.SetDefault("identity.verify_timeout", "5s")
	v.SetDefault("identity.session_ttl", "5m")

	// Scan defaults
	v.SetDefault("scan.daily_limit", 3)
	v.SetDefault("scan.image_fetch_timeout", "15s")
	v.SetDefault("scan.persist_timeout", "5s")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Database.DSN == "" {
		return fmt.Errorf("database DSN is required (set PURESCAN_DATABASE_DSN)")
	}

	if config.Gemini.APIKey == "" {
		return fmt.Errorf("Gemini API key is required (set PURESCAN_GEMINI_API_KEY)")
	}

	if config.Identity.BaseURL == "" {
		return fmt.Errorf("identity base URL is required (set PURESCAN_IDENTITY_BASE_URL)")
	}

	if config.Stripe.SecretKey == "" {
		return fmt.Errorf("Stripe secret key is required (set PURESCAN_STRIPE_SECRET_KEY)")
	}

	if config.Stripe.WebhookSecret == "" {
		return fmt.Errorf("Stripe webhook secret is required (set PURESCAN_STRIPE_WEBHOOK_SECRET)")
	}

	if config.Storage.Enabled {
		if config.Storage.Endpoint == "" || config.Storage.AccessKey == "" || config.Storage.SecretKey == "" {
			return fmt.Errorf("storage endpoint and credentials are required when storage is enabled")
		}
	}

	if config.Scan.DailyLimit <= 0 {
		return fmt.Errorf("scan daily limit must be positive, got: %d", config.Scan.DailyLimit)
	}

	return nil
}

// loadEnvFile loads a local .env file into the process environment.
// Existing variables win; the file only fills gaps. A missing file is fine.
func loadEnvFile() error {
	data, err := os.ReadFile(".env")
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" || os.Getenv(key) != "" {
			continue
		}
		os.Setenv(key, strings.TrimSpace(value))
	}
	return nil
}
