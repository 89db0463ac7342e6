package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Filename string `yaml:"filename"`
}

type Config struct {
	App struct {
		Name        string `yaml:"name"`
		Environment string `yaml:"environment"`
		Port        int    `yaml:"port"`
		BaseURL     string `yaml:"base_url"`
		StaticDir   string `yaml:"static_dir"`
		SecretKey   string `yaml:"-"` // Loaded from environment
	} `yaml:"app"`

	Database DatabaseConfig `yaml:"database"`

	Features struct {
		EnableMetrics bool `yaml:"enable_metrics"`
		EnableDebug   bool `yaml:"enable_debug"`
	} `yaml:"features"`

	Jobs struct {
		LowStockCron       string `yaml:"low_stock_cron"`
		PendingExpiryCron  string `yaml:"pending_expiry_cron"`
		PendingExpiryHours int    `yaml:"pending_expiry_hours"`
	} `yaml:"jobs"`

	Weather struct {
		BaseURL  string        `yaml:"base_url"`
		Timeout  time.Duration `yaml:"timeout"`
		CacheTTL time.Duration `yaml:"cache_ttl"`
	} `yaml:"weather"`

	Cache struct {
		RedisURL      string `yaml:"redis_url"`
		RedisPassword string `yaml:"-"` // Loaded from environment
	} `yaml:"cache"`

	Email struct {
		Region          string `yaml:"region"`
		Sender          string `yaml:"sender"`
		AccessKeyID     string `yaml:"-"`
		SecretAccessKey string `yaml:"-"`
	} `yaml:"email"`

	RateLimit struct {
		RequestsPerMinute  int `yaml:"requests_per_minute"`
		MutationsPerMinute int `yaml:"mutations_per_minute"`
		// TrustProxy keys clients by X-Forwarded-For / X-Real-IP. Enable only
		// behind a reverse proxy that sets them.
		TrustProxy bool `yaml:"trust_proxy"`
	} `yaml:"ratelimit"`

	Bookings struct {
		DefaultPhoneRegion string `yaml:"default_phone_region"`
	} `yaml:"bookings"`
}

const (
	DefaultLowStockCron       = "*/30 * * * *"
	DefaultPendingExpiryCron  = "*/15 * * * *"
	DefaultPendingExpiryHours = 24
	DefaultWeatherBaseURL     = "https://api.open-meteo.com/v1/forecast"
	DefaultWeatherTimeout     = 5 * time.Second
	DefaultWeatherCacheTTL    = 10 * time.Minute
	DefaultPhoneRegion        = "PH"
	DefaultRequestsPerMinute  = 300
	DefaultMutationsPerMin    = 60
)

// Load loads both .env and yaml configuration
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	// Load sensitive values from environment
	cfg.App.SecretKey = os.Getenv("APP_SECRET_KEY")
	cfg.Cache.RedisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.Email.AccessKeyID = os.Getenv("AWS_ACCESS_KEY_ID")
	cfg.Email.SecretAccessKey = os.Getenv("AWS_SECRET_ACCESS_KEY")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Parse decodes yaml config data and fills unset optional values with defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Environment == "" {
		c.App.Environment = "development"
	}
	if c.App.StaticDir == "" {
		c.App.StaticDir = "web/static"
	}
	if c.Jobs.LowStockCron == "" {
		c.Jobs.LowStockCron = DefaultLowStockCron
	}
	if c.Jobs.PendingExpiryCron == "" {
		c.Jobs.PendingExpiryCron = DefaultPendingExpiryCron
	}
	if c.Jobs.PendingExpiryHours == 0 {
		c.Jobs.PendingExpiryHours = DefaultPendingExpiryHours
	}
	if c.Weather.BaseURL == "" {
		c.Weather.BaseURL = DefaultWeatherBaseURL
	}
	if c.Weather.Timeout == 0 {
		c.Weather.Timeout = DefaultWeatherTimeout
	}
	if c.Weather.CacheTTL == 0 {
		c.Weather.CacheTTL = DefaultWeatherCacheTTL
	}
	if c.RateLimit.RequestsPerMinute == 0 {
		c.RateLimit.RequestsPerMinute = DefaultRequestsPerMinute
	}
	if c.RateLimit.MutationsPerMinute == 0 {
		c.RateLimit.MutationsPerMinute = DefaultMutationsPerMin
	}
	if c.Bookings.DefaultPhoneRegion == "" {
		c.Bookings.DefaultPhoneRegion = DefaultPhoneRegion
	}
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if c.App.Port == 0 {
		return fmt.Errorf("app port is required")
	}
	if c.Database.Driver == "" {
		return fmt.Errorf("database driver is required")
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Filename == "" {
			return fmt.Errorf("database filename is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	for name, expr := range map[string]string{
		"jobs.low_stock_cron":      c.Jobs.LowStockCron,
		"jobs.pending_expiry_cron": c.Jobs.PendingExpiryCron,
	} {
		if _, err := parser.Parse(expr); err != nil {
			return fmt.Errorf("%s is not a valid cron expression: %w", name, err)
		}
	}

	if c.Jobs.PendingExpiryHours < 0 {
		return fmt.Errorf("jobs.pending_expiry_hours must be 0 or greater")
	}
	if c.RateLimit.RequestsPerMinute < 0 || c.RateLimit.MutationsPerMinute < 0 {
		return fmt.Errorf("ratelimit values must be 0 or greater")
	}
	if len(strings.TrimSpace(c.Bookings.DefaultPhoneRegion)) != 2 {
		return fmt.Errorf("bookings.default_phone_region must be a two-letter region code")
	}

	return nil
}

// EmailEnabled reports whether SES delivery is configured. Keys are optional;
// without them the SES client uses the default AWS credential chain.
func (c *Config) EmailEnabled() bool {
	return c.Email.Region != "" && c.Email.Sender != ""
}
