package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"
)

// Defaults applied by setDefaults.
const (
	DefaultPath        = "configs/criticspicks.yaml"
	DefaultBaseURL     = "https://api.nytimes.com/svc/movies/v2/reviews/picks.json"
	DefaultHTTPTimeout = 30 * time.Second
	DefaultWebPort     = 8501
	DefaultSessionIdle = 30 * time.Minute
)

// Config represents the main application configuration
type Config struct {
	// Upstream API
	NYT NYTConfig `yaml:"nyt"`

	// Outbound HTTP behaviour
	HTTP HTTPConfig `yaml:"http"`

	// Frontends
	Telegram *TelegramConfig `yaml:"telegram,omitempty"`
	Web      WebConfig       `yaml:"web"`

	// Application settings
	App AppConfig `yaml:"app"`
}

// NYTConfig holds the Movie Reviews API settings
type NYTConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url,omitempty"`
}

// HTTPConfig holds outbound client settings
type HTTPConfig struct {
	Timeout           time.Duration `yaml:"timeout,omitempty"`
	MaxAttempts       int           `yaml:"max_attempts,omitempty"`        // 1 = no transport-level retry
	RequestsPerMinute int           `yaml:"requests_per_minute,omitempty"` // 0 = unthrottled
}

// TelegramConfig holds Telegram bot configuration
type TelegramConfig struct {
	BotToken       string  `yaml:"bot_token"`
	AllowedUserIDs []int64 `yaml:"allowed_user_ids,omitempty"`
}

// WebConfig holds the HTTP dashboard settings
type WebConfig struct {
	Port        int           `yaml:"port,omitempty"`
	SessionIdle time.Duration `yaml:"session_idle,omitempty"`
}

// AppConfig holds application-level settings
type AppConfig struct {
	LogLevel string `yaml:"log_level"` // "debug", "info", "warn", "error"
}

// Load loads configuration from a YAML file with environment variable overrides
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config path %s is a directory", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return finish(&cfg)
}

// LoadOptional behaves like Load but treats a missing file as empty, so the
// configuration comes from defaults and the environment alone.
func LoadOptional(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return finish(&Config{})
	}
	return Load(path)
}

func finish(cfg *Config) (*Config, error) {
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides overrides config values with environment variables
func (c *Config) applyEnvOverrides() {
	// NYT
	if v := os.Getenv("NYT_API_KEY"); v != "" {
		c.NYT.APIKey = v
	}
	if v := os.Getenv("CRITICSPICKS_NYT_API_KEY"); v != "" {
		c.NYT.APIKey = v
	}
	if v := os.Getenv("CRITICSPICKS_NYT_BASE_URL"); v != "" {
		c.NYT.BaseURL = v
	}

	// Telegram
	if v := os.Getenv("CRITICSPICKS_TELEGRAM_BOT_TOKEN"); v != "" {
		if c.Telegram == nil {
			c.Telegram = &TelegramConfig{}
		}
		c.Telegram.BotToken = v
	}

	// Web
	if v := os.Getenv("CRITICSPICKS_WEB_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			port = -1 // rejected by Validate
		}
		c.Web.Port = port
	}

	// App
	if v := os.Getenv("CRITICSPICKS_LOG_LEVEL"); v != "" {
		c.App.LogLevel = v
	}
}

// Validate fills in defaults and validates the configuration
func (c *Config) Validate() error {
	c.setDefaults()

	if strings.TrimSpace(c.NYT.APIKey) == "" {
		return fmt.Errorf("nyt.api_key is required (set it in the config file or NYT_API_KEY)")
	}
	if err := validateURL(c.NYT.BaseURL, "nyt.base_url"); err != nil {
		return err
	}

	if c.HTTP.Timeout < 0 {
		return fmt.Errorf("http.timeout must not be negative")
	}
	if c.HTTP.MaxAttempts < 1 {
		return fmt.Errorf("http.max_attempts must be at least 1")
	}
	if c.HTTP.RequestsPerMinute < 0 {
		return fmt.Errorf("http.requests_per_minute must not be negative")
	}

	if c.Telegram != nil && c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}

	if c.Web.Port < 1 || c.Web.Port > 65535 {
		return fmt.Errorf("web.port must be between 1 and 65535")
	}
	if c.Web.SessionIdle < 0 {
		return fmt.Errorf("web.session_idle must not be negative")
	}

	switch strings.ToLower(c.App.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("app.log_level must be one of debug, info, warn, error")
	}

	return nil
}

// setDefaults fills zero values. Negative values are left for Validate to reject.
func (c *Config) setDefaults() {
	if c.NYT.BaseURL == "" {
		c.NYT.BaseURL = DefaultBaseURL
	}
	if c.HTTP.Timeout == 0 {
		c.HTTP.Timeout = DefaultHTTPTimeout
	}
	if c.HTTP.MaxAttempts == 0 {
		c.HTTP.MaxAttempts = 1
	}
	if c.Web.Port == 0 {
		c.Web.Port = DefaultWebPort
	}
	if c.Web.SessionIdle == 0 {
		c.Web.SessionIdle = DefaultSessionIdle
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
}

// validateURL checks that raw is an absolute http(s) URL.
func validateURL(raw, field string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%s must use http or https", field)
	}
	if u.Host == "" {
		return fmt.Errorf("%s is missing host", field)
	}
	return nil
}
