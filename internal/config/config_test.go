package config

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const minimalYAML = `
nyt:
  api_key: yaml-key
`

type validateCase struct {
	name    string
	modify  func(*Config)
	wantErr string
}

// validConfig returns a minimal Config that passes Validate().
func validConfig() Config {
	return Config{
		NYT: NYTConfig{APIKey: "test-key"},
		App: AppConfig{LogLevel: "info"},
	}
}

func writeTempYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []validateCase{
		{"valid_minimal", nil, ""},
		{"missing_api_key", func(c *Config) { c.NYT.APIKey = "" }, "nyt.api_key is required"},
		{"blank_api_key", func(c *Config) { c.NYT.APIKey = "   " }, "nyt.api_key is required"},
		{"base_url_ftp", func(c *Config) { c.NYT.BaseURL = "ftp://api.nytimes.com" }, "must use http or https"},
		{"base_url_no_host", func(c *Config) { c.NYT.BaseURL = "https://" }, "missing host"},
		{"negative_timeout", func(c *Config) { c.HTTP.Timeout = -time.Second }, "http.timeout must not be negative"},
		{"negative_attempts", func(c *Config) { c.HTTP.MaxAttempts = -1 }, "http.max_attempts must be at least 1"},
		{"negative_rate", func(c *Config) { c.HTTP.RequestsPerMinute = -5 }, "http.requests_per_minute must not be negative"},
		{"telegram_missing_token", func(c *Config) { c.Telegram = &TelegramConfig{} }, "telegram.bot_token is required"},
		{"telegram_valid", func(c *Config) { c.Telegram = &TelegramConfig{BotToken: "123:ABC"} }, ""},
		{"web_port_negative", func(c *Config) { c.Web.Port = -1 }, "web.port must be between 1 and 65535"},
		{"web_port_too_high", func(c *Config) { c.Web.Port = 65536 }, "web.port must be between 1 and 65535"},
		{"web_port_max_valid", func(c *Config) { c.Web.Port = 65535 }, ""},
		{"negative_idle", func(c *Config) { c.Web.SessionIdle = -time.Minute }, "web.session_idle must not be negative"},
		{"invalid_log_level", func(c *Config) { c.App.LogLevel = "trace" }, "app.log_level must be one of"},
		{"warning_accepted", func(c *Config) { c.App.LogLevel = "warning" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			if tt.modify != nil {
				tt.modify(&cfg)
			}
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestSetDefaults(t *testing.T) {
	t.Parallel()

	cfg := Config{}
	cfg.setDefaults()

	if cfg.NYT.BaseURL != DefaultBaseURL {
		t.Errorf("expected default base URL, got %q", cfg.NYT.BaseURL)
	}
	if cfg.HTTP.Timeout != DefaultHTTPTimeout {
		t.Errorf("expected default timeout, got %v", cfg.HTTP.Timeout)
	}
	if cfg.HTTP.MaxAttempts != 1 {
		t.Errorf("expected 1 attempt, got %d", cfg.HTTP.MaxAttempts)
	}
	if cfg.Web.Port != 8501 {
		t.Errorf("expected default port 8501, got %d", cfg.Web.Port)
	}
	if cfg.Web.SessionIdle != 30*time.Minute {
		t.Errorf("expected 30m idle, got %v", cfg.Web.SessionIdle)
	}
	if cfg.App.LogLevel != "info" {
		t.Errorf("expected default log level 'info', got %q", cfg.App.LogLevel)
	}

	t.Run("values_preserved", func(t *testing.T) {
		t.Parallel()
		cfg := Config{Web: WebConfig{Port: 9090}, App: AppConfig{LogLevel: "debug"}}
		cfg.setDefaults()
		if cfg.Web.Port != 9090 {
			t.Errorf("expected port 9090, got %d", cfg.Web.Port)
		}
		if cfg.App.LogLevel != "debug" {
			t.Errorf("expected log level 'debug', got %q", cfg.App.LogLevel)
		}
	})
}

func TestLoad_Full(t *testing.T) {
	t.Parallel()
	path := writeTempYAML(t, `
nyt:
  api_key: yaml-key
  base_url: http://localhost:9000/picks.json
http:
  timeout: 5s
  max_attempts: 3
  requests_per_minute: 10
telegram:
  bot_token: "123:ABC"
  allowed_user_ids: [1, 2]
web:
  port: 9090
  session_idle: 1h
app:
  log_level: debug
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.NYT.BaseURL != "http://localhost:9000/picks.json" {
		t.Errorf("unexpected base URL %q", cfg.NYT.BaseURL)
	}
	if cfg.HTTP.Timeout != 5*time.Second || cfg.HTTP.MaxAttempts != 3 || cfg.HTTP.RequestsPerMinute != 10 {
		t.Errorf("unexpected http config: %+v", cfg.HTTP)
	}
	if cfg.Telegram == nil || len(cfg.Telegram.AllowedUserIDs) != 2 {
		t.Errorf("expected telegram config with 2 users, got %+v", cfg.Telegram)
	}
	if cfg.Web.Port != 9090 || cfg.Web.SessionIdle != time.Hour {
		t.Errorf("unexpected web config: %+v", cfg.Web)
	}
}

func TestLoad_ValidMinimal(t *testing.T) {
	t.Parallel()
	cfg, err := Load(writeTempYAML(t, minimalYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.NYT.BaseURL != DefaultBaseURL {
		t.Errorf("expected default base URL, got %q", cfg.NYT.BaseURL)
	}
	if cfg.Telegram != nil {
		t.Error("expected no telegram config")
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	t.Run("invalid_yaml", func(t *testing.T) {
		t.Parallel()
		_, err := Load(writeTempYAML(t, "{{invalid yaml}}"))
		if err == nil || !strings.Contains(err.Error(), "failed to parse") {
			t.Fatalf("expected parse error, got %v", err)
		}
	})

	t.Run("file_not_found", func(t *testing.T) {
		t.Parallel()
		_, err := Load("/nonexistent/path/config.yaml")
		if err == nil || !strings.Contains(err.Error(), "config file not found") {
			t.Fatalf("expected not-found error, got %v", err)
		}
	})

	t.Run("path_is_directory", func(t *testing.T) {
		t.Parallel()
		_, err := Load(t.TempDir())
		if err == nil || !strings.Contains(err.Error(), "directory") {
			t.Fatalf("expected directory error, got %v", err)
		}
	})
}

func TestLoadOptional_MissingFileUsesEnv(t *testing.T) {
	t.Setenv("NYT_API_KEY", "env-key")
	cfg, err := LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.NYT.APIKey != "env-key" {
		t.Errorf("expected env-key, got %q", cfg.NYT.APIKey)
	}
}

func TestLoadOptional_MissingKeyFails(t *testing.T) {
	t.Setenv("NYT_API_KEY", "")
	t.Setenv("CRITICSPICKS_NYT_API_KEY", "")
	_, err := LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil || !strings.Contains(err.Error(), "nyt.api_key is required") {
		t.Fatalf("expected missing key error, got %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Run("prefixed_key_wins", func(t *testing.T) {
		t.Setenv("NYT_API_KEY", "plain")
		t.Setenv("CRITICSPICKS_NYT_API_KEY", "prefixed")
		cfg, err := Load(writeTempYAML(t, minimalYAML))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.NYT.APIKey != "prefixed" {
			t.Errorf("expected prefixed, got %q", cfg.NYT.APIKey)
		}
	})

	t.Run("telegram_created_from_env", func(t *testing.T) {
		t.Setenv("CRITICSPICKS_TELEGRAM_BOT_TOKEN", "123:TOKEN")
		cfg, err := Load(writeTempYAML(t, minimalYAML))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Telegram == nil || cfg.Telegram.BotToken != "123:TOKEN" {
			t.Error("expected telegram created from env")
		}
	})

	t.Run("log_level_override", func(t *testing.T) {
		t.Setenv("CRITICSPICKS_LOG_LEVEL", "debug")
		cfg, err := Load(writeTempYAML(t, minimalYAML))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.App.LogLevel != "debug" {
			t.Errorf("expected debug, got %q", cfg.App.LogLevel)
		}
	})

	t.Run("invalid_port", func(t *testing.T) {
		t.Setenv("CRITICSPICKS_WEB_PORT", "not-a-number")
		_, err := Load(writeTempYAML(t, minimalYAML))
		if err == nil || !strings.Contains(err.Error(), "web.port must be between") {
			t.Fatalf("expected port error, got %v", err)
		}
	})
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLogger(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn")
	logger.Info("hidden")
	logger.Warn("shown", slog.Int("offset", 20))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info record should be filtered at warn level")
	}
	if !strings.Contains(out, `"offset":20`) {
		t.Errorf("expected JSON attribute in output, got %s", out)
	}
}

func TestContextLogger(t *testing.T) {
	t.Parallel()
	if LoggerFromContext(context.Background()) != slog.Default() {
		t.Error("expected default logger for bare context")
	}
	logger := NewLogger(&bytes.Buffer{}, "info")
	ctx := ContextWithLogger(context.Background(), logger)
	if LoggerFromContext(ctx) != logger {
		t.Error("expected logger from context")
	}
}
