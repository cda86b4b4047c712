// Package config loads application configuration with multi-source priority:
// environment variables override the config file, which overrides defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrMissingBotToken indicates the Telegram bot token is not set.
	ErrMissingBotToken = errors.New("missing bot token")

	// ErrMissingAPIKey indicates the completion backend API key is not set.
	ErrMissingAPIKey = errors.New("missing backend API key")

	// ErrMissingAdminID indicates the administrator identity is not set.
	ErrMissingAdminID = errors.New("missing admin id")

	// ErrInvalidTemperature indicates the sampling temperature is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidWorkers indicates the worker count is not positive.
	ErrInvalidWorkers = errors.New("invalid worker count")

	// ErrInvalidTimeout indicates the backend timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid backend timeout")

	// ErrMissingContext indicates the default system context is empty.
	ErrMissingContext = errors.New("missing default context")
)

// DefaultContext is the system context every new session starts with.
const DefaultContext = "Always answer in Russian. Постоянно отвечай на русском."

// Config stores application configuration. Sensitive fields (tokens) are
// never logged.
type Config struct {
	BotToken       string        `mapstructure:"bot_token"`
	BackendAPIKey  string        `mapstructure:"backend_api_key"`
	BackendBaseURL string        `mapstructure:"backend_base_url"`
	Model          string        `mapstructure:"model"`
	Temperature    float32       `mapstructure:"temperature"`
	AdminID        int64         `mapstructure:"admin_id"`
	AuditLogPath   string        `mapstructure:"audit_log_path"`
	Workers        int           `mapstructure:"workers"`
	BackendTimeout time.Duration `mapstructure:"backend_timeout"`
	DefaultContext string        `mapstructure:"default_context"`
}

// Load reads configuration from config.yaml in the given directories (the
// current directory when none are given), applies environment overrides,
// and validates the result.
func Load(paths ...string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; env vars and defaults still apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend_base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("model", "llama3-70b-8192")
	v.SetDefault("temperature", 0.1)
	v.SetDefault("audit_log_path", "logs.txt")
	v.SetDefault("workers", 2)
	v.SetDefault("backend_timeout", time.Minute)
	v.SetDefault("default_context", DefaultContext)
}

func bindEnvVariables(v *viper.Viper) {
	// Hardcoded keys cannot fail to bind; a panic here is a programming error.
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("bot_token", "BOT_TOKEN")
	mustBind("backend_api_key", "BACKEND_API_KEY")
	mustBind("backend_base_url", "BACKEND_BASE_URL")
	mustBind("model", "RELAYBOT_MODEL")
	mustBind("admin_id", "ADMIN_ID")
	mustBind("audit_log_path", "RELAYBOT_AUDIT_LOG")
	mustBind("workers", "RELAYBOT_WORKERS")
}

// Validate checks the configuration and fails fast on anything unusable.
func (c *Config) Validate() error {
	if c.BotToken == "" {
		return ErrMissingBotToken
	}
	if c.BackendAPIKey == "" {
		return ErrMissingAPIKey
	}
	if c.AdminID == 0 {
		return ErrMissingAdminID
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: %v not in [0, 2]", ErrInvalidTemperature, c.Temperature)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, c.Workers)
	}
	if c.BackendTimeout <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidTimeout, c.BackendTimeout)
	}
	if strings.TrimSpace(c.DefaultContext) == "" {
		return ErrMissingContext
	}
	return nil
}
