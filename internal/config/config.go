package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// ClientConfig holds configuration for the chat client.
type ClientConfig struct {
	LogFormat  string `envconfig:"LOG_FORMAT" default:"json"`
	Chat       ChatConfig
	OpenRouter OpenRouterConfig
	Gemini     GeminiConfig
	RemoteLog  RemoteLogConfig
	Redis      RedisConfig
}

// ChatConfig selects the provider and model and tunes polling.
type ChatConfig struct {
	Provider     string        `envconfig:"CHAT_PROVIDER" default:"openrouter"`
	Model        string        `envconfig:"CHAT_MODEL" default:"google/gemini-2.0-flash-exp:free"`
	PollInterval time.Duration `envconfig:"CHAT_POLL_INTERVAL" default:"2500ms"`
}

// OpenRouterConfig holds OpenRouter API configuration.
type OpenRouterConfig struct {
	APIKey string `envconfig:"OPENROUTER_API_KEY"`
}

// GeminiConfig holds Google Gemini API configuration.
type GeminiConfig struct {
	APIKey string `envconfig:"GEMINI_API_KEY"`
}

// RemoteLogConfig points at the message log service. An empty URL
// disables polling: the client then runs on local state only.
type RemoteLogConfig struct {
	URL   string `envconfig:"REMOTE_LOG_URL"`
	Token string `envconfig:"REMOTE_LOG_TOKEN"`
}

// RedisConfig holds Redis configuration. An empty URI disables state
// persistence.
type RedisConfig struct {
	URI string `envconfig:"REDIS_URI"`
}

// ServerConfig holds configuration for the message log service.
type ServerConfig struct {
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
	Server    HTTPConfig
	Database  DatabaseConfig
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Host      string `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port      string `envconfig:"SERVER_PORT" default:"8080"`
	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	DSN string `envconfig:"DATABASE_DSN" required:"true"`
}

// LoadClient reads client configuration from environment variables.
func LoadClient() (*ClientConfig, error) {
	var cfg ClientConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks client configuration for logical errors beyond
// required fields.
func (c *ClientConfig) Validate() error {
	switch c.Chat.Provider {
	case "openrouter":
		if c.OpenRouter.APIKey == "" {
			return fmt.Errorf("OPENROUTER_API_KEY is required when CHAT_PROVIDER=openrouter")
		}
	case "gemini":
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when CHAT_PROVIDER=gemini")
		}
	default:
		return fmt.Errorf("unknown provider %q", c.Chat.Provider)
	}
	if c.Chat.PollInterval <= 0 {
		return fmt.Errorf("CHAT_POLL_INTERVAL must be positive")
	}
	return nil
}

// LoadServer reads log service configuration from environment variables.
func LoadServer() (*ServerConfig, error) {
	var cfg ServerConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	return &cfg, nil
}
