package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Database    DatabaseConfig
	Redis       RedisConfig
	Server      ServerConfig
	LLM         LLMConfig
	Graph       GraphConfig
	Credentials CredentialsConfig
	Slack       SlackConfig
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string //nolint:gosec // G117: DB connection config
	DBName   string
	SSLMode  string
	MaxConns int
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string //nolint:gosec // G117: Redis connection config
	DB       int
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
}

// LLMConfig holds the chat-model provider settings backing the agents.
type LLMConfig struct {
	Provider     string
	Model        string
	APIKey       string
	BaseURL      string
	AgentTimeout time.Duration
}

// GraphConfig holds Meta Graph API settings.
type GraphConfig struct {
	BaseURL string
}

// CredentialsConfig holds the token vault settings.
type CredentialsConfig struct {
	Key string //nolint:gosec // G117: encryption key config
}

// SlackConfig holds run-notification settings.
type SlackConfig struct {
	BotToken string
	Channel  string
}

// Load reads configuration from environment variables.
// Defaults are safe for local development only. In production,
// sensitive values (API keys, DB password) must be set explicitly.
func Load() (*Config, error) {
	dbPort, err := getEnvInt("POSTPILOT_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	dbMaxConns, err := getEnvInt("POSTPILOT_DB_MAX_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	redisDB, err := getEnvInt("POSTPILOT_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	readTimeout, err := getEnvDuration("POSTPILOT_SERVER_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	writeTimeout, err := getEnvDuration("POSTPILOT_SERVER_WRITE_TIMEOUT", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	agentTimeout, err := getEnvDuration("POSTPILOT_AGENT_TIMEOUT", 90*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	corsOrigins := getEnvList("POSTPILOT_CORS_ORIGINS", []string{"http://localhost:5173"})

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("POSTPILOT_DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("POSTPILOT_DB_USER", "postpilot"),
			Password: getEnv("POSTPILOT_DB_PASSWORD", ""),
			DBName:   getEnv("POSTPILOT_DB_NAME", "postpilot_dev"),
			SSLMode:  getEnv("POSTPILOT_DB_SSLMODE", "disable"),
			MaxConns: dbMaxConns,
		},
		Redis: RedisConfig{
			Addr:     getEnv("POSTPILOT_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("POSTPILOT_REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Server: ServerConfig{
			Addr:         getEnv("POSTPILOT_SERVER_ADDR", ":8080"),
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			CORSOrigins:  corsOrigins,
		},
		LLM: LLMConfig{
			Provider:     getEnv("POSTPILOT_LLM_PROVIDER", "openai"),
			Model:        getEnv("POSTPILOT_LLM_MODEL", "gpt-4o"),
			APIKey:       getEnv("POSTPILOT_LLM_API_KEY", ""),
			BaseURL:      getEnv("POSTPILOT_LLM_BASE_URL", ""),
			AgentTimeout: agentTimeout,
		},
		Graph: GraphConfig{
			BaseURL: getEnv("POSTPILOT_GRAPH_BASE_URL", ""),
		},
		Credentials: CredentialsConfig{
			Key: getEnv("POSTPILOT_CREDENTIALS_KEY", ""),
		},
		Slack: SlackConfig{
			BotToken: getEnv("POSTPILOT_SLACK_BOT_TOKEN", ""),
			Channel:  getEnv("POSTPILOT_SLACK_CHANNEL", ""),
		},
	}

	err = cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

//nolint:gochecknoglobals // closed provider set
var validProviders = map[string]bool{
	"openai": true,
	"claude": true,
	"gemini": true,
}

// validate checks required fields and value bounds.
func (c *Config) validate() error {
	// Model API key is required (no insecure default).
	if c.LLM.APIKey == "" {
		return errors.New("POSTPILOT_LLM_API_KEY is required")
	}
	if !validProviders[c.LLM.Provider] {
		return fmt.Errorf("POSTPILOT_LLM_PROVIDER must be one of openai, claude, gemini; got %q", c.LLM.Provider)
	}

	// Token vault key is required: credentials are never stored in the clear.
	if c.Credentials.Key == "" {
		return errors.New("POSTPILOT_CREDENTIALS_KEY is required")
	}
	if len(c.Credentials.Key) != 64 {
		return errors.New("POSTPILOT_CREDENTIALS_KEY must be 64 hex characters (32 bytes)")
	}

	if c.Database.SSLMode == "disable" {
		log.Warn().Msg("POSTPILOT_DB_SSLMODE=disable is insecure for production; set to 'require' or 'verify-full'")
	}

	// Bounds checks.
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("POSTPILOT_DB_PORT must be 1-65535, got %d", c.Database.Port)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("POSTPILOT_DB_MAX_CONNS must be >= 1, got %d", c.Database.MaxConns)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("POSTPILOT_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("POSTPILOT_SERVER_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}
	if c.LLM.AgentTimeout <= 0 {
		return fmt.Errorf("POSTPILOT_AGENT_TIMEOUT must be positive, got %s", c.LLM.AgentTimeout)
	}

	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
