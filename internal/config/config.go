package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Provider names accepted by LISTINGS_PROVIDER
const (
	ProviderStatic   = "static"
	ProviderMLS      = "mls"
	ProviderScrape   = "scrape"
	ProviderPostgres = "postgres"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	PostgreSQL PostgreSQLConfig
	Redis      RedisConfig
	OpenAI     OpenAIConfig
	Listings   ListingsConfig
	MLS        MLSConfig
	Scrape     ScrapeConfig
	Agent      AgentConfig
	Avatar     AvatarConfig
	RateLimit  RateLimitConfig
	Logging    LoggingConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int    `validate:"min=1,max=65535"`
	Host           string
	GinMode        string `validate:"oneof=debug release test"`
	AllowedOrigins []string
}

// PostgreSQLConfig holds PostgreSQL database configuration
type PostgreSQLConfig struct {
	DSN                string // full connection string, preferred over the parts below
	Host               string
	Port               int
	User               string
	Password           string
	Database           string
	SSLMode            string
	MaxConnections     int `validate:"min=1"`
	MaxIdleConnections int `validate:"min=0"`
}

// RedisConfig holds the listings cache configuration. An empty Address disables caching.
type RedisConfig struct {
	Address     string
	Password    string
	DB          int
	ListingsTTL time.Duration
	WarmSpec    string // cron spec for refreshing common queries, "off" disables
}

// OpenAIConfig holds OpenAI-compatible API configuration
type OpenAIConfig struct {
	APIKey              string
	APIBase             string
	ChatModel           string
	ChatTemperature     float64
	ChatTopP            float64
	ChatMaxTokens       int
	ChatExtraBody       string // JSON string for extra_body (e.g., {"chat_template_kwargs":{"thinking":true}})
	EmbeddingModel      string
	EmbeddingDimensions int
	Timeout             int // seconds, whole HTTP exchange
	ExtractionTimeout   time.Duration
	AIExtraction        bool
	Enabled             bool
}

// ListingsConfig selects the listings source
type ListingsConfig struct {
	Provider       string `validate:"oneof=static mls scrape postgres"`
	StaticFallback bool
	ChatLimit      int `validate:"min=1"`
	MaxLimit       int `validate:"min=1"`
}

// MLSConfig holds the OData MLS feed configuration
type MLSConfig struct {
	BaseURL     string
	Token       string
	PageSize    int `validate:"min=1,max=500"`
	PhotoFanout int `validate:"min=0"`
	Timeout     time.Duration
}

// ScrapeConfig holds the listing page scraper configuration
type ScrapeConfig struct {
	URLs        []string
	UserAgent   string
	Timeout     time.Duration
	Parallelism int `validate:"min=1"`
}

// AgentConfig is the human contact shown when the assistant cannot help
type AgentConfig struct {
	Name      string
	Phone     string
	Brokerage string
}

// AvatarConfig holds the HeyGen streaming avatar configuration
type AvatarConfig struct {
	APIKey      string
	APIBase     string
	SessionID   string
	PerChar     time.Duration
	MinDuration time.Duration
	// AwaitReady holds speech until the widget reports "ready"
	AwaitReady  bool
}

// Enabled reports whether the avatar endpoints should be mounted
func (a AvatarConfig) Enabled() bool {
	return a.APIKey != "" && a.SessionID != ""
}

// RateLimitConfig holds per-IP rate limits for the chat endpoints
type RateLimitConfig struct {
	RequestsPerMinute int `validate:"min=0"`
	Burst             int `validate:"min=0"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `validate:"oneof=debug info warn error"`
	Format string `validate:"oneof=json console"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			GinMode:        getEnv("GIN_MODE", "release"),
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		PostgreSQL: PostgreSQLConfig{
			DSN:                getEnv("DATABASE_URL", getEnv("PG_DSN", "")),
			Host:               getEnv("PG_HOST", ""),
			Port:               getEnvAsInt("PG_PORT", 5432),
			User:               getEnv("PG_USER", "postgres"),
			Password:           getEnv("PG_PASSWORD", ""),
			Database:           getEnv("PG_DATABASE", "realty"),
			SSLMode:            getEnv("PG_SSLMODE", "disable"),
			MaxConnections:     getEnvAsInt("PG_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("PG_MAX_IDLE_CONNECTIONS", 2),
		},
		Redis: RedisConfig{
			Address:     getEnv("REDIS_ADDR", ""),
			Password:    getEnv("REDIS_PASSWORD", ""),
			DB:          getEnvAsInt("REDIS_DB", 0),
			ListingsTTL: getEnvAsDuration("LISTINGS_CACHE_TTL", 10*time.Minute),
			WarmSpec:    getEnv("LISTINGS_CACHE_WARM", "@every 8m"),
		},
		OpenAI: OpenAIConfig{
			APIKey:              getEnv("OPENAI_API_KEY", ""),
			APIBase:             strings.TrimRight(getEnv("OPENAI_API_BASE", "https://api.openai.com/v1"), "/"),
			ChatModel:           getEnv("OPENAI_CHAT_MODEL", "gpt-4.1-mini"),
			ChatTemperature:     getEnvAsFloat("OPENAI_CHAT_TEMPERATURE", 0.5),
			ChatTopP:            getEnvAsFloat("OPENAI_CHAT_TOP_P", 0),
			ChatMaxTokens:       getEnvAsInt("OPENAI_CHAT_MAX_TOKENS", 300),
			ChatExtraBody:       getEnv("OPENAI_CHAT_EXTRA_BODY", ""),
			EmbeddingModel:      getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			EmbeddingDimensions: getEnvAsInt("OPENAI_EMBEDDING_DIMENSIONS", 1536),
			Timeout:             getEnvAsInt("OPENAI_TIMEOUT", 30),
			ExtractionTimeout:   getEnvAsDuration("OPENAI_EXTRACTION_TIMEOUT", 4*time.Second),
			AIExtraction:        getEnvAsBool("OPENAI_AI_EXTRACTION", true),
			Enabled:             getEnv("OPENAI_API_KEY", "") != "",
		},
		Listings: ListingsConfig{
			Provider:       strings.ToLower(getEnv("LISTINGS_PROVIDER", ProviderStatic)),
			StaticFallback: getEnvAsBool("LISTINGS_STATIC_FALLBACK", true),
			ChatLimit:      getEnvAsInt("LISTINGS_CHAT_LIMIT", 3),
			MaxLimit:       getEnvAsInt("LISTINGS_MAX_LIMIT", 50),
		},
		MLS: MLSConfig{
			BaseURL:     strings.TrimRight(getEnv("MLS_ODATA_URL", "https://query.ampre.ca/odata"), "/"),
			Token:       getEnv("MLS_TOKEN", ""),
			PageSize:    getEnvAsInt("MLS_PAGE_SIZE", 50),
			PhotoFanout: getEnvAsInt("MLS_PHOTO_FANOUT", 4),
			Timeout:     getEnvAsDuration("MLS_TIMEOUT", 15*time.Second),
		},
		Scrape: ScrapeConfig{
			URLs:        getEnvAsList("SCRAPE_URLS", nil),
			UserAgent:   getEnv("SCRAPE_USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
			Timeout:     getEnvAsDuration("SCRAPE_TIMEOUT", 15*time.Second),
			Parallelism: getEnvAsInt("SCRAPE_PARALLELISM", 2),
		},
		Agent: AgentConfig{
			Name:      getEnv("AGENT_NAME", "our listing agent"),
			Phone:     getEnv("AGENT_PHONE", ""),
			Brokerage: getEnv("AGENT_BROKERAGE", ""),
		},
		Avatar: AvatarConfig{
			APIKey:      getEnv("HEYGEN_API_KEY", ""),
			APIBase:     strings.TrimRight(getEnv("HEYGEN_API_BASE", "https://api.heygen.com"), "/"),
			SessionID:   getEnv("HEYGEN_SESSION_ID", ""),
			PerChar:     getEnvAsDuration("AVATAR_MS_PER_CHAR", 50*time.Millisecond),
			MinDuration: getEnvAsDuration("AVATAR_MIN_DURATION", 2*time.Second),
			AwaitReady:  getEnvAsBool("AVATAR_AWAIT_READY", true),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getEnvAsInt("RATE_LIMIT_RPM", 30),
			Burst:             getEnvAsInt("RATE_LIMIT_BURST", 10),
		},
		Logging: LoggingConfig{
			Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and cross-field requirements
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Listings.Provider == ProviderPostgres && !c.PostgreSQL.Configured() {
		return fmt.Errorf("invalid configuration: LISTINGS_PROVIDER=postgres requires DATABASE_URL or PG_HOST")
	}
	if c.Listings.Provider == ProviderScrape && len(c.Scrape.URLs) == 0 {
		return fmt.Errorf("invalid configuration: LISTINGS_PROVIDER=scrape requires SCRAPE_URLS")
	}
	return nil
}

// Configured reports whether enough settings exist to open a connection
func (p PostgreSQLConfig) Configured() bool {
	return p.DSN != "" || p.Host != ""
}

// GetPostgreSQLDSN returns PostgreSQL connection string
func (c *Config) GetPostgreSQLDSN() string {
	if c.PostgreSQL.DSN != "" {
		return c.PostgreSQL.DSN
	}

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgreSQL.Host,
		c.PostgreSQL.Port,
		c.PostgreSQL.User,
		c.PostgreSQL.Password,
		c.PostgreSQL.Database,
		c.PostgreSQL.SSLMode,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer value for %s, using default %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid float value for %s, using default %f", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid bool value for %s, using default %t", key, defaultValue)
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go durations ("4s") or a bare integer of milliseconds
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if ms, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid duration value for %s, using default %s", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
