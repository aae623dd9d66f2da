package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Assembly AssemblyAIConfig
	Extract  ExtractConfig
	Dispatch DispatchConfig
	Slack    SlackConfig
	Storage  StorageConfig
	Pipeline PipelineConfig
	Poller   PollerConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string
	Host            string
	Environment     string
	AllowedOrigins  []string
	ShutdownTimeout int
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host        string
	Port        string
	User        string
	Password    string
	Name        string
	SSLMode     string
	MaxConns    int
	MinConns    int
	AutoMigrate bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// JWTConfig holds bearer-token configuration for the realtime gateway
// and the HTTP API
type JWTConfig struct {
	AccessSecret string
	AccessExpiry time.Duration
}

// AssemblyAIConfig holds transcription collaborator configuration
type AssemblyAIConfig struct {
	APIKey       string
	BaseURL      string // empty means the AssemblyAI production API
	LanguageCode string
	PollInterval time.Duration
}

// ExtractConfig holds the entity/intent extraction collaborator
// configuration. With no API key the built-in heuristic extractor is
// used instead of the LLM endpoint.
type ExtractConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// DispatchConfig holds the incident/task back-end collaborator endpoints
type DispatchConfig struct {
	BaseURL string
	APIKey  string
}

// SlackConfig holds the notify collaborator configuration
type SlackConfig struct {
	Token          string
	DefaultChannel string
}

// StorageConfig holds audio object storage configuration
type StorageConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	UseSSL          bool
	PublicURL       string
}

// PipelineConfig tunes the annotation worker pool. Loaded via
// envconfig under the PIPELINE_ prefix.
type PipelineConfig struct {
	Workers             int           `envconfig:"WORKERS" default:"4"`
	QueueSize           int           `envconfig:"QUEUE_SIZE" default:"256"`
	CollaboratorTimeout time.Duration `envconfig:"COLLABORATOR_TIMEOUT" default:"90s"`
}

// PollerConfig tunes the polling-api channel scanner
type PollerConfig struct {
	Enabled  bool
	Schedule string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables or defaults")
	}

	config := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Host:            getEnv("HOST", "0.0.0.0"),
			Environment:     getEnv("ENVIRONMENT", "development"),
			AllowedOrigins:  strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:3000"), ","),
			ShutdownTimeout: getEnvAsInt("SHUTDOWN_TIMEOUT", 10),
		},
		Database: DatabaseConfig{
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        getEnv("DB_PORT", "5432"),
			User:        getEnv("DB_USER", "postgres"),
			Password:    getEnv("DB_PASSWORD", "postgres"),
			Name:        getEnv("DB_NAME", "airdispatch"),
			SSLMode:     getEnv("DB_SSLMODE", "disable"),
			MaxConns:    getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:    getEnvAsInt("DB_MIN_CONNS", 5),
			AutoMigrate: getEnvAsBool("DB_AUTO_MIGRATE", false),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			AccessSecret: getEnv("JWT_ACCESS_SECRET", "your-access-secret-change-in-production"),
			AccessExpiry: getEnvAsDuration("JWT_ACCESS_EXPIRY", "1h"),
		},
		Assembly: AssemblyAIConfig{
			APIKey:       getEnv("ASSEMBLYAI_API_KEY", ""),
			BaseURL:      getEnv("ASSEMBLYAI_BASE_URL", ""),
			LanguageCode: getEnv("ASSEMBLYAI_LANGUAGE", "en"),
			PollInterval: getEnvAsDuration("ASSEMBLYAI_POLL_INTERVAL", "3s"),
		},
		Extract: ExtractConfig{
			APIKey:  getEnv("EXTRACT_API_KEY", ""),
			BaseURL: getEnv("EXTRACT_API_URL", "https://api.groq.com"),
			Model:   getEnv("EXTRACT_MODEL", "llama-3.1-70b-versatile"),
		},
		Dispatch: DispatchConfig{
			BaseURL: getEnv("DISPATCH_API_URL", "http://localhost:9090"),
			APIKey:  getEnv("DISPATCH_API_KEY", ""),
		},
		Slack: SlackConfig{
			Token:          getEnv("SLACK_TOKEN", ""),
			DefaultChannel: getEnv("SLACK_DEFAULT_CHANNEL", "#dispatch"),
		},
		Storage: StorageConfig{
			Endpoint:        getEnv("STORAGE_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getEnv("STORAGE_ACCESS_KEY", "minioadmin"),
			SecretAccessKey: getEnv("STORAGE_SECRET_KEY", "minioadmin"),
			BucketName:      getEnv("STORAGE_BUCKET", "airdispatch-audio"),
			UseSSL:          getEnvAsBool("STORAGE_USE_SSL", false),
			PublicURL:       getEnv("STORAGE_PUBLIC_URL", ""),
		},
		Poller: PollerConfig{
			Enabled:  getEnvAsBool("POLLER_ENABLED", true),
			Schedule: getEnv("POLLER_SCHEDULE", "@every 30s"),
		},
	}

	if err := envconfig.Process("pipeline", &config.Pipeline); err != nil {
		return nil, fmt.Errorf("failed to load pipeline config: %w", err)
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Environment == "production" && c.JWT.AccessSecret == "your-access-secret-change-in-production" {
		return fmt.Errorf("JWT_ACCESS_SECRET must be set in production")
	}
	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("PIPELINE_WORKERS must be at least 1")
	}
	return nil
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}
	return duration
}
