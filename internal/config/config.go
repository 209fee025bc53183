package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	EnvironmentDevelopment = "development"
	EnvironmentProduction  = "production"
)

type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Storage       StorageConfig
	Stripe        StripeConfig
	Transcription TranscriptionConfig
	Telemetry     TelemetryConfig
	OpenFGA       OpenFGAConfig
}

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Environment  string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	// Type selects the backend: "local" or "s3".
	Type      string
	LocalPath string
	S3Bucket  string
	S3Region  string
}

type StripeConfig struct {
	APIKey        string
	WebhookSecret string
}

type TranscriptionConfig struct {
	// BaseURL of the hosted transcription provider API.
	BaseURL      string
	APIKey       string
	PollInterval time.Duration
	PollTimeout  time.Duration
}

type TelemetryConfig struct {
	Enabled        bool
	ExporterURL    string
	ServiceName    string
	ServiceVersion string
	Environment    string
	SamplingRatio  float64
}

type OpenFGAConfig struct {
	Enabled  bool
	APIHost  string
	APIToken string
	StoreID  string
	ModelID  string
}

func NewConfig() *Config {
	environment := getEnv("SERVER_ENVIRONMENT", EnvironmentDevelopment)

	return &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "localhost"),
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			Environment:  environment,
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "echoscribe"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
			MaxConns: getEnvInt("DB_MAX_CONNS", 10),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Storage: StorageConfig{
			Type:      getEnv("STORAGE_TYPE", "local"),
			LocalPath: getEnv("STORAGE_LOCAL_PATH", "./data/transcripts"),
			S3Bucket:  getEnv("STORAGE_S3_BUCKET", ""),
			S3Region:  getEnv("STORAGE_S3_REGION", "eu-west-1"),
		},
		Stripe: StripeConfig{
			APIKey:        getEnv("STRIPE_API_KEY", ""),
			WebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		},
		Transcription: TranscriptionConfig{
			BaseURL:      getEnv("TRANSCRIPTION_BASE_URL", "https://api.transcription.example.com"),
			APIKey:       getEnv("TRANSCRIPTION_API_KEY", ""),
			PollInterval: getEnvDuration("TRANSCRIPTION_POLL_INTERVAL", 5*time.Second),
			PollTimeout:  getEnvDuration("TRANSCRIPTION_POLL_TIMEOUT", 10*time.Minute),
		},
		Telemetry: TelemetryConfig{
			Enabled:        getEnvBool("TELEMETRY_ENABLED", false),
			ExporterURL:    getEnv("TELEMETRY_EXPORTER_URL", ""),
			ServiceName:    getEnv("TELEMETRY_SERVICE_NAME", "echoscribe"),
			ServiceVersion: getEnv("TELEMETRY_SERVICE_VERSION", "dev"),
			Environment:    environment,
			SamplingRatio:  getEnvFloat("TELEMETRY_SAMPLING_RATIO", 1.0),
		},
		OpenFGA: OpenFGAConfig{
			Enabled:  getEnvBool("OPENFGA_ENABLED", false),
			APIHost:  getEnv("OPENFGA_API_HOST", "localhost:8081"),
			APIToken: getEnv("OPENFGA_API_TOKEN", ""),
			StoreID:  getEnv("OPENFGA_STORE_ID", ""),
			ModelID:  getEnv("OPENFGA_AUTHORIZATION_MODEL_ID", ""),
		},
	}
}

// DatabaseURL builds the connection string for pgx and migrate.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port, c.Database.Name, c.Database.SSLMode)
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if durationValue, err := time.ParseDuration(value); err == nil {
			return durationValue
		}
	}
	return defaultValue
}
