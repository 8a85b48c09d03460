package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage providers
const (
	StorageMemory = "memory"
	StorageS3     = "s3"
	StorageMinio  = "minio"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	Neo4j      DatabaseConfig
	Redis      RedisConfig
	OIDC       OIDCConfig
	Storage    StorageConfig
	Kafka      KafkaConfig
	Monitoring MonitoringConfig
	Logger     LoggingConfig
	Analysis   AnalysisConfig
	Classifier ClassifierConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Host         string
	Port         string
	Version      string
	Environment  string
	GinMode      string
	ReadTimeout  int
	WriteTimeout int
	IdleTimeout  int
}

// DatabaseConfig holds Neo4j database configuration. When disabled, results
// are kept in process memory.
type DatabaseConfig struct {
	Enabled     bool
	URI         string
	Username    string
	Password    string
	Database    string
	MaxConns    int
	TLSInsecure bool
}

// RedisConfig holds Redis configuration. When disabled, run statuses are
// kept in process memory.
type RedisConfig struct {
	Enabled   bool
	Addr      string
	Password  string
	DB        int
	PoolSize  int
	KeyPrefix string
	StatusTTL time.Duration
}

// OIDCConfig holds bearer token verification settings
type OIDCConfig struct {
	Enabled   bool
	IssuerURL string
	ClientID  string
	// AdminRole is the realm role allowed to delete datasets
	AdminRole string
}

// StorageConfig holds dataset object storage configuration
type StorageConfig struct {
	Provider        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Endpoint        string
	UseSSL          bool
	MaxUploadBytes  int64
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Enabled     bool
	Brokers     []string
	TopicPrefix string
}

// MonitoringConfig holds monitoring configuration
type MonitoringConfig struct {
	PrometheusEnabled bool
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// AnalysisConfig tunes the analysis engine and run pool
type AnalysisConfig struct {
	SampleSize             int
	TypeThreshold          float64
	CategoricalLimit       int
	Workers                int
	RunWorkers             int
	QueueSize              int
	MaxCharts              int
	MaxCorrelationInsights int
	PreviewLimit           int
}

// ClassifierConfig selects the semantic classifier
type ClassifierConfig struct {
	Mode         string
	Command      string
	Args         []string
	URL          string
	Timeout      time.Duration
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if file doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Host:         getEnv("HOST", "0.0.0.0"),
			Port:         getEnv("PORT", "8080"),
			Version:      getEnv("VERSION", "0.1.0"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			GinMode:      getEnv("GIN_MODE", "release"),
			ReadTimeout:  getEnvInt("READ_TIMEOUT", 30),
			WriteTimeout: getEnvInt("WRITE_TIMEOUT", 30),
			IdleTimeout:  getEnvInt("IDLE_TIMEOUT", 60),
		},
		Neo4j: DatabaseConfig{
			Enabled:     getEnvBool("NEO4J_ENABLED", false),
			URI:         getEnv("NEO4J_URI", "bolt://localhost:7687"),
			Username:    getEnv("NEO4J_USERNAME", "neo4j"),
			Password:    getEnv("NEO4J_PASSWORD", ""),
			Database:    getEnv("NEO4J_DATABASE", "insights"),
			MaxConns:    getEnvInt("NEO4J_MAX_CONNS", 50),
			TLSInsecure: getEnvBool("NEO4J_TLS_INSECURE", false),
		},
		Redis: RedisConfig{
			Enabled:   getEnvBool("REDIS_ENABLED", false),
			Addr:      getEnv("REDIS_ADDR", "localhost:6379"),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getEnvInt("REDIS_DB", 0),
			PoolSize:  getEnvInt("REDIS_POOL_SIZE", 10),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "insights"),
			StatusTTL: getEnvDuration("REDIS_STATUS_TTL", 7*24*time.Hour),
		},
		OIDC: OIDCConfig{
			Enabled:   getEnvBool("OIDC_ENABLED", false),
			IssuerURL: getEnv("OIDC_ISSUER_URL", ""),
			ClientID:  getEnv("OIDC_CLIENT_ID", "aether-insights"),
			AdminRole: getEnv("OIDC_ADMIN_ROLE", "insights-admin"),
		},
		Storage: StorageConfig{
			Provider:        strings.ToLower(getEnv("STORAGE_PROVIDER", StorageMemory)),
			Region:          getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Bucket:          getEnv("S3_BUCKET", "aether-insights"),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			UseSSL:          getEnvBool("S3_USE_SSL", true),
			MaxUploadBytes:  int64(getEnvInt("MAX_UPLOAD_MB", 100)) << 20,
		},
		Kafka: KafkaConfig{
			Enabled:     getEnvBool("KAFKA_ENABLED", false),
			Brokers:     getEnvSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
			TopicPrefix: getEnv("KAFKA_TOPIC_PREFIX", "aether"),
		},
		Monitoring: MonitoringConfig{
			PrometheusEnabled: getEnvBool("PROMETHEUS_ENABLED", true),
		},
		Logger: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Analysis: AnalysisConfig{
			SampleSize:             getEnvInt("ANALYSIS_SAMPLE_SIZE", 1000),
			TypeThreshold:          getEnvFloat("ANALYSIS_TYPE_THRESHOLD", 0.8),
			CategoricalLimit:       getEnvInt("ANALYSIS_CATEGORICAL_LIMIT", 20),
			Workers:                getEnvInt("ANALYSIS_WORKERS", 4),
			RunWorkers:             getEnvInt("RUN_WORKERS", 4),
			QueueSize:              getEnvInt("RUN_QUEUE_SIZE", 64),
			MaxCharts:              getEnvInt("DASHBOARD_MAX_CHARTS", 15),
			MaxCorrelationInsights: getEnvInt("INSIGHTS_MAX_CORRELATIONS", 10),
			PreviewLimit:           getEnvInt("PREVIEW_LIMIT", 100),
		},
		Classifier: ClassifierConfig{
			Mode:         strings.ToLower(getEnv("CLASSIFIER_MODE", "local")),
			Command:      getEnv("CLASSIFIER_COMMAND", ""),
			Args:         getEnvSlice("CLASSIFIER_ARGS", nil),
			URL:          getEnv("CLASSIFIER_URL", ""),
			Timeout:      getEnvDuration("CLASSIFIER_TIMEOUT", 120*time.Second),
			ClientID:     getEnv("CLASSIFIER_CLIENT_ID", ""),
			ClientSecret: getEnv("CLASSIFIER_CLIENT_SECRET", ""),
			TokenURL:     getEnv("CLASSIFIER_TOKEN_URL", ""),
			Scopes:       getEnvSlice("CLASSIFIER_SCOPES", nil),
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Neo4j.Enabled && c.Neo4j.Password == "" {
		return fmt.Errorf("NEO4J_PASSWORD is required when Neo4j is enabled")
	}

	if c.OIDC.Enabled && c.OIDC.IssuerURL == "" {
		return fmt.Errorf("OIDC_ISSUER_URL is required when OIDC is enabled")
	}

	switch c.Storage.Provider {
	case StorageMemory:
	case StorageS3, StorageMinio:
		if c.Storage.Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for storage provider %q", c.Storage.Provider)
		}
		if c.Storage.Provider == StorageMinio && (c.Storage.Endpoint == "" || c.Storage.AccessKeyID == "") {
			return fmt.Errorf("S3_ENDPOINT and AWS_ACCESS_KEY_ID are required for MinIO storage")
		}
	default:
		return fmt.Errorf("unknown STORAGE_PROVIDER %q", c.Storage.Provider)
	}
	if c.Storage.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive")
	}

	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("at least one Kafka broker is required when Kafka is enabled")
	}

	if c.Analysis.Workers <= 0 || c.Analysis.RunWorkers <= 0 || c.Analysis.QueueSize <= 0 {
		return fmt.Errorf("ANALYSIS_WORKERS, RUN_WORKERS and RUN_QUEUE_SIZE must be positive")
	}
	if c.Analysis.TypeThreshold <= 0 || c.Analysis.TypeThreshold > 1 {
		return fmt.Errorf("ANALYSIS_TYPE_THRESHOLD must be in (0, 1]")
	}

	switch c.Classifier.Mode {
	case "local":
	case "process":
		if c.Classifier.Command == "" {
			return fmt.Errorf("CLASSIFIER_COMMAND is required for the process classifier")
		}
	case "http":
		if c.Classifier.URL == "" {
			return fmt.Errorf("CLASSIFIER_URL is required for the http classifier")
		}
	default:
		return fmt.Errorf("unknown CLASSIFIER_MODE %q", c.Classifier.Mode)
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.GinMode == "debug" || c.Server.GinMode == "dev"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.GinMode == "release"
}

// Helper functions for environment variables

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}
