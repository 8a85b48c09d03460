package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, StorageMemory, cfg.Storage.Provider)
	assert.Equal(t, int64(100<<20), cfg.Storage.MaxUploadBytes)
	assert.False(t, cfg.Neo4j.Enabled)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 7*24*time.Hour, cfg.Redis.StatusTTL)
	assert.Equal(t, "local", cfg.Classifier.Mode)
	assert.Equal(t, 120*time.Second, cfg.Classifier.Timeout)
	assert.Equal(t, 0.8, cfg.Analysis.TypeThreshold)
	assert.Equal(t, 64, cfg.Analysis.QueueSize)
	assert.True(t, cfg.IsProduction())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORAGE_PROVIDER", "MinIO")
	t.Setenv("S3_ENDPOINT", "localhost:9000")
	t.Setenv("AWS_ACCESS_KEY_ID", "minio")
	t.Setenv("CLASSIFIER_MODE", "process")
	t.Setenv("CLASSIFIER_COMMAND", "python3")
	t.Setenv("CLASSIFIER_ARGS", "classify.py, --json")
	t.Setenv("CLASSIFIER_TIMEOUT", "90s")
	t.Setenv("RUN_QUEUE_SIZE", "8")
	t.Setenv("ANALYSIS_TYPE_THRESHOLD", "0.9")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorageMinio, cfg.Storage.Provider)
	assert.Equal(t, []string{"classify.py", "--json"}, cfg.Classifier.Args)
	assert.Equal(t, 90*time.Second, cfg.Classifier.Timeout)
	assert.Equal(t, 8, cfg.Analysis.QueueSize)
	assert.Equal(t, 0.9, cfg.Analysis.TypeThreshold)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Storage:    StorageConfig{Provider: StorageMemory, MaxUploadBytes: 1 << 20},
			Analysis:   AnalysisConfig{Workers: 1, RunWorkers: 1, QueueSize: 1, TypeThreshold: 0.8},
			Classifier: ClassifierConfig{Mode: "local"},
		}
	}
	require.NoError(t, valid().Validate())

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"neo4j without password", func(c *Config) { c.Neo4j.Enabled = true }},
		{"oidc without issuer", func(c *Config) { c.OIDC.Enabled = true }},
		{"unknown storage", func(c *Config) { c.Storage.Provider = "gcs" }},
		{"s3 without bucket", func(c *Config) { c.Storage.Provider = StorageS3 }},
		{"minio without endpoint", func(c *Config) { c.Storage.Provider = StorageMinio; c.Storage.Bucket = "b" }},
		{"no upload limit", func(c *Config) { c.Storage.MaxUploadBytes = 0 }},
		{"kafka without brokers", func(c *Config) { c.Kafka.Enabled = true }},
		{"no workers", func(c *Config) { c.Analysis.RunWorkers = 0 }},
		{"threshold out of range", func(c *Config) { c.Analysis.TypeThreshold = 1.5 }},
		{"process without command", func(c *Config) { c.Classifier.Mode = "process" }},
		{"http without url", func(c *Config) { c.Classifier.Mode = "http" }},
		{"unknown classifier", func(c *Config) { c.Classifier.Mode = "grpc" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
