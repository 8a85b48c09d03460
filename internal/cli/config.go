package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Tributary-ai-services/aether-insights/internal/classifier"
	"github.com/Tributary-ai-services/aether-insights/internal/config"
	"github.com/Tributary-ai-services/aether-insights/internal/pipeline"
)

// EnvPrefix namespaces environment overrides, e.g. INSIGHTS_ANALYSIS_WORKERS
const EnvPrefix = "INSIGHTS"

// Settings is the CLI configuration
type Settings struct {
	LogLevel   string             `mapstructure:"log_level" yaml:"log_level"`
	Analysis   AnalysisSettings   `mapstructure:"analysis" yaml:"analysis"`
	Classifier ClassifierSettings `mapstructure:"classifier" yaml:"classifier"`
	Kafka      KafkaSettings      `mapstructure:"kafka" yaml:"kafka"`
}

// AnalysisSettings tune the engine
type AnalysisSettings struct {
	SampleSize             int     `mapstructure:"sample_size" yaml:"sample_size"`
	TypeThreshold          float64 `mapstructure:"type_threshold" yaml:"type_threshold"`
	CategoricalLimit       int     `mapstructure:"categorical_limit" yaml:"categorical_limit"`
	Workers                int     `mapstructure:"workers" yaml:"workers"`
	MaxCharts              int     `mapstructure:"max_charts" yaml:"max_charts"`
	MaxCorrelationInsights int     `mapstructure:"max_correlation_insights" yaml:"max_correlation_insights"`
}

// ClassifierSettings select the semantic classifier
type ClassifierSettings struct {
	Mode    string   `mapstructure:"mode" yaml:"mode"`
	Command string   `mapstructure:"command" yaml:"command,omitempty"`
	Args    []string `mapstructure:"args" yaml:"args,omitempty"`
	URL     string   `mapstructure:"url" yaml:"url,omitempty"`
	Timeout string   `mapstructure:"timeout" yaml:"timeout"`
}

// KafkaSettings locate the run event topic
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers" yaml:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix" yaml:"topic_prefix"`
	GroupID     string   `mapstructure:"group_id" yaml:"group_id"`
}

// LoadSettings reads configuration from defaults, an optional YAML file and
// the environment. Precedence: env > config file > defaults.
func LoadSettings(cfgFile string) (*Settings, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := pipeline.DefaultEngineOptions()
	v.SetDefault("log_level", "warn")
	v.SetDefault("analysis.sample_size", defaults.Infer.SampleSize)
	v.SetDefault("analysis.type_threshold", defaults.Infer.Threshold)
	v.SetDefault("analysis.categorical_limit", defaults.Infer.CategoricalLimit)
	v.SetDefault("analysis.workers", defaults.Workers)
	v.SetDefault("analysis.max_charts", defaults.Charts.MaxCharts)
	v.SetDefault("analysis.max_correlation_insights", defaults.Miner.MaxCorrelationInsights)
	v.SetDefault("classifier.mode", classifier.ModeLocal)
	v.SetDefault("classifier.command", "")
	v.SetDefault("classifier.args", []string{})
	v.SetDefault("classifier.url", "")
	v.SetDefault("classifier.timeout", classifier.DefaultTimeout.String())
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic_prefix", "aether")
	v.SetDefault("kafka.group_id", "insightctl")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".aether-insights"))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// optional read
		_ = v.ReadInConfig()
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate rejects settings the engine cannot run with
func (s *Settings) Validate() error {
	if s.Analysis.Workers <= 0 {
		return fmt.Errorf("analysis.workers must be positive")
	}
	if s.Analysis.TypeThreshold <= 0 || s.Analysis.TypeThreshold > 1 {
		return fmt.Errorf("analysis.type_threshold must be in (0, 1]")
	}
	if s.Analysis.MaxCharts <= 0 {
		return fmt.Errorf("analysis.max_charts must be positive")
	}
	if _, err := s.classifierConfig(); err != nil {
		return err
	}
	return nil
}

// EngineOptions applies the analysis settings to the engine defaults
func (s *Settings) EngineOptions() pipeline.EngineOptions {
	opt := pipeline.DefaultEngineOptions()
	opt.Workers = s.Analysis.Workers
	opt.Infer.SampleSize = s.Analysis.SampleSize
	opt.Infer.Threshold = s.Analysis.TypeThreshold
	opt.Infer.CategoricalLimit = s.Analysis.CategoricalLimit
	opt.Miner.Workers = s.Analysis.Workers
	opt.Miner.MaxCorrelationInsights = s.Analysis.MaxCorrelationInsights
	opt.Charts.MaxCharts = s.Analysis.MaxCharts
	return opt
}

func (s *Settings) classifierConfig() (classifier.Config, error) {
	cfg := classifier.Config{
		Mode:    strings.ToLower(s.Classifier.Mode),
		Command: s.Classifier.Command,
		Args:    s.Classifier.Args,
		URL:     s.Classifier.URL,
	}
	if s.Classifier.Timeout != "" {
		d, err := time.ParseDuration(s.Classifier.Timeout)
		if err != nil {
			return cfg, fmt.Errorf("classifier.timeout: %w", err)
		}
		cfg.Timeout = d
	}
	switch cfg.Mode {
	case classifier.ModeLocal, classifier.ModeProcess, classifier.ModeHTTP:
	default:
		return cfg, fmt.Errorf("unknown classifier.mode %q", s.Classifier.Mode)
	}
	return cfg, nil
}

func (s *Settings) kafkaConfig() config.KafkaConfig {
	return config.KafkaConfig{
		Enabled:     true,
		Brokers:     s.Kafka.Brokers,
		TopicPrefix: s.Kafka.TopicPrefix,
	}
}
