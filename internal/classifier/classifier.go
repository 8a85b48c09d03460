// Package classifier assigns business-meaning types to profiled columns,
// either in process or by delegating to an external program or service.
package classifier

import (
	"context"
	"fmt"
	"time"

	"github.com/Tributary-ai-services/aether-insights/internal/logger"
	"github.com/Tributary-ai-services/aether-insights/internal/models"
)

// Modes select the classifier implementation
const (
	ModeLocal   = "local"
	ModeProcess = "process"
	ModeHTTP    = "http"
)

// DefaultTimeout bounds delegated classification calls
const DefaultTimeout = 120 * time.Second

// Classifier labels each column of a request with a semantic type. Delegated
// implementations report timeouts and bad output as DelegationFailure.
type Classifier interface {
	Name() string
	Classify(ctx context.Context, req models.ClassificationRequest) ([]models.ColumnClassification, error)
}

// Config selects and configures a classifier
type Config struct {
	Mode    string
	Command string
	Args    []string
	URL     string
	Timeout time.Duration

	// OAuth2 client credentials for the http mode. Left empty, requests are
	// sent without a token.
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string
}

// New builds the classifier named by cfg.Mode
func New(cfg Config, log *logger.Logger) (Classifier, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	switch cfg.Mode {
	case "", ModeLocal:
		return NewHeuristic(), nil
	case ModeProcess:
		if cfg.Command == "" {
			return nil, fmt.Errorf("classifier command is required for mode %q", cfg.Mode)
		}
		return NewProcessClassifier(cfg.Command, cfg.Args, cfg.Timeout, log), nil
	case ModeHTTP:
		if cfg.URL == "" {
			return nil, fmt.Errorf("classifier URL is required for mode %q", cfg.Mode)
		}
		return NewRemoteClassifier(cfg, log), nil
	default:
		return nil, fmt.Errorf("unknown classifier mode %q", cfg.Mode)
	}
}
