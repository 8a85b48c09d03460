package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/Tributary-ai-services/aether-insights/internal/logger"
	"github.com/Tributary-ai-services/aether-insights/internal/models"
	"github.com/Tributary-ai-services/aether-insights/pkg/errors"
)

// maxResponseBytes caps how much of a classifier response is read
const maxResponseBytes = 8 << 20

// RemoteClassifier posts requests to a classification service. When client
// credentials are configured the requests carry an OAuth2 bearer token.
type RemoteClassifier struct {
	url     string
	timeout time.Duration
	client  *http.Client
	logger  *logger.Logger
}

// NewRemoteClassifier creates an HTTP classifier from cfg
func NewRemoteClassifier(cfg Config, log *logger.Logger) *RemoteClassifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := &http.Client{Timeout: timeout}
	if cfg.ClientID != "" && cfg.TokenURL != "" {
		cc := &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
		}
		client = cc.Client(context.Background())
		client.Timeout = timeout
	}

	return &RemoteClassifier{
		url:     cfg.URL,
		timeout: timeout,
		client:  client,
		logger:  log.WithService("remote_classifier"),
	}
}

// Name identifies the classifier in reports
func (r *RemoteClassifier) Name() string {
	return ModeHTTP
}

// Classify posts the request and decodes the response. Transport errors,
// non-2xx statuses and malformed bodies yield a DelegationFailure.
func (r *RemoteClassifier) Classify(ctx context.Context, req models.ClassificationRequest) ([]models.ColumnClassification, error) {
	start := time.Now()
	results, err := r.classify(ctx, req)
	duration := float64(time.Since(start).Nanoseconds()) / 1e6
	r.logger.LogServiceCall("remote_classifier", "classify", duration, err)
	return results, err
}

func (r *RemoteClassifier) classify(ctx context.Context, req models.ClassificationRequest) ([]models.ColumnClassification, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, errors.DelegationFailure("Failed to encode classification request", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.DelegationFailure("Failed to build classification request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, errors.DelegationFailure("Classifier service unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, errors.DelegationFailure("Failed to read classifier response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.DelegationFailure(
			fmt.Sprintf("Classifier service returned status %d", resp.StatusCode), nil).
			WithDetails("status_code", resp.StatusCode)
	}
	return decodeResponse(body, req.DatasetID)
}
