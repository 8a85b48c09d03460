package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Tributary-ai-services/aether-insights/internal/logger"
	"github.com/Tributary-ai-services/aether-insights/internal/models"
	"github.com/Tributary-ai-services/aether-insights/pkg/errors"
)

// ProcessClassifier runs an external program per request. The request JSON
// is written to stdin and a ClassificationResponse is read from stdout.
type ProcessClassifier struct {
	command string
	args    []string
	timeout time.Duration
	logger  *logger.Logger
}

// NewProcessClassifier creates a classifier that delegates to command
func NewProcessClassifier(command string, args []string, timeout time.Duration, log *logger.Logger) *ProcessClassifier {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ProcessClassifier{
		command: command,
		args:    args,
		timeout: timeout,
		logger:  log.WithService("process_classifier"),
	}
}

// Name identifies the classifier in reports
func (p *ProcessClassifier) Name() string {
	return ModeProcess
}

// Classify runs the program. A non-zero exit, malformed output or the
// timeout expiring yields a DelegationFailure.
func (p *ProcessClassifier) Classify(ctx context.Context, req models.ClassificationRequest) ([]models.ColumnClassification, error) {
	start := time.Now()

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, errors.DelegationFailure("Failed to encode classification request", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.command, p.args...)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// children that inherit stdout must not hold Run open past the deadline
	cmd.WaitDelay = 2 * time.Second

	err = cmd.Run()
	duration := float64(time.Since(start).Nanoseconds()) / 1e6
	if err != nil {
		if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("classifier timed out after %s: %w", p.timeout, ctx.Err())
		} else if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		p.logger.LogServiceCall("process_classifier", "classify", duration, err)
		return nil, errors.DelegationFailure("Classifier process failed", err).
			WithDetails("command", p.command)
	}

	results, err := decodeResponse(stdout.Bytes(), req.DatasetID)
	p.logger.LogServiceCall("process_classifier", "classify", duration, err)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("Classifier process completed",
		zap.String("dataset_id", req.DatasetID),
		zap.Int("columns", len(results)),
	)
	return results, nil
}

// decodeResponse parses and checks a classifier response body
func decodeResponse(body []byte, datasetID string) ([]models.ColumnClassification, error) {
	var resp models.ClassificationResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.DelegationFailure("Classifier returned malformed output", err)
	}
	if resp.Error != "" {
		return nil, errors.DelegationFailure("Classifier reported an error", stderrors.New(resp.Error))
	}
	if resp.DatasetID != "" && resp.DatasetID != datasetID {
		return nil, errors.DelegationFailure(
			fmt.Sprintf("Classifier answered for dataset %s", resp.DatasetID), nil)
	}
	for _, c := range resp.Classifications {
		if c.ColumnName == "" {
			return nil, errors.DelegationFailure("Classifier returned a classification without a column name", nil)
		}
	}
	if resp.Classifications == nil {
		resp.Classifications = []models.ColumnClassification{}
	}
	return resp.Classifications, nil
}
