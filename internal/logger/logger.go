// Package logger wraps zap with the fields used across the service.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger with run and request scoped helpers
type Logger struct {
	*zap.Logger
}

// Config holds logger configuration
type Config struct {
	Level   string
	Format  string // "json" or "console"
	Service string // attached to every entry when set
}

// New creates a logger. Unknown levels fall back to info.
func New(config Config) (*Logger, error) {
	level, err := zapcore.ParseLevel(config.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var zapConfig zap.Config
	if config.Format == "console" {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapConfig.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	} else {
		zapConfig = zap.NewProductionConfig()
		zapConfig.EncoderConfig.TimeKey = "timestamp"
		zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		zapConfig.Sampling = nil
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)
	zapConfig.OutputPaths = []string{"stderr"}

	zl, err := zapConfig.Build(
		zap.AddCallerSkip(1),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		return nil, err
	}

	l := &Logger{Logger: zl}
	if config.Service != "" {
		l = l.WithService(config.Service)
	}
	return l, nil
}

// NewNop returns a logger that discards everything, for tests and the CLI
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// WithContext adds fields to the logger
func (l *Logger) WithContext(fields ...zap.Field) *Logger {
	return &Logger{Logger: l.Logger.With(fields...)}
}

// WithRequestID adds request ID to the logger
func (l *Logger) WithRequestID(requestID string) *Logger {
	return l.WithContext(zap.String("request_id", requestID))
}

// WithSubject adds the authenticated caller to the logger
func (l *Logger) WithSubject(subject string) *Logger {
	return l.WithContext(zap.String("subject", subject))
}

// WithService adds service name to the logger
func (l *Logger) WithService(service string) *Logger {
	return l.WithContext(zap.String("service", service))
}

// WithDataset adds the dataset ID to the logger
func (l *Logger) WithDataset(datasetID string) *Logger {
	return l.WithContext(zap.String("dataset_id", datasetID))
}

// WithRun adds run identity fields to the logger
func (l *Logger) WithRun(runID, datasetID, kind string) *Logger {
	return l.WithContext(
		zap.String("run_id", runID),
		zap.String("dataset_id", datasetID),
		zap.String("run_kind", kind),
	)
}

// LogHTTPRequest logs one served request
func (l *Logger) LogHTTPRequest(method, path, userAgent, clientIP string, statusCode int, duration float64) {
	fields := []zap.Field{
		zap.String("method", method),
		zap.String("path", path),
		zap.String("user_agent", userAgent),
		zap.String("client_ip", clientIP),
		zap.Int("status_code", statusCode),
		zap.Float64("duration_ms", duration),
	}
	if statusCode >= 500 {
		l.Warn("HTTP request", fields...)
		return
	}
	l.Info("HTTP request", fields...)
}

// LogDatabaseQuery logs a Cypher statement or named transaction
func (l *Logger) LogDatabaseQuery(query string, duration float64, err error) {
	fields := []zap.Field{
		zap.String("query", query),
		zap.Float64("duration_ms", duration),
	}
	if err != nil {
		l.Error("Database query failed", append(fields, zap.Error(err))...)
		return
	}
	l.Debug("Database query executed", fields...)
}

// LogServiceCall logs a call to a collaborator (storage, status store,
// classifier, broker)
func (l *Logger) LogServiceCall(service, operation string, duration float64, err error) {
	fields := []zap.Field{
		zap.String("service", service),
		zap.String("operation", operation),
		zap.Float64("duration_ms", duration),
	}
	if err != nil {
		l.Error("Service call failed", append(fields, zap.Error(err))...)
		return
	}
	l.Debug("Service call completed", fields...)
}

// LogStage logs the outcome of one pipeline stage. Stage failures are
// warnings: the run may still finish partially.
func (l *Logger) LogStage(stage string, duration float64, err error, fields ...zap.Field) {
	fields = append(fields,
		zap.String("stage", stage),
		zap.Float64("duration_ms", duration),
	)
	if err != nil {
		l.Warn("Pipeline stage failed", append(fields, zap.Error(err))...)
		return
	}
	l.Debug("Pipeline stage completed", fields...)
}
