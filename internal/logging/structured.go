// Package logging provides structured logging for the isochrone tools
package logging

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger with isochrone-specific event helpers
type Logger struct {
	*zap.Logger
	fields map[string]interface{}
}

// Config holds logging configuration
type Config struct {
	Level       string            `toml:"level"`
	Format      string            `toml:"format"` // "json" or "console"
	OutputPath  string            `toml:"output_path"`
	Fields      map[string]string `toml:"fields"`
	Development bool              `toml:"development"`
}

// NewLogger creates a new structured logger
func NewLogger(config Config) (*Logger, error) {
	var zapConfig zap.Config

	if config.Development {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
	}

	level, err := zap.ParseAtomicLevel(config.Level)
	if err != nil {
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	zapConfig.Level = level

	if config.Format == "console" {
		zapConfig.Encoding = "console"
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	} else {
		zapConfig.Encoding = "json"
	}

	// Figures may be written to stdout, so logs default to stderr
	zapConfig.OutputPaths = []string{"stderr"}
	if config.OutputPath != "" {
		zapConfig.OutputPaths = []string{config.OutputPath}
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}

	fields := make(map[string]interface{}, len(config.Fields))
	zapFields := make([]zap.Field, 0, len(config.Fields))
	for k, v := range config.Fields {
		fields[k] = v
		zapFields = append(zapFields, zap.String(k, v))
	}

	return &Logger{
		Logger: logger.With(zapFields...),
		fields: fields,
	}, nil
}

// NewDefaultLogger creates a logger with sensible defaults
func NewDefaultLogger() *Logger {
	config := Config{
		Level:  "info",
		Format: "console",
		Fields: map[string]string{
			"service": "isochrone",
		},
	}

	logger, err := NewLogger(config)
	if err != nil {
		zapLogger, _ := zap.NewProduction()
		return &Logger{
			Logger: zapLogger,
			fields: map[string]interface{}{"service": "isochrone"},
		}
	}

	return logger
}

// NewNopLogger returns a logger that discards everything
func NewNopLogger() *Logger {
	return &Logger{Logger: zap.NewNop(), fields: map[string]interface{}{}}
}

// Fields returns a copy of the fields attached to this logger
func (l *Logger) Fields() map[string]interface{} {
	out := make(map[string]interface{}, len(l.fields))
	for k, v := range l.fields {
		out[k] = v
	}
	return out
}

// WithField adds a field to the logger context
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

// WithFields adds multiple fields to the logger context
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	newFields := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		newFields[k] = v
	}

	zapFields := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		newFields[k] = v
		zapFields = append(zapFields, zap.Any(k, v))
	}

	return &Logger{
		Logger: l.Logger.With(zapFields...),
		fields: newFields,
	}
}

// LogLoadEvent logs the outcome of loading one isochrone table
func (l *Logger) LogLoadEvent(source string, rows, headerRows int, duration time.Duration) {
	l.Info("Isochrone table loaded",
		zap.String("source", source),
		zap.Int("rows", rows),
		zap.Int("header_rows_dropped", headerRows),
		zap.Duration("duration", duration))
}

// LogPerformanceMetric logs performance-related metrics
func (l *Logger) LogPerformanceMetric(metric string, value interface{}, unit string) {
	l.WithFields(map[string]interface{}{
		"metric": metric,
		"value":  value,
		"unit":   unit,
		"type":   "performance",
	}).Info("Performance metric")
}

// LogDataQualityEvent logs data quality issues
func (l *Logger) LogDataQualityEvent(source string, issue string, severity string) {
	l.WithFields(map[string]interface{}{
		"source":   source,
		"issue":    issue,
		"severity": severity,
		"type":     "data_quality",
	}).Warn("Data quality issue")
}

// Sync flushes any buffered log entries
func (l *Logger) Sync() error {
	return l.Logger.Sync()
}
