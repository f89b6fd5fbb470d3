// Package zaplog adapts zap to the Logger port.
package zaplog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/submgr/billing/internal/domain/ports"
)

// Adapter wraps a zap.Logger behind the Logger port interface
type Adapter struct {
	logger *zap.Logger
}

// New creates an adapter around an existing zap logger
func New(logger *zap.Logger) *Adapter {
	return &Adapter{logger: logger}
}

// NewProduction creates a production logger at the given level
func NewProduction(level string) (*Adapter, error) {
	cfg := zap.NewProductionConfig()
	if err := applyLevel(&cfg, level); err != nil {
		return nil, err
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Adapter{logger: logger}, nil
}

// NewDevelopment creates a development logger at the given level
func NewDevelopment(level string) (*Adapter, error) {
	cfg := zap.NewDevelopmentConfig()
	if err := applyLevel(&cfg, level); err != nil {
		return nil, err
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Adapter{logger: logger}, nil
}

func applyLevel(cfg *zap.Config, level string) error {
	if level == "" {
		return nil
	}
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		return err
	}
	cfg.Level = zap.NewAtomicLevelAt(parsed)
	return nil
}

// Sync flushes buffered log entries
func (a *Adapter) Sync() error {
	return a.logger.Sync()
}

// Info logs an info message
func (a *Adapter) Info(msg string, fields ...ports.Field) {
	a.logger.Info(msg, convertFields(fields)...)
}

// Error logs an error message
func (a *Adapter) Error(msg string, fields ...ports.Field) {
	a.logger.Error(msg, convertFields(fields)...)
}

// Warn logs a warning message
func (a *Adapter) Warn(msg string, fields ...ports.Field) {
	a.logger.Warn(msg, convertFields(fields)...)
}

// Debug logs a debug message
func (a *Adapter) Debug(msg string, fields ...ports.Field) {
	a.logger.Debug(msg, convertFields(fields)...)
}

// convertFields converts port fields to zap fields
func convertFields(fields []ports.Field) []zap.Field {
	zapFields := make([]zap.Field, len(fields))
	for i, f := range fields {
		zapFields[i] = zap.Any(f.Key, f.Value)
	}
	return zapFields
}
