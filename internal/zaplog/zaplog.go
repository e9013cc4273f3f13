// Package zaplog adapts zap to fulfill.Logger.
package zaplog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/velmie/fulfill"
)

// Logger forwards key/value log calls to a sugared zap logger.
type Logger struct {
	sugar *zap.SugaredLogger
}

var _ fulfill.Logger = Logger{}

// New wraps log. A nil log yields a no-op logger.
func New(log *zap.Logger) Logger {
	if log == nil {
		log = zap.NewNop()
	}

	return Logger{sugar: log.Sugar()}
}

// Debug implements fulfill.Logger.
func (l Logger) Debug(msg string, args ...any) {
	l.sugar.Debugw(msg, args...)
}

// Info implements fulfill.Logger.
func (l Logger) Info(msg string, args ...any) {
	l.sugar.Infow(msg, args...)
}

// Warn implements fulfill.Logger.
func (l Logger) Warn(msg string, args ...any) {
	l.sugar.Warnw(msg, args...)
}

// Error implements fulfill.Logger.
func (l Logger) Error(msg string, args ...any) {
	l.sugar.Errorw(msg, args...)
}

// NewZap builds a JSON production logger at level ("debug", "info", "warn", "error").
// Development mode switches to the console encoder.
func NewZap(level string, development bool) (*zap.Logger, error) {
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(parsed)

	return cfg.Build()
}
