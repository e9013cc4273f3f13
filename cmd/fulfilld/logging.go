package main

import (
	"go.uber.org/zap"

	"github.com/velmie/fulfill"
	"github.com/velmie/fulfill/internal/zaplog"
)

func newZap(cfg Config) (*zap.Logger, error) {
	return zaplog.NewZap(cfg.Log.Level, cfg.Log.Development)
}

func newLogger(log *zap.Logger) fulfill.Logger {
	return zaplog.New(log)
}
