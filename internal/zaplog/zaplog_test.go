package zaplog

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerForwardsFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := New(zap.New(core))

	log.Info("fulfill job done", "order_id", "501", "attempts", 2)
	log.Error("fulfill refund failed", "err", errors.New("boom"))

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if entries[0].Message != "fulfill job done" || fields["order_id"] != "501" || fields["attempts"] != int64(2) {
		t.Fatalf("unexpected entry %+v %v", entries[0].Entry, fields)
	}
	if entries[1].Level != zapcore.ErrorLevel {
		t.Fatalf("expected error level, got %v", entries[1].Level)
	}
}

func TestLoggerRespectsLevel(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	log := New(zap.New(core))

	log.Debug("hidden")
	log.Info("hidden")
	log.Warn("shown")

	if logs.Len() != 1 || logs.All()[0].Message != "shown" {
		t.Fatalf("unexpected entries %+v", logs.All())
	}
}

func TestNilLoggerIsNop(t *testing.T) {
	New(nil).Info("ignored", "k", "v")
}

func TestNewZapRejectsBadLevel(t *testing.T) {
	if _, err := NewZap("loud", false); err == nil {
		t.Fatalf("expected level parse error")
	}
	log, err := NewZap("debug", true)
	if err != nil {
		t.Fatalf("new zap: %v", err)
	}
	_ = log.Sync()
}
