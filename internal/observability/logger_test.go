package observability

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestParseLogLevel verifies that parseLogLevel correctly parses log level
// strings from environment variables, handling case-insensitivity and whitespace.
func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		env    string
		expect zapcore.Level
	}{
		{"", zap.InfoLevel},
		{"INFO", zap.InfoLevel},
		{"DEBUG", zap.DebugLevel},
		{"WARN", zap.WarnLevel},
		{"ERROR", zap.ErrorLevel},
		{"debug", zap.DebugLevel},
		{"  warn  ", zap.WarnLevel},
		{"invalid", zap.InfoLevel},
	}
	for _, tt := range tests {
		level := parseLogLevel(tt.env)
		if got := level.Level(); got != tt.expect {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.env, got, tt.expect)
		}
	}
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger()
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	if logger == nil {
		t.Fatal("NewLogger() returned nil logger")
	}
	logger.Info("test message")
	_ = FlushTelemetry(logger) // can fail on /dev/stderr in test env
}

// TestLoggerFromContext verifies the request-scoped logger wins over the fallback,
// and that a missing logger never yields nil.
func TestLoggerFromContext(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	scoped := zap.New(core)
	fallback := zap.NewNop()

	ctx := ContextWithLogger(context.Background(), scoped)
	LoggerFromContext(ctx, fallback).Info("scoped")
	if logs.Len() != 1 {
		t.Errorf("expected scoped logger to be used, got %d entries", logs.Len())
	}

	if l := LoggerFromContext(context.Background(), fallback); l != fallback {
		t.Error("expected fallback logger when context has none")
	}
	if l := LoggerFromContext(context.Background(), nil); l == nil {
		t.Error("LoggerFromContext() returned nil")
	}
}

func TestCorrelationID(t *testing.T) {
	if got := CorrelationIDFromContext(context.Background()); got != "" {
		t.Errorf("CorrelationIDFromContext() = %q, want empty", got)
	}
	ctx := ContextWithCorrelationID(context.Background(), "abc-123")
	if got := CorrelationIDFromContext(ctx); got != "abc-123" {
		t.Errorf("CorrelationIDFromContext() = %q, want abc-123", got)
	}
}

func TestFlushTelemetry_NilLogger(t *testing.T) {
	if err := FlushTelemetry(nil); err != nil {
		t.Errorf("FlushTelemetry(nil) = %v", err)
	}
}
