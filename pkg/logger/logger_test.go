package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

// captureLogger points the default slog logger at a buffer for the test.
func captureLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	old := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(old) })
	return &buf
}

func TestInitDoesNotPanic(t *testing.T) {
	Init(&Config{Level: "debug", Format: "json"})
	Init(&Config{Level: "unknown", Format: "text"})
}

func TestWithContextAddsRequestID(t *testing.T) {
	buf := captureLogger(t)

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-123")
	Info(ctx, "hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse log output: %v", err)
	}
	if entry["request_id"] != "req-123" {
		t.Errorf("Expected request_id req-123, got %v", entry["request_id"])
	}
}

func TestWithContextAddsAllKeys(t *testing.T) {
	buf := captureLogger(t)

	ctx := context.Background()
	ctx = context.WithValue(ctx, RequestIDKey, "req-1")
	ctx = context.WithValue(ctx, OwnerKey, "a@b.com")
	ctx = context.WithValue(ctx, ContractIDKey, "c-1")
	Warn(ctx, "something")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse log output: %v", err)
	}
	if entry["owner"] != "a@b.com" || entry["contract_id"] != "c-1" {
		t.Errorf("Expected owner and contract_id in output, got %v", entry)
	}
}

func TestWithContextEmptyValuesSkipped(t *testing.T) {
	buf := captureLogger(t)

	ctx := context.WithValue(context.Background(), RequestIDKey, "")
	Info(ctx, "hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse log output: %v", err)
	}
	if _, ok := entry["request_id"]; ok {
		t.Error("Expected empty request_id to be omitted")
	}
}
