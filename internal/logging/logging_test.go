package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestNew(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := New("warn", "json", &buf)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("dropped")
	logger.Warn("kept", "reservation_id", "rsv-1")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected a single JSON line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "kept" || entry["reservation_id"] != "rsv-1" {
		t.Fatalf("unexpected entry %v", entry)
	}

	if _, err := New("loud", "json", &buf); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	if _, err := New("info", "xml", &buf); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestContextLogger(t *testing.T) {
	t.Parallel()

	if FromContext(context.Background()) != nil {
		t.Fatalf("expected no logger on a bare context")
	}
	logger := slog.Default()
	ctx := ContextWithLogger(context.Background(), logger)
	if FromContext(ctx) != logger {
		t.Fatalf("expected logger round trip through context")
	}
}
