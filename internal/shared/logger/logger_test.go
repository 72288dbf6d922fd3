package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestInitWithWriter_EmitsJSON(t *testing.T) {
	prev := L
	defer func() {
		L = prev
		slog.SetDefault(prev)
	}()

	var buf bytes.Buffer
	InitWithWriter(&buf, "info")
	L.Debug("hidden")
	L.Info("sync finished", "item_id", "item-1")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected a single JSON line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "sync finished" {
		t.Errorf("msg = %v, want %q", entry["msg"], "sync finished")
	}
	if entry["item_id"] != "item-1" {
		t.Errorf("item_id = %v, want %q", entry["item_id"], "item-1")
	}
}

func TestFromContext(t *testing.T) {
	if FromContext(context.Background()) != L {
		t.Error("FromContext() without a stored logger should return L")
	}

	custom := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx := WithContext(context.Background(), custom)
	if FromContext(ctx) != custom {
		t.Error("FromContext() did not return the stored logger")
	}
}
