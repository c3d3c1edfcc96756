package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &entry); err != nil {
		t.Fatalf("unmarshal log line %q: %v", lines[len(lines)-1], err)
	}
	return entry
}

func TestErrorCarriesContextFieldsAndStack(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "orders-api", Output: buf})

	ctx := log.WithRequestID(context.Background(), "req-123")
	ctx = log.WithFields(ctx, map[string]any{"order_id": "o-9"})
	log.Error(ctx, "stock reservation failed", errors.New("insufficient stock"))

	entry := lastEntry(t, buf)
	if entry["service"] != "orders-api" {
		t.Fatalf("service = %v", entry["service"])
	}
	if entry["request_id"] != "req-123" {
		t.Fatalf("request_id = %v", entry["request_id"])
	}
	if entry["order_id"] != "o-9" {
		t.Fatalf("order_id = %v", entry["order_id"])
	}
	if entry["error"] != "insufficient stock" {
		t.Fatalf("error = %v", entry["error"])
	}
	if _, ok := entry["stack"]; !ok {
		t.Fatal("error entries must carry a stack")
	}
}

func TestWarnStackToggle(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "orders-api", Output: buf, WarnStack: true})
	log.Warn(context.Background(), "payment provider slow")
	if _, ok := lastEntry(t, buf)["stack"]; !ok {
		t.Fatal("expected stack when WarnStack is on")
	}

	buf.Reset()
	log = New(Options{ServiceName: "orders-api", Output: buf})
	log.Warn(context.Background(), "payment provider slow")
	if _, ok := lastEntry(t, buf)["stack"]; ok {
		t.Fatal("expected no stack when WarnStack is off")
	}
}

func TestInfoRespectsLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "orders-api", Output: buf, Level: zerolog.WarnLevel})
	log.Info(context.Background(), "suppressed")
	if buf.Len() != 0 {
		t.Fatalf("info below warn level must be dropped, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	if lvl := ParseLevel(""); lvl != zerolog.InfoLevel {
		t.Fatalf("empty should default to info, got %v", lvl)
	}
	if lvl := ParseLevel("garbage"); lvl != zerolog.InfoLevel {
		t.Fatalf("unknown should default to info, got %v", lvl)
	}
	if lvl := ParseLevel(" DEBUG "); lvl != zerolog.DebugLevel {
		t.Fatalf("debug parse = %v", lvl)
	}
}
