package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/nico2sh/romst/internal/services"
)

func TestConsoleHandlerFormatsLine(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelInfo)
	logger := slog.New(newConsoleHandler(&buf, lvl))

	logger.Info("scan finished", String(FieldComponent, "scanner"), Int("sets", 3))

	line := buf.String()
	if !strings.Contains(line, "INFO scanner: scan finished") {
		t.Fatalf("line = %q, want component prefix and message", line)
	}
	if !strings.Contains(line, "sets=3") {
		t.Fatalf("line = %q, want sets attribute", line)
	}
}

func TestConsoleHandlerQuotesValues(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl))

	logger.Info("hashed", String("file", "some rom.bin"))

	if !strings.Contains(buf.String(), `file="some rom.bin"`) {
		t.Fatalf("line = %q, want quoted file value", buf.String())
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("New accepted unsupported format")
	}
}

func TestContextFields(t *testing.T) {
	ctx := services.WithMachine(context.Background(), "mslug")
	ctx = services.WithPhase(ctx, "verify")

	fields := ContextFields(ctx)
	if len(fields) != 2 {
		t.Fatalf("len(fields) = %d, want 2", len(fields))
	}
	if fields[0].Key != FieldMachine || fields[0].Value.String() != "mslug" {
		t.Fatalf("fields[0] = %v, want machine attribute", fields[0])
	}
}

func TestNewNopDiscards(t *testing.T) {
	logger := NewNop()
	logger.Error("ignored", Error(nil))
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("no-op logger reports enabled")
	}
}
