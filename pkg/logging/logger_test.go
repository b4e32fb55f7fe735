package logging

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func readEvents(t *testing.T, path string) []Event {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var ev Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		events = append(events, ev)
	}
	return events
}

func TestLoggerWritesEvents(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	t.Cleanup(func() { _ = logger.Close() })

	if err := logger.Info(CategorySession, "session_started", "entry flow started", map[string]any{"user": "42"}); err != nil {
		t.Fatalf("log info: %v", err)
	}
	if err := logger.Error(CategoryModel, "model_call_failed", "transport error", nil); err != nil {
		t.Fatalf("log error: %v", err)
	}

	events := readEvents(t, filepath.Join(dir, "daybook.jsonl"))
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Category != CategorySession || events[0].EventType != "session_started" {
		t.Fatalf("unexpected first event: %+v", events[0])
	}
	if events[0].Timestamp.IsZero() {
		t.Fatal("expected timestamp to be filled")
	}

	// Errors are duplicated into errors.jsonl.
	errs := readEvents(t, filepath.Join(dir, "errors.jsonl"))
	if len(errs) != 1 || errs[0].Level != LevelError {
		t.Fatalf("expected 1 error event, got %+v", errs)
	}
}

func TestLoggerMinLevel(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	t.Cleanup(func() { _ = logger.Close() })

	if err := logger.Debug(CategoryParser, "section_defaulted", "fallback applied", nil); err != nil {
		t.Fatalf("log debug: %v", err)
	}

	events := readEvents(t, filepath.Join(dir, "daybook.jsonl"))
	if len(events) != 0 {
		t.Fatalf("debug should be filtered at default level, got %d events", len(events))
	}

	logger.SetMinLevel(LevelDebug)
	if err := logger.Debug(CategoryParser, "section_defaulted", "fallback applied", nil); err != nil {
		t.Fatalf("log debug: %v", err)
	}
	events = readEvents(t, filepath.Join(dir, "daybook.jsonl"))
	if len(events) != 1 {
		t.Fatalf("expected debug event after lowering level, got %d", len(events))
	}
}

func TestDiscardLogger(t *testing.T) {
	logger := NewDiscardLogger()
	if err := logger.Info(CategorySession, "noop", "", nil); err != nil {
		t.Fatalf("discard logger should not error: %v", err)
	}
}
