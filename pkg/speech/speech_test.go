package speech

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSegment(t *testing.T) {
	if got := segment(""); got != nil {
		t.Fatalf("empty text should yield no segments: %v", got)
	}

	short := segment("a short sentence")
	if len(short) != 1 || short[0] != "a short sentence" {
		t.Fatalf("short text: %v", short)
	}

	long := segment(strings.Repeat("word ", 100))
	if len(long) < 2 {
		t.Fatalf("expected multiple segments, got %d", len(long))
	}
	for i, seg := range long {
		if len(seg) > maxSegmentLen {
			t.Fatalf("segment %d too long: %d", i, len(seg))
		}
	}
	if joined := strings.Join(long, " "); joined != strings.TrimSpace(strings.Repeat("word ", 100)) {
		t.Fatal("segments must preserve the words")
	}

	// A single oversized word is hard-cut rather than dropped.
	huge := segment(strings.Repeat("x", maxSegmentLen*2+10))
	if len(huge) != 3 {
		t.Fatalf("expected 3 segments for oversized word, got %d", len(huge))
	}
}

func TestSynthesizeWritesFile(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.URL.Query().Get("tl") != "en" {
			t.Errorf("language: %q", r.URL.Query().Get("tl"))
		}
		w.Write([]byte("MP3DATA"))
	}))
	defer server.Close()

	synth := NewSynthesizer("en", nil)
	synth.endpoint = server.URL

	dest := filepath.Join(t.TempDir(), "audio", "gratitude.mp3")
	if err := synth.Synthesize(context.Background(), "thank you for the coffee", dest); err != nil {
		t.Fatalf("synthesize: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read audio: %v", err)
	}
	if string(data) != strings.Repeat("MP3DATA", requests) {
		t.Fatalf("unexpected audio content: %q", data)
	}
}

func TestSynthesizeEndpointFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	synth := NewSynthesizer("en", nil)
	synth.endpoint = server.URL

	dest := filepath.Join(t.TempDir(), "out.mp3")
	if err := synth.Synthesize(context.Background(), "some text", dest); err == nil {
		t.Fatal("expected error from failing endpoint")
	}
}

func TestSynthesizeEmptyText(t *testing.T) {
	synth := NewSynthesizer("en", nil)
	if err := synth.Synthesize(context.Background(), "   ", filepath.Join(t.TempDir(), "o.mp3")); err == nil {
		t.Fatal("expected error for empty text")
	}
}

func TestCleanupDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "audio")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.mp3"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	CleanupDir(dir, nil)
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatal("expected directory to be removed")
	}

	// Removing a missing directory is fine.
	CleanupDir(dir, nil)
	CleanupDir("", nil)
}
