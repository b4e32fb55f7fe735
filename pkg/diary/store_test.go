package diary

import (
	"os"
	"strings"
	"testing"
	"time"

	dberrors "github.com/daybook-bot/daybook/pkg/errors"
	"github.com/daybook-bot/daybook/pkg/paths"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(paths.NewTree(t.TempDir()))
}

func TestSaveAndReadRecord(t *testing.T) {
	store := newTestStore(t)
	rec := Record{Date: testDate, Rating: 8, Narrative: "steady", Gratitude: "coffee"}

	path, err := store.SaveRecord("42", rec)
	if err != nil {
		t.Fatalf("save record: %v", err)
	}
	if !strings.HasSuffix(path, "2025-05-15_42_diary.txt") {
		t.Fatalf("unexpected record path: %s", path)
	}

	content, err := store.ReadRecord("42", testDate)
	if err != nil {
		t.Fatalf("read record: %v", err)
	}
	if content != rec.Format() {
		t.Fatalf("round trip mismatch: %q", content)
	}
}

func TestReadRecordNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.ReadRecord("42", testDate)
	if !dberrors.IsCode(err, dberrors.ErrCodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
	if dbErr, ok := err.(*dberrors.Error); !ok || dbErr.UserFacing() == "" {
		t.Fatal("expected user-facing message")
	}
}

func TestSaveRawEntryAndFeedbackKeying(t *testing.T) {
	store := newTestStore(t)

	rawPath, err := store.SaveRawEntry("42", "worked all morning", testDate)
	if err != nil {
		t.Fatalf("save raw: %v", err)
	}
	if !strings.Contains(rawPath, "May") || !strings.HasSuffix(rawPath, "15_42.txt") {
		t.Fatalf("raw entry keyed by (day, user) under month folder: %s", rawPath)
	}

	fbPath, err := store.SaveFeedback("42", "GRATITUDE: things", testDate)
	if err != nil {
		t.Fatalf("save feedback: %v", err)
	}
	if !strings.HasSuffix(fbPath, "15_42_analysis.txt") {
		t.Fatalf("feedback path: %s", fbPath)
	}

	data, err := os.ReadFile(rawPath)
	if err != nil || string(data) != "worked all morning" {
		t.Fatalf("raw content: %q err=%v", data, err)
	}
}

func TestListRecords(t *testing.T) {
	store := newTestStore(t)

	dates := []time.Time{
		time.Date(2025, time.May, 13, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.May, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.May, 14, 0, 0, 0, 0, time.UTC),
	}
	for i, d := range dates {
		rec := Record{Date: d, Rating: i + 5, Narrative: "n", Gratitude: "g"}
		if _, err := store.SaveRecord("42", rec); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	// Another user's record must not be listed.
	if _, err := store.SaveRecord("99", Record{Date: dates[0], Rating: 3, Narrative: "n", Gratitude: "g"}); err != nil {
		t.Fatalf("save other user: %v", err)
	}

	entries, err := store.ListRecords("42", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	// Newest first.
	if !entries[0].Date.After(entries[1].Date) || !entries[1].Date.After(entries[2].Date) {
		t.Fatalf("entries not sorted newest first: %+v", entries)
	}
	if entries[0].Rating != 6 {
		t.Fatalf("rating for newest entry: %d", entries[0].Rating)
	}

	limited, err := store.ListRecords("42", 2)
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("expected limit to apply, got %d", len(limited))
	}
}

func TestListRecordsEmptyDir(t *testing.T) {
	store := NewStore(paths.NewTree(t.TempDir() + "/missing"))
	entries, err := store.ListRecords("42", 10)
	if err != nil || entries != nil {
		t.Fatalf("expected empty result for missing dir, got %v %v", entries, err)
	}
}
