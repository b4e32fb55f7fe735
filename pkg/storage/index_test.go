package storage

import (
	"path/filepath"
	"testing"
	"time"
)

func TestIndexLifecycle(t *testing.T) {
	dir := t.TempDir()
	idx, err := OpenIndex(filepath.Join(dir, "nested", "entries.db"))
	if err != nil {
		t.Fatalf("OpenIndex: %v", err)
	}
	defer idx.Close()

	day1 := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	for _, e := range []IndexEntry{
		{Date: day1, UserID: "42", Rating: 6, Path: "DiaryEntries/2026-08-30_42_diary.txt", CycleID: "01J"},
		{Date: day2, UserID: "42", Rating: 8, Path: "DiaryEntries/2026-08-31_42_diary.txt", CycleID: "01K"},
		{Date: day2, UserID: "99", Rating: 3, Path: "DiaryEntries/2026-08-31_99_diary.txt", CycleID: "01L"},
	} {
		if err := idx.Record(e); err != nil {
			t.Fatalf("Record(%s): %v", e.Date.Format("2006-01-02"), err)
		}
	}

	entries, err := idx.List("42", 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if !entries[0].Date.Equal(day2) {
		t.Errorf("expected newest first, got %s", entries[0].Date)
	}
	if entries[0].Rating != 8 {
		t.Errorf("expected rating 8, got %d", entries[0].Rating)
	}

	entries, err = idx.List("42", 1)
	if err != nil {
		t.Fatalf("List with limit: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected limit to apply, got %d entries", len(entries))
	}
}

func TestIndexUpsertOverwrites(t *testing.T) {
	idx, err := OpenIndex(filepath.Join(t.TempDir(), "entries.db"))
	if err != nil {
		t.Fatalf("OpenIndex: %v", err)
	}
	defer idx.Close()

	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	first := IndexEntry{Date: day, UserID: "7", Rating: 4, Path: "p1", CycleID: "a"}
	if err := idx.Record(first); err != nil {
		t.Fatalf("Record: %v", err)
	}
	second := IndexEntry{Date: day, UserID: "7", Rating: 9, Path: "p2", CycleID: "b"}
	if err := idx.Record(second); err != nil {
		t.Fatalf("Record upsert: %v", err)
	}

	got, err := idx.Get("7", day)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("expected entry, got nil")
	}
	if got.Rating != 9 || got.Path != "p2" || got.CycleID != "b" {
		t.Errorf("upsert did not overwrite: %+v", got)
	}
}

func TestIndexGetMissing(t *testing.T) {
	idx, err := OpenIndex(filepath.Join(t.TempDir(), "entries.db"))
	if err != nil {
		t.Fatalf("OpenIndex: %v", err)
	}
	defer idx.Close()

	got, err := idx.Get("nobody", time.Now())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing entry, got %+v", got)
	}
}
