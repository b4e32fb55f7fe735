// Package paths centralizes the on-disk layout of the daybook data tree:
//
//	DATA/
//	  Diary/<Month>/          raw entries and full feedback, keyed by day-of-month
//	  DiaryEntries/           canonical diary records, keyed by ISO date
//	  Audio/<DD-MM-YYYY>/     per-cycle speech working directories
//	  Users/                  per-user bio files
//	  logs/                   structured JSONL logs
package paths

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

const EnvDataDir = "DAYBOOK_DATA_DIR"

const defaultDataDir = "DATA"

// DataDir returns the root of the data tree, honoring DAYBOOK_DATA_DIR.
func DataDir() string {
	if dir := strings.TrimSpace(os.Getenv(EnvDataDir)); dir != "" {
		return filepath.Clean(expandHomePath(dir))
	}
	return defaultDataDir
}

func expandHomePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil || strings.TrimSpace(home) == "" {
			return path
		}
		if path == "~" {
			return home
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~/"))
	}
	return path
}

// Tree describes the resolved data layout rooted at a single directory.
type Tree struct {
	Root string
}

// NewTree builds a Tree rooted at root, falling back to DataDir when empty.
func NewTree(root string) Tree {
	if strings.TrimSpace(root) == "" {
		root = DataDir()
	}
	return Tree{Root: root}
}

// DiaryDir returns the month folder for raw entries on the given day.
func (t Tree) DiaryDir(when time.Time) string {
	return filepath.Join(t.Root, "Diary", when.Format("January"))
}

// EntriesDir holds the canonical diary records.
func (t Tree) EntriesDir() string {
	return filepath.Join(t.Root, "DiaryEntries")
}

// AudioDir returns the speech working directory for the given day.
func (t Tree) AudioDir(when time.Time) string {
	return filepath.Join(t.Root, "Audio", when.Format("02-01-2006"))
}

// UsersDir holds per-user bio files.
func (t Tree) UsersDir() string {
	return filepath.Join(t.Root, "Users")
}

// LogsDir holds the structured JSONL logs.
func (t Tree) LogsDir() string {
	return filepath.Join(t.Root, "logs")
}

// DefaultBioFile is the process-wide fallback bio.
func (t Tree) DefaultBioFile() string {
	return filepath.Join(t.Root, "Bio.txt")
}

// IndexFile is the SQLite entry index.
func (t Tree) IndexFile() string {
	return filepath.Join(t.Root, "entries.db")
}

// Ensure creates the static portions of the tree.
func (t Tree) Ensure() error {
	for _, dir := range []string{
		filepath.Join(t.Root, "Diary"),
		t.EntriesDir(),
		filepath.Join(t.Root, "Audio"),
		t.UsersDir(),
		t.LogsDir(),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}
