package diary

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	dberrors "github.com/daybook-bot/daybook/pkg/errors"
	"github.com/daybook-bot/daybook/pkg/paths"
)

// ISO date layout used for canonical record filenames and lookups.
const DateLayout = "2006-01-02"

// Store persists the three per-cycle artifacts as UTF-8 text files:
// the raw entry and the full feedback text under the month folder
// (keyed by day-of-month and user), and the canonical record in the
// entries directory (keyed by ISO date and user). Records are written
// once per completed session.
type Store struct {
	tree paths.Tree
}

// NewStore creates a Store over the given data tree.
func NewStore(tree paths.Tree) *Store {
	return &Store{tree: tree}
}

// Entry summarizes one stored canonical record for listings.
type Entry struct {
	Date   time.Time
	Rating int
	Path   string
}

func (s *Store) rawEntryPath(userID string, when time.Time) string {
	return filepath.Join(s.tree.DiaryDir(when), when.Format("02")+"_"+userID+".txt")
}

func (s *Store) feedbackPath(userID string, when time.Time) string {
	return filepath.Join(s.tree.DiaryDir(when), when.Format("02")+"_"+userID+"_analysis.txt")
}

func (s *Store) recordPath(userID string, date time.Time) string {
	return filepath.Join(s.tree.EntriesDir(), date.Format(DateLayout)+"_"+userID+"_diary.txt")
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return dberrors.Wrap(err, dberrors.ErrCodeStorageWrite, "creating directory").
			WithContext("path", filepath.Dir(path)).
			WithUserMessage("I couldn't save your diary entry. Please try again.")
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return dberrors.Wrap(err, dberrors.ErrCodeStorageWrite, "writing file").
			WithContext("path", path).
			WithUserMessage("I couldn't save your diary entry. Please try again.")
	}
	return nil
}

// SaveRawEntry stores the user's raw diary text for the day.
func (s *Store) SaveRawEntry(userID, text string, when time.Time) (string, error) {
	path := s.rawEntryPath(userID, when)
	if err := writeFile(path, text); err != nil {
		return "", err
	}
	return path, nil
}

// SaveFeedback stores the full model feedback for audit and debugging.
func (s *Store) SaveFeedback(userID, text string, when time.Time) (string, error) {
	path := s.feedbackPath(userID, when)
	if err := writeFile(path, text); err != nil {
		return "", err
	}
	return path, nil
}

// SaveRecord writes the canonical diary record for (date, user).
func (s *Store) SaveRecord(userID string, rec Record) (string, error) {
	path := s.recordPath(userID, rec.Date)
	if err := writeFile(path, rec.Format()); err != nil {
		return "", err
	}
	return path, nil
}

// ReadRecord returns the canonical record text for (date, user).
func (s *Store) ReadRecord(userID string, date time.Time) (string, error) {
	path := s.recordPath(userID, date)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", dberrors.New(dberrors.ErrCodeNotFound, "no diary entry for date").
				WithContext("date", date.Format(DateLayout)).
				WithUserMessage("No diary entry found for " + date.Format(DateLayout) + ".")
		}
		return "", dberrors.Wrap(err, dberrors.ErrCodeStorageRead, "reading diary record").
			WithContext("path", path).
			WithUserMessage("I couldn't read that diary entry.")
	}
	return string(data), nil
}

// ListRecords returns the user's stored records, newest first, capped at
// limit. Ratings come from re-reading each record; files that vanish or
// carry no rating line are listed with a zero rating rather than skipped.
func (s *Store) ListRecords(userID string, limit int) ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.tree.EntriesDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, dberrors.Wrap(err, dberrors.ErrCodeStorageRead, "listing diary records").
			WithUserMessage("I couldn't list your diary entries.")
	}

	suffix := "_" + userID + "_diary.txt"
	var entries []Entry
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || !strings.HasSuffix(name, suffix) {
			continue
		}
		date, err := time.Parse(DateLayout, strings.TrimSuffix(name, suffix))
		if err != nil {
			continue
		}

		path := filepath.Join(s.tree.EntriesDir(), name)
		rating := 0
		if data, err := os.ReadFile(path); err == nil {
			if r, ok := ParseRating(string(data)); ok {
				rating = r
			}
		}
		entries = append(entries, Entry{Date: date, Rating: rating, Path: path})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Date.After(entries[j].Date) })
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
