// Package bio stores the short personal profile used to personalize the
// daily analysis. Lookup falls back from the per-user file to the
// process-wide default bio, and finally to a hardcoded string, so the
// prompt always has something to work with.
package bio

import (
	"os"
	"path/filepath"
	"strings"

	dberrors "github.com/daybook-bot/daybook/pkg/errors"
	"github.com/daybook-bot/daybook/pkg/logging"
	"github.com/daybook-bot/daybook/pkg/paths"
)

// FallbackBio is used when neither a user bio nor a default bio exists.
const FallbackBio = "No personal information available yet."

// DefaultBioSeed is written as the process-wide default on first start.
const DefaultBioSeed = "I am a person who values balance between productivity and happiness."

// Store reads and writes bio files under the data tree.
type Store struct {
	tree   paths.Tree
	logger *logging.Logger
}

// NewStore creates a bio Store over the given data tree.
func NewStore(tree paths.Tree, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &Store{tree: tree, logger: logger}
}

func (s *Store) userBioPath(userID string) string {
	return filepath.Join(s.tree.UsersDir(), userID+"_bio.txt")
}

// Bio returns the bio text for userID, walking the fallback chain.
func (s *Store) Bio(userID string) string {
	if data, err := os.ReadFile(s.userBioPath(userID)); err == nil {
		return string(data)
	}

	if data, err := os.ReadFile(s.tree.DefaultBioFile()); err == nil {
		return string(data)
	}

	s.logger.Warn(logging.CategoryBio, "bio_missing", "no bio found, using fallback", map[string]any{
		"user": userID,
	})
	return FallbackBio
}

// SetBio writes the per-user bio file.
func (s *Store) SetBio(userID, text string) error {
	if strings.TrimSpace(text) == "" {
		return dberrors.New(dberrors.ErrCodeInvalidInput, "empty bio").
			WithUserMessage("Please provide your bio after the command.")
	}
	if err := os.MkdirAll(s.tree.UsersDir(), 0o755); err != nil {
		return dberrors.Wrap(err, dberrors.ErrCodeStorageWrite, "creating users directory").
			WithUserMessage("I couldn't save your bio. Please try again.")
	}
	if err := os.WriteFile(s.userBioPath(userID), []byte(text), 0o644); err != nil {
		return dberrors.Wrap(err, dberrors.ErrCodeStorageWrite, "writing bio file").
			WithContext("user", userID).
			WithUserMessage("I couldn't save your bio. Please try again.")
	}
	return nil
}

// EnsureDefault seeds the process-wide default bio when none exists.
func (s *Store) EnsureDefault() error {
	path := s.tree.DefaultBioFile()
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return dberrors.Wrap(err, dberrors.ErrCodeStorageWrite, "creating data directory")
	}
	if err := os.WriteFile(path, []byte(DefaultBioSeed), 0o644); err != nil {
		return dberrors.Wrap(err, dberrors.ErrCodeStorageWrite, "seeding default bio")
	}
	return nil
}
