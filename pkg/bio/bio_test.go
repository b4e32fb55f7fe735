package bio

import (
	"os"
	"testing"

	dberrors "github.com/daybook-bot/daybook/pkg/errors"
	"github.com/daybook-bot/daybook/pkg/paths"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(paths.NewTree(t.TempDir()), nil)
}

func TestBioFallbackChain(t *testing.T) {
	store := newTestStore(t)

	// Nothing on disk: hardcoded fallback.
	if got := store.Bio("42"); got != FallbackBio {
		t.Fatalf("expected fallback bio, got %q", got)
	}

	// Default bio present: used for users without their own.
	if err := store.EnsureDefault(); err != nil {
		t.Fatalf("ensure default: %v", err)
	}
	if got := store.Bio("42"); got != DefaultBioSeed {
		t.Fatalf("expected default bio, got %q", got)
	}

	// Per-user bio wins over the default.
	if err := store.SetBio("42", "I am a software developer who runs."); err != nil {
		t.Fatalf("set bio: %v", err)
	}
	if got := store.Bio("42"); got != "I am a software developer who runs." {
		t.Fatalf("expected user bio, got %q", got)
	}

	// Other users still get the default.
	if got := store.Bio("99"); got != DefaultBioSeed {
		t.Fatalf("expected default bio for other user, got %q", got)
	}
}

func TestSetBioRejectsEmpty(t *testing.T) {
	store := newTestStore(t)
	err := store.SetBio("42", "   ")
	if !dberrors.IsCode(err, dberrors.ErrCodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT, got %v", err)
	}
}

func TestEnsureDefaultIdempotent(t *testing.T) {
	tree := paths.NewTree(t.TempDir())
	store := NewStore(tree, nil)

	if err := store.EnsureDefault(); err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	if err := os.WriteFile(tree.DefaultBioFile(), []byte("customized"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := store.EnsureDefault(); err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if got := store.Bio("any"); got != "customized" {
		t.Fatal("ensure must not overwrite an existing default bio")
	}
}
