// Package session runs the daily reflection cycle: it owns the per-user
// conversation state machine, coordinates analysis, speech, and storage,
// and delivers the results through an Outbox.
package session

import (
	"sync"
	"time"

	"github.com/daybook-bot/daybook/pkg/feedback"
)

// State identifies where a user sits in the reflection cycle.
type State int

const (
	// StateIdle means no cycle is in progress.
	StateIdle State = iota
	// StateAwaitingEntry means the user was prompted for their diary text.
	StateAwaitingEntry
	// StateAwaitingAudioChoice means analysis is done and the user must
	// pick text-only or audio delivery.
	StateAwaitingAudioChoice
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingEntry:
		return "awaiting_entry"
	case StateAwaitingAudioChoice:
		return "awaiting_audio_choice"
	default:
		return "unknown"
	}
}

// Reply-keyboard markers. The transport shows these as one-tap choices;
// the state machine matches on the literal text either way.
const (
	SkipMarker  = "Skip - I'll type it"
	AudioYes    = "Yes, send audio"
	AudioNo     = "No, text only"
	audioPrefix = "Yes"
)

// userSession holds one user's in-flight cycle. Its mutex is held across
// a whole transition, so a user can never have two transitions racing.
type userSession struct {
	mu        sync.Mutex
	state     State
	cycleID   string
	sections  feedback.Sections
	entryDate time.Time
	audioDir  string

	// dropped marks a session removed from the manager's table; a caller
	// that raced the removal re-fetches instead of using it.
	dropped bool
}

func (s *userSession) reset() {
	s.state = StateIdle
	s.cycleID = ""
	s.sections = feedback.Sections{}
	s.entryDate = time.Time{}
	s.audioDir = ""
}
