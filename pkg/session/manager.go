package session

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/daybook-bot/daybook/pkg/analysis"
	"github.com/daybook-bot/daybook/pkg/diary"
	dberrors "github.com/daybook-bot/daybook/pkg/errors"
	"github.com/daybook-bot/daybook/pkg/feedback"
	"github.com/daybook-bot/daybook/pkg/logging"
	"github.com/daybook-bot/daybook/pkg/paths"
	"github.com/daybook-bot/daybook/pkg/render"
	"github.com/daybook-bot/daybook/pkg/speech"
	"github.com/daybook-bot/daybook/pkg/storage"
)

// promptDateLayout matches the day-month-year date shown in section
// headers and fed into the analysis prompt.
const promptDateLayout = "02-01-2006"

// maxConcurrentAudio bounds parallel speech synthesis calls per cycle.
const maxConcurrentAudio = 4

// Analyst produces feedback text for a prepared prompt. It never fails:
// implementations degrade to an apology message the parser can absorb.
type Analyst interface {
	Analyze(ctx context.Context, prompt string) string
}

// BioSource reads and writes per-user bios.
type BioSource interface {
	Bio(userID string) string
	SetBio(userID, text string) error
}

// Speaker synthesizes spoken audio for one section into destPath.
type Speaker interface {
	Synthesize(ctx context.Context, text, destPath string) error
}

// Authorizer decides whether a user may interact at all.
type Authorizer interface {
	Authorized(userID string) bool
}

// EntryStore persists the per-cycle text artifacts.
type EntryStore interface {
	SaveRawEntry(userID, text string, when time.Time) (string, error)
	SaveFeedback(userID, text string, when time.Time) (string, error)
	SaveRecord(userID string, rec diary.Record) (string, error)
	ReadRecord(userID string, date time.Time) (string, error)
	ListRecords(userID string, limit int) ([]diary.Entry, error)
}

// EntryIndex records completed diary records and serves listings without
// re-reading every record file.
type EntryIndex interface {
	Record(entry storage.IndexEntry) error
	List(userID string, limit int) ([]storage.IndexEntry, error)
}

// Outbox delivers messages back to the user. SendChoices attaches a
// one-tap reply keyboard where the transport supports one; transports
// without keyboards render the choices as plain text.
type Outbox interface {
	SendText(ctx context.Context, userID, text string) error
	SendChoices(ctx context.Context, userID, text string, choices []string) error
	SendAudio(ctx context.Context, userID, path, caption string) error
}

// Deps carries the collaborators a Manager needs. Speaker and Index are
// optional; a nil Speaker disables audio delivery and a nil Index skips
// indexing.
type Deps struct {
	Auth         Authorizer
	Analyst      Analyst
	Bios         BioSource
	Speaker      Speaker
	Entries      EntryStore
	Index        EntryIndex
	Outbox       Outbox
	Tree         paths.Tree
	Logger       *logging.Logger
	ModelTimeout time.Duration
	Now          func() time.Time
}

// Manager owns every user's reflection cycle. All transitions for one
// user are serialized on that user's session lock, so a double-tap
// greeting starts exactly one cycle.
type Manager struct {
	auth         Authorizer
	analyst      Analyst
	bios         BioSource
	speaker      Speaker
	entries      EntryStore
	index        EntryIndex
	out          Outbox
	tree         paths.Tree
	logger       *logging.Logger
	modelTimeout time.Duration
	now          func() time.Time

	mu       sync.Mutex
	sessions map[string]*userSession
}

// NewManager wires a Manager from its collaborators.
func NewManager(deps Deps) *Manager {
	m := &Manager{
		auth:         deps.Auth,
		analyst:      deps.Analyst,
		bios:         deps.Bios,
		speaker:      deps.Speaker,
		entries:      deps.Entries,
		index:        deps.Index,
		out:          deps.Outbox,
		tree:         deps.Tree,
		logger:       deps.Logger,
		modelTimeout: deps.ModelTimeout,
		now:          deps.Now,
		sessions:     make(map[string]*userSession),
	}
	if m.logger == nil {
		m.logger = logging.NewDiscardLogger()
	}
	if m.modelTimeout <= 0 {
		m.modelTimeout = 90 * time.Second
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

func (m *Manager) session(userID string) *userSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		s = &userSession{}
		m.sessions[userID] = s
	}
	return s
}

// lockSession returns the user's session with its lock held, re-fetching
// if a concurrent transition dropped the entry first.
func (m *Manager) lockSession(userID string) *userSession {
	for {
		s := m.session(userID)
		s.mu.Lock()
		if !s.dropped {
			return s
		}
		s.mu.Unlock()
	}
}

// dropIdleLocked removes the table entry once a cycle is back at the
// terminal state, so the table holds only in-flight cycles. Caller holds
// s.mu.
func (m *Manager) dropIdleLocked(userID string, s *userSession) {
	if s.state != StateIdle {
		return
	}
	s.dropped = true
	m.mu.Lock()
	if m.sessions[userID] == s {
		delete(m.sessions, userID)
	}
	m.mu.Unlock()
}

// StateOf reports the user's current state. Users with no in-flight
// cycle are Idle.
func (m *Manager) StateOf(userID string) State {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	m.mu.Unlock()
	if !ok {
		return StateIdle
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func isGreeting(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "hi", "hello":
		return true
	}
	return false
}

func (m *Manager) authorized(ctx context.Context, userID string) bool {
	if m.auth.Authorized(userID) {
		return true
	}
	m.logger.Warn(logging.CategoryCommand, "access_denied", "unauthorized user", map[string]any{"user_id": userID})
	m.out.SendText(ctx, userID, fmt.Sprintf("🚫 Access Denied. Your user ID (%s) is not authorized to use this bot.", userID))
	return false
}

// HandleMessage routes free-form text through the state machine.
func (m *Manager) HandleMessage(ctx context.Context, userID, text string) error {
	if !m.authorized(ctx, userID) {
		return nil
	}
	s := m.lockSession(userID)
	defer func() {
		m.dropIdleLocked(userID, s)
		s.mu.Unlock()
	}()

	switch s.state {
	case StateIdle:
		if isGreeting(text) {
			return m.beginCycleLocked(ctx, s, userID,
				"Hello! How did your day go? Please share your activities, thoughts, and experiences.")
		}
		return m.out.SendText(ctx, userID,
			"Just say 'hi' or send /diary to start a new diary entry. Send /help to see all commands.")
	case StateAwaitingEntry:
		if text == SkipMarker {
			return m.out.SendText(ctx, userID, "Please type your diary entry for today:")
		}
		return m.processEntryLocked(ctx, s, userID, text)
	case StateAwaitingAudioChoice:
		return m.finalizeLocked(ctx, s, userID, strings.HasPrefix(text, audioPrefix))
	}
	return nil
}

func (m *Manager) beginCycleLocked(ctx context.Context, s *userSession, userID, prompt string) error {
	s.reset()
	s.state = StateAwaitingEntry
	s.cycleID = ulid.Make().String()
	recordCycleStart()
	m.logger.Log(logging.Event{
		Level:     logging.LevelInfo,
		Category:  logging.CategorySession,
		EventType: "cycle_started",
		UserID:    userID,
		CycleID:   s.cycleID,
	})
	return m.out.SendChoices(ctx, userID, prompt, []string{SkipMarker})
}

func (m *Manager) processEntryLocked(ctx context.Context, s *userSession, userID, text string) error {
	now := m.now()
	m.out.SendText(ctx, userID, "📝 Processing your diary entry...")

	if _, err := m.entries.SaveRawEntry(userID, text, now); err != nil {
		m.logger.Log(logging.Event{
			Level:     logging.LevelError,
			Category:  logging.CategoryStorage,
			EventType: "raw_entry_save_failed",
			UserID:    userID,
			CycleID:   s.cycleID,
			Message:   err.Error(),
		})
		m.out.SendText(ctx, userID, dberrors.UserText(err))
		return err
	}

	bio := m.bios.Bio(userID)
	dateStr := now.Format(promptDateLayout)
	prompt := analysis.BuildPrompt(bio, text, dateStr)

	m.out.SendText(ctx, userID, "🔍 Analyzing your day...")
	actx, cancel := context.WithTimeout(ctx, m.modelTimeout)
	feedbackText := m.analyst.Analyze(actx, prompt)
	cancel()

	sections := feedback.Parse(feedbackText)
	recordDefaultedSections(sections.DefaultedCount())
	m.logger.Log(logging.Event{
		Level:     logging.LevelInfo,
		Category:  logging.CategoryParser,
		EventType: "feedback_parsed",
		UserID:    userID,
		CycleID:   s.cycleID,
		Details:   map[string]any{"defaulted_sections": sections.DefaultedCount()},
	})

	// Audit copy only; the cycle continues without it.
	if _, err := m.entries.SaveFeedback(userID, feedbackText, now); err != nil {
		m.logger.Log(logging.Event{
			Level:     logging.LevelWarn,
			Category:  logging.CategoryStorage,
			EventType: "feedback_save_failed",
			UserID:    userID,
			CycleID:   s.cycleID,
			Message:   err.Error(),
		})
	}

	s.sections = sections
	s.entryDate = now
	s.audioDir = m.tree.AudioDir(now)
	s.state = StateAwaitingAudioChoice

	return m.out.SendChoices(ctx, userID,
		"Your diary entry has been analyzed! Would you like to receive the analysis as audio as well?",
		[]string{AudioYes, AudioNo})
}

func (m *Manager) finalizeLocked(ctx context.Context, s *userSession, userID string, wantAudio bool) error {
	dateStr := s.entryDate.Format(promptDateLayout)
	units := render.RenderSections(s.sections, dateStr)

	audioFiles := map[string]string{}
	if wantAudio && m.speaker != nil {
		audioFiles = m.synthesizeSections(ctx, s, units)
	}

	for _, u := range units {
		if err := m.out.SendText(ctx, userID, u.Body); err != nil {
			m.logger.Warn(logging.CategorySession, "section_send_failed", err.Error(), map[string]any{"section": u.Key})
		}
		if path, ok := audioFiles[u.Key]; ok {
			caption := strings.TrimSpace(strings.SplitN(u.Title, "-", 2)[0])
			if err := m.out.SendAudio(ctx, userID, path, caption); err != nil {
				m.logger.Warn(logging.CategorySpeech, "audio_send_failed", err.Error(), map[string]any{"section": u.Key})
			}
		}
	}

	rec := diary.Build(s.sections, s.entryDate)
	m.out.SendText(ctx, userID, render.RatingMessage(rec.Rating))

	recordPath, err := m.entries.SaveRecord(userID, rec)
	if err != nil {
		// State is kept; the next audio-choice reply retries the whole
		// finalization from the held sections.
		recordPersistFailure()
		m.logger.Log(logging.Event{
			Level:     logging.LevelError,
			Category:  logging.CategoryStorage,
			EventType: "record_save_failed",
			UserID:    userID,
			CycleID:   s.cycleID,
			Message:   err.Error(),
		})
		m.out.SendText(ctx, userID, dberrors.UserText(err))
		return err
	}

	if m.index != nil {
		ierr := m.index.Record(storage.IndexEntry{
			Date:    rec.Date,
			UserID:  userID,
			Rating:  rec.Rating,
			Path:    recordPath,
			CycleID: s.cycleID,
		})
		if ierr != nil {
			m.logger.Warn(logging.CategoryStorage, "index_update_failed", ierr.Error(), map[string]any{"user_id": userID})
		}
	}

	m.out.SendText(ctx, userID,
		fmt.Sprintf("✍️ Your digital diary entry for %s has been saved.", s.entryDate.Format("Monday, January 02")))

	if wantAudio {
		speech.CleanupDir(s.audioDir, m.logger)
	}

	m.logger.Log(logging.Event{
		Level:     logging.LevelInfo,
		Category:  logging.CategorySession,
		EventType: "cycle_completed",
		UserID:    userID,
		CycleID:   s.cycleID,
		Details:   map[string]any{"rating": rec.Rating, "path": recordPath},
	})
	s.reset()
	recordCycleComplete()
	return nil
}

// synthesizeSections fans the section audio out across a bounded worker
// group. A failed section is dropped from the result so delivery stays
// text-only for just that section.
func (m *Manager) synthesizeSections(ctx context.Context, s *userSession, units []render.DisplayUnit) map[string]string {
	done := make([]string, len(units))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentAudio)
	for i, u := range units {
		i, u := i, u
		dest := filepath.Join(s.audioDir, u.Key+".mp3")
		g.Go(func() error {
			if err := m.speaker.Synthesize(gctx, s.sections.Get(u.Key), dest); err != nil {
				recordAudioFailure()
				m.logger.Warn(logging.CategorySpeech, "section_audio_failed", err.Error(), map[string]any{"section": u.Key})
				return nil
			}
			done[i] = dest
			return nil
		})
	}
	g.Wait()

	out := make(map[string]string, len(units))
	for i, u := range units {
		if done[i] != "" {
			out[u.Key] = done[i]
		}
	}
	return out
}

// Start handles the /start command.
func (m *Manager) Start(ctx context.Context, userID, firstName string) error {
	if !m.authorized(ctx, userID) {
		return nil
	}
	if firstName == "" {
		firstName = "there"
	}
	return m.out.SendText(ctx, userID, fmt.Sprintf(
		"👋 Hi %s! Welcome to your Daily Reflection Bot.\n\n"+
			"I'll help you track your daily activities and provide thoughtful insights.\n\n"+
			"Available commands:\n"+
			"/diary - Start a new diary entry\n"+
			"/setbio - Set your personal info for better analysis\n"+
			"/mydiary - View your recent diary entries\n"+
			"/help - Show all available commands\n\n"+
			"You can also just say 'hi' to start a new diary entry!", firstName))
}

// Help handles the /help command.
func (m *Manager) Help(ctx context.Context, userID string) error {
	if !m.authorized(ctx, userID) {
		return nil
	}
	return m.out.SendText(ctx, userID,
		"📔 *Daily Reflection Bot Commands*\n\n"+
			"🚀 *Basic Commands*\n"+
			"/start - Initialize the bot\n"+
			"/help - Display this help message\n\n"+
			"📝 *Diary Commands*\n"+
			"/diary - Begin a new diary entry\n"+
			"/mydiary - List your recent diary entries\n"+
			"/read YYYY-MM-DD - View a specific diary entry\n\n"+
			"👤 *Personal Settings*\n"+
			"/setbio - Update your personal profile for better analysis\n\n"+
			"💬 *Other Interactions*\n"+
			"Just type 'hi' or 'hello' to start a new diary entry.\n\n"+
			"ℹ️ Your entries will be analyzed to provide insights about your day, "+
			"habit patterns, and suggestions for improvement.")
}

// BeginDiary handles the /diary command, starting a fresh cycle even if
// one was already in flight.
func (m *Manager) BeginDiary(ctx context.Context, userID string) error {
	if !m.authorized(ctx, userID) {
		return nil
	}
	s := m.lockSession(userID)
	defer s.mu.Unlock()
	return m.beginCycleLocked(ctx, s, userID,
		"📝 *New Diary Entry*\n\n"+
			"How did your day go? Please share your activities, thoughts, and experiences.\n\n"+
			"Be as detailed as you like - what you did, how you felt, what you learned, "+
			"and any moments that stood out.")
}

// SetBio handles the /setbio command.
func (m *Manager) SetBio(ctx context.Context, userID, bioText string) error {
	if !m.authorized(ctx, userID) {
		return nil
	}
	if strings.TrimSpace(bioText) == "" {
		return m.out.SendText(ctx, userID,
			"Please provide your bio after the command. For example:\n"+
				"/setbio I'm a software developer who loves running and reading.")
	}
	if err := m.bios.SetBio(userID, bioText); err != nil {
		m.logger.Warn(logging.CategoryBio, "bio_save_failed", err.Error(), map[string]any{"user_id": userID})
		return m.out.SendText(ctx, userID, dberrors.UserText(err))
	}
	return m.out.SendText(ctx, userID,
		"Your bio has been updated! I'll use this to provide more personalized analysis.")
}

// recentEntries serves listings from the index when it has rows, falling
// back to the record-file scan for errors, empty indexes, and records
// written before the index existed.
func (m *Manager) recentEntries(userID string, limit int) ([]diary.Entry, error) {
	if m.index != nil {
		rows, err := m.index.List(userID, limit)
		if err != nil {
			m.logger.Warn(logging.CategoryStorage, "index_list_failed", err.Error(), map[string]any{"user_id": userID})
		} else if len(rows) > 0 {
			entries := make([]diary.Entry, len(rows))
			for i, r := range rows {
				entries[i] = diary.Entry{Date: r.Date, Rating: r.Rating, Path: r.Path}
			}
			return entries, nil
		}
	}
	return m.entries.ListRecords(userID, limit)
}

// ListEntries handles the /mydiary command.
func (m *Manager) ListEntries(ctx context.Context, userID string) error {
	if !m.authorized(ctx, userID) {
		return nil
	}
	entries, err := m.recentEntries(userID, 10)
	if err != nil {
		m.logger.Warn(logging.CategoryStorage, "list_records_failed", err.Error(), map[string]any{"user_id": userID})
		return m.out.SendText(ctx, userID, dberrors.UserText(err))
	}
	if len(entries) == 0 {
		return m.out.SendText(ctx, userID,
			"📭 *No entries found*\n\n"+
				"You haven't created any diary entries yet.\n"+
				"Use /diary to create your first entry!")
	}

	var b strings.Builder
	b.WriteString("📚 *Your Recent Diary Entries:*\n\n")
	for _, e := range entries {
		rating := "?"
		stars := ""
		if e.Rating >= 1 && e.Rating <= 10 {
			rating = strconv.Itoa(e.Rating)
			stars = " " + render.RatingBanner(e.Rating)
		}
		fmt.Fprintf(&b, "📝 *%s*\n", e.Date.Format("Monday, January 02, 2006"))
		fmt.Fprintf(&b, "   Rating: %s/10%s\n", rating, stars)
		fmt.Fprintf(&b, "   Read: /read %s\n\n", e.Date.Format(diary.DateLayout))
	}
	b.WriteString("_To read a specific entry, use /read followed by the date (YYYY-MM-DD)_")
	return m.out.SendText(ctx, userID, b.String())
}

// ReadEntry handles the /read command for one ISO date.
func (m *Manager) ReadEntry(ctx context.Context, userID, dateStr string) error {
	if !m.authorized(ctx, userID) {
		return nil
	}
	dateStr = strings.TrimSpace(dateStr)
	if dateStr == "" {
		return m.out.SendText(ctx, userID,
			"📅 *Read Diary Entry*\n\n"+
				"Please specify the date of the entry you want to read.\n\n"+
				"*Format:* /read YYYY-MM-DD\n"+
				"*Example:* /read 2025-05-15\n\n"+
				"Use /mydiary to see a list of your available entries.")
	}
	date, err := time.Parse(diary.DateLayout, dateStr)
	if err != nil {
		return m.out.SendText(ctx, userID,
			"❌ *Invalid Date Format*\n\n"+
				"Please use YYYY-MM-DD format.\n"+
				"*Example:* /read 2025-05-15")
	}
	formattedDate := date.Format("Monday, January 02, 2006")

	content, err := m.entries.ReadRecord(userID, date)
	if err != nil {
		if dberrors.IsCode(err, dberrors.ErrCodeNotFound) {
			return m.out.SendText(ctx, userID, fmt.Sprintf(
				"❌ *Entry Not Found*\n\n"+
					"No diary entry found for %s.\n\n"+
					"Use /mydiary to see a list of your available entries.", formattedDate))
		}
		m.logger.Warn(logging.CategoryStorage, "read_record_failed", err.Error(), map[string]any{"user_id": userID})
		return m.out.SendText(ctx, userID, dberrors.UserText(err))
	}

	// Re-render: fresh header with the star banner on top, the stored
	// header and rating line stripped from the body.
	header := fmt.Sprintf("📔 *Diary Entry: %s*\n\n", formattedDate)
	if rating, ok := diary.ParseRating(content); ok && rating >= 1 && rating <= 10 {
		header += fmt.Sprintf("*Rating: %d/10*\n%s\n\n", rating, render.RatingBanner(rating))
	}
	body := diary.StripRatingLine(diary.StripHeader(content))

	chunks := render.Paginate(header+body, render.MaxMessageLen)
	for i, chunk := range chunks {
		if err := m.out.SendText(ctx, userID, render.ContinuationHeader(i, len(chunks))+chunk); err != nil {
			return err
		}
	}
	return nil
}

// Cancel handles the /cancel command from any state.
func (m *Manager) Cancel(ctx context.Context, userID string) error {
	if !m.authorized(ctx, userID) {
		return nil
	}
	s := m.lockSession(userID)
	defer func() {
		m.dropIdleLocked(userID, s)
		s.mu.Unlock()
	}()
	if s.state != StateIdle {
		recordCycleCancel()
		m.logger.Log(logging.Event{
			Level:     logging.LevelInfo,
			Category:  logging.CategorySession,
			EventType: "cycle_cancelled",
			UserID:    userID,
			CycleID:   s.cycleID,
		})
	}
	s.reset()
	return m.out.SendText(ctx, userID, "Diary entry cancelled. You can start a new one anytime!")
}
