// Package feedback turns the free-form analysis text returned by the
// language model into a fixed set of labeled sections. The model is asked
// for clearly headed sections but routinely deviates from the template, so
// parsing never fails: anything that cannot be located gets a documented
// default.
package feedback

import (
	"regexp"
	"strings"
)

// Section keys, in canonical order.
const (
	KeyGratitude        = "gratitude"
	KeyTimeWasted       = "time_wasted"
	KeyGoodUse          = "good_use"
	KeyMemorableMoments = "memorable_moments"
	KeySuggestions      = "suggestions"
	KeyHabitPatterns    = "habit_patterns"
	KeyDaySummary       = "day_summary"
	KeyDayRating        = "day_rating"
)

const (
	// DefaultSectionText fills any section the model did not produce.
	DefaultSectionText = "No specific points mentioned."
	// DefaultRating fills a missing or unparseable day rating.
	DefaultRating = "7"
)

// Sections is the canonical parse result. Every field is non-empty after
// Parse; DayRating is always a digit string.
type Sections struct {
	Gratitude        string
	TimeWasted       string
	GoodUse          string
	MemorableMoments string
	Suggestions      string
	HabitPatterns    string
	DaySummary       string
	DayRating        string
}

// Keys lists the section keys in canonical order.
func Keys() []string {
	return []string{
		KeyGratitude,
		KeyTimeWasted,
		KeyGoodUse,
		KeyMemorableMoments,
		KeySuggestions,
		KeyHabitPatterns,
		KeyDaySummary,
		KeyDayRating,
	}
}

// Get returns the value for a section key.
func (s Sections) Get(key string) string {
	switch key {
	case KeyGratitude:
		return s.Gratitude
	case KeyTimeWasted:
		return s.TimeWasted
	case KeyGoodUse:
		return s.GoodUse
	case KeyMemorableMoments:
		return s.MemorableMoments
	case KeySuggestions:
		return s.Suggestions
	case KeyHabitPatterns:
		return s.HabitPatterns
	case KeyDaySummary:
		return s.DaySummary
	case KeyDayRating:
		return s.DayRating
	}
	return ""
}

func (s *Sections) set(key, value string) {
	switch key {
	case KeyGratitude:
		s.Gratitude = value
	case KeyTimeWasted:
		s.TimeWasted = value
	case KeyGoodUse:
		s.GoodUse = value
	case KeyMemorableMoments:
		s.MemorableMoments = value
	case KeySuggestions:
		s.Suggestions = value
	case KeyHabitPatterns:
		s.HabitPatterns = value
	case KeyDaySummary:
		s.DaySummary = value
	case KeyDayRating:
		s.DayRating = value
	}
}

// aliasTable maps each section key to its recognized header strings, in
// priority order: the first alias literally present in the text wins.
// Read-only, process-wide.
var aliasTable = map[string][]string{
	KeyGratitude:        {"GRATITUDE:", "THINGS TO BE GRATEFUL FOR:"},
	KeyTimeWasted:       {"TIME INEFFICIENCY:", "TIME WASTED:"},
	KeyGoodUse:          {"GOOD USE OF TIME:", "GOOD USE:"},
	KeyMemorableMoments: {"MEMORABLE MOMENTS:"},
	KeySuggestions:      {"SUGGESTIONS FOR IMPROVEMENT:", "SUGGESTIONS:"},
	KeyHabitPatterns:    {"HABIT PATTERN ANALYSIS:"},
	KeyDaySummary:       {"DAY SUMMARY", "DAY SUMMARY (AS A STORY):"},
	KeyDayRating:        {"DAY RATING:", "RATING:"},
}

// allAliases is the flat boundary set: a section's body ends at the
// earliest occurrence of any alias from any key.
var allAliases = func() []string {
	var out []string
	for _, key := range Keys() {
		out = append(out, aliasTable[key]...)
	}
	return out
}()

// Aliases returns the recognized headers for a section key.
func Aliases(key string) []string {
	src := aliasTable[key]
	out := make([]string, len(src))
	copy(out, src)
	return out
}

var ratingPattern = regexp.MustCompile(`(\d+)(?:/10)?`)

// Parse extracts the labeled sections from raw model output. It never
// fails; malformed or empty input yields the default-filled record.
//
// For each key the aliases are tried in declared order and the first one
// present in the text wins. The body runs from just after the alias to the
// earliest later occurrence of any alias in the whole table, or to the end
// of the text. A body that happens to contain another key's alias text is
// therefore truncated early; callers rely on this boundary rule being
// stable, so it stays as is.
func Parse(raw string) Sections {
	var s Sections

	for _, key := range Keys() {
		for _, alias := range aliasTable[key] {
			start := strings.Index(raw, alias)
			if start < 0 {
				continue
			}
			body := raw[start+len(alias):]

			end := len(body)
			for _, boundary := range allAliases {
				if pos := strings.Index(body, boundary); pos >= 0 && pos < end {
					end = pos
				}
			}

			s.set(key, strings.TrimSpace(body[:end]))
			break
		}
	}

	// The rating must come out as a bare digit string ("8/10" -> "8").
	if s.DayRating != "" {
		if m := ratingPattern.FindStringSubmatch(s.DayRating); m != nil {
			s.DayRating = m[1]
		} else {
			s.DayRating = DefaultRating
		}
	}

	for _, key := range Keys() {
		if s.Get(key) != "" {
			continue
		}
		if key == KeyDayRating {
			s.set(key, DefaultRating)
		} else {
			s.set(key, DefaultSectionText)
		}
	}

	return s
}

// DefaultedCount reports how many sections carry a default value, which is
// a rough signal of how far the model strayed from the template.
func (s Sections) DefaultedCount() int {
	n := 0
	for _, key := range Keys() {
		v := s.Get(key)
		if v == DefaultSectionText || (key == KeyDayRating && v == DefaultRating) {
			n++
		}
	}
	return n
}
