// Package diary composes and persists the condensed end-of-session diary
// record: the canonical artifact distinct from the raw entry and the full
// feedback text, both of which are kept alongside for audit.
package diary

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/daybook-bot/daybook/pkg/feedback"
)

// HeaderDateFormat renders "Thursday, May 15, 2025".
const HeaderDateFormat = "Monday, January 02, 2006"

const headerPrefix = "Diary Entry:"
const ratingPrefix = "Day Rating:"

const defaultRating = 7

// Record is the persisted diary artifact for one (date, user).
type Record struct {
	Date      time.Time
	Rating    int // 1..10
	Narrative string
	Gratitude string
}

// Build composes a Record from parsed feedback. Pure. The parser
// guarantees DayRating is a digit string, but a violated contract must
// not crash a finalize step, so anything unparseable or out of range
// falls back to the documented default.
func Build(s feedback.Sections, when time.Time) Record {
	rating, err := strconv.Atoi(s.DayRating)
	if err != nil || rating < 1 {
		rating = defaultRating
	}
	if rating > 10 {
		rating = 10
	}

	return Record{
		Date:      when,
		Rating:    rating,
		Narrative: s.DaySummary,
		Gratitude: s.Gratitude,
	}
}

// Format serializes the record into the canonical text layout.
func (r Record) Format() string {
	return fmt.Sprintf("%s %s\n\n%s %d/10\n\n%s\n\nGratitude:\n%s",
		headerPrefix, r.Date.Format(HeaderDateFormat),
		ratingPrefix, r.Rating,
		r.Narrative,
		r.Gratitude,
	)
}

// ParseRating locates the "Day Rating: N/10" line anywhere in a record
// body by substring search and returns the digits before the first slash.
// Returns 0 and false when no parseable rating line exists.
func ParseRating(content string) (int, bool) {
	for _, line := range strings.Split(content, "\n") {
		if !strings.Contains(line, ratingPrefix) {
			continue
		}
		value := line
		if idx := strings.Index(value, "/"); idx >= 0 {
			value = value[:idx]
		}
		if idx := strings.LastIndex(value, ":"); idx >= 0 {
			value = value[idx+1:]
		}
		value = strings.TrimSpace(value)
		rating, err := strconv.Atoi(value)
		if err != nil {
			return 0, false
		}
		return rating, true
	}
	return 0, false
}

// StripHeader removes the optional "Diary Entry:" first line when present,
// returning the remaining body. Older records written without the header
// pass through unchanged.
func StripHeader(content string) string {
	if !strings.Contains(content, headerPrefix) {
		return content
	}
	lines := strings.SplitN(content, "\n", 2)
	if len(lines) < 2 {
		return ""
	}
	return lines[1]
}

// StripRatingLine removes the first rating line from the body, collapsing
// the blank run it leaves behind.
func StripRatingLine(content string) string {
	for _, line := range strings.Split(content, "\n") {
		if strings.Contains(line, ratingPrefix) {
			content = strings.Replace(content, line, "", 1)
			break
		}
	}
	for strings.Contains(content, "\n\n\n") {
		content = strings.ReplaceAll(content, "\n\n\n", "\n\n")
	}
	return content
}
