// Package render turns parsed feedback into user-facing message units:
// titled section messages, the star rating banner, and bounded pagination
// for transports with a message length cap.
package render

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/daybook-bot/daybook/pkg/feedback"
)

// MaxMessageLen is the delivery chunk size used for long diary entries.
const MaxMessageLen = 4000

// DisplayUnit is one outbound message: a framed title plus body, tagged
// with the section key so the caller can decide whether to pair it with
// synthesized audio.
type DisplayUnit struct {
	Key   string
	Title string
	Body  string
}

// sectionTitles maps section keys to their display titles. day_rating is
// absent: the rating is delivered as a banner, not a section.
var sectionTitles = map[string]string{
	feedback.KeyGratitude:        "🙏 Gratitude - Things to be thankful for",
	feedback.KeyTimeWasted:       "⏱️ Time Inefficiency - Where time could be better used",
	feedback.KeyGoodUse:          "✅ Good Use of Time - Valuable periods",
	feedback.KeyMemorableMoments: "🌟 Memorable Moments - Worth remembering",
	feedback.KeySuggestions:      "📈 Gentle Suggestions for Improvement",
	feedback.KeyHabitPatterns:    "🔁 Habit Pattern Insights",
	feedback.KeyDaySummary:       "📝 Day Summary (as a Story)",
}

// SectionTitle returns the display title for a section key, or "" for
// keys that are not rendered as sections.
func SectionTitle(key string) string {
	return sectionTitles[key]
}

// SectionKeys lists the renderable section keys in delivery order.
func SectionKeys() []string {
	var out []string
	for _, key := range feedback.Keys() {
		if key == feedback.KeyDayRating {
			continue
		}
		out = append(out, key)
	}
	return out
}

// RenderSection produces the message unit for one feedback section.
func RenderSection(key, title, body, dateStr string) DisplayUnit {
	return DisplayUnit{
		Key:   key,
		Title: title,
		Body:  fmt.Sprintf("📅 *Daily Analysis for %s*\n\n*%s*\n\n%s", dateStr, title, body),
	}
}

// RenderSections renders every section except the rating, in order.
func RenderSections(s feedback.Sections, dateStr string) []DisplayUnit {
	var units []DisplayUnit
	for _, key := range SectionKeys() {
		units = append(units, RenderSection(key, sectionTitles[key], s.Get(key), dateStr))
	}
	return units
}

// RatingBanner builds the ten-glyph star bar for a rating. The rating is
// clamped to [0, 10] first so a contract violation upstream cannot produce
// a negative repeat count.
func RatingBanner(rating int) string {
	if rating < 0 {
		rating = 0
	}
	if rating > 10 {
		rating = 10
	}
	return strings.Repeat("★", rating) + strings.Repeat("☆", 10-rating)
}

// RatingMessage is the closing message carrying the rating and its banner.
func RatingMessage(rating int) string {
	return fmt.Sprintf("📊 *Day Rating: %d/10*\n\n%s", rating, RatingBanner(rating))
}

// Paginate splits text into contiguous chunks no longer than maxLen
// bytes, preserving character order. Concatenating the chunks reproduces
// the input exactly. A cut that would land inside a multi-byte rune (star
// banners and emoji are routine here) backs off to the rune boundary so
// every chunk stays valid UTF-8 on its own.
func Paginate(text string, maxLen int) []string {
	if maxLen <= 0 {
		maxLen = MaxMessageLen
	}
	if text == "" {
		return nil
	}

	chunks := make([]string, 0, (len(text)+maxLen-1)/maxLen)
	for start := 0; start < len(text); {
		end := start + maxLen
		if end >= len(text) {
			chunks = append(chunks, text[start:])
			break
		}
		for end > start && !utf8.RuneStart(text[end]) {
			end--
		}
		if end == start {
			// Not actually UTF-8; cut at the byte limit.
			end = start + maxLen
		}
		chunks = append(chunks, text[start:end])
		start = end
	}
	return chunks
}

// ContinuationHeader labels chunk i (zero-based) of total when a paginated
// message spans several deliveries. The first chunk carries no header.
func ContinuationHeader(i, total int) string {
	if i == 0 {
		return ""
	}
	return fmt.Sprintf("*(continued %d/%d)*\n\n", i+1, total)
}
