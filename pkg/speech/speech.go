// Package speech renders feedback sections to MP3 via the Google
// Translate TTS endpoint. Each section becomes one file in a per-day
// working directory that is removed best-effort after delivery.
package speech

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	dberrors "github.com/daybook-bot/daybook/pkg/errors"
	"github.com/daybook-bot/daybook/pkg/logging"
)

const (
	defaultEndpoint = "https://translate.google.com/translate_tts"

	// The endpoint rejects long q parameters; text is segmented on word
	// boundaries and the MP3 payloads concatenated.
	maxSegmentLen = 200

	defaultTimeout = 30 * time.Second
)

// Synthesizer converts text into an MP3 file at a destination path.
type Synthesizer struct {
	endpoint   string
	language   string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewSynthesizer creates a Synthesizer for the given language code.
func NewSynthesizer(language string, logger *logging.Logger) *Synthesizer {
	if language == "" {
		language = "en"
	}
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &Synthesizer{
		endpoint: defaultEndpoint,
		language: language,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: logger,
	}
}

// segment splits text into word-boundary chunks of at most maxSegmentLen.
// A single word longer than the limit is hard-cut.
func segment(text string) []string {
	words := strings.Fields(text)
	var segments []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			segments = append(segments, current.String())
			current.Reset()
		}
	}

	for _, word := range words {
		for len(word) > maxSegmentLen {
			flush()
			segments = append(segments, word[:maxSegmentLen])
			word = word[maxSegmentLen:]
		}
		if current.Len() > 0 && current.Len()+1+len(word) > maxSegmentLen {
			flush()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(word)
	}
	flush()
	return segments
}

// Synthesize fetches audio for text and writes one MP3 file at destPath.
func (s *Synthesizer) Synthesize(ctx context.Context, text, destPath string) error {
	segments := segment(text)
	if len(segments) == 0 {
		return dberrors.New(dberrors.ErrCodeSpeechSynthesis, "nothing to synthesize")
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return dberrors.Wrap(err, dberrors.ErrCodeStorageWrite, "creating audio directory")
	}

	out, err := os.Create(destPath)
	if err != nil {
		return dberrors.Wrap(err, dberrors.ErrCodeStorageWrite, "creating audio file").
			WithContext("path", destPath)
	}
	defer out.Close()

	for i, seg := range segments {
		if err := s.fetchSegment(ctx, seg, i, len(segments), out); err != nil {
			return err
		}
	}
	return nil
}

func (s *Synthesizer) fetchSegment(ctx context.Context, text string, idx, total int, out io.Writer) error {
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("client", "tw-ob")
	q.Set("tl", s.language)
	q.Set("q", text)
	q.Set("idx", fmt.Sprint(idx))
	q.Set("total", fmt.Sprint(total))
	q.Set("textlen", fmt.Sprint(len(text)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return dberrors.Wrap(err, dberrors.ErrCodeSpeechSynthesis, "creating TTS request")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return dberrors.Wrap(err, dberrors.ErrCodeSpeechSynthesis, "fetching TTS audio").
			WithRetryable(true)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return dberrors.New(dberrors.ErrCodeSpeechSynthesis,
			fmt.Sprintf("TTS endpoint returned %s", resp.Status)).
			WithRetryable(resp.StatusCode >= 500)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		return dberrors.Wrap(err, dberrors.ErrCodeSpeechSynthesis, "writing TTS audio")
	}
	return nil
}

// CleanupDir removes a speech working directory. Best effort: failure is
// logged, never propagated.
func CleanupDir(path string, logger *logging.Logger) {
	if path == "" {
		return
	}
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	if err := os.RemoveAll(path); err != nil {
		logger.Error(logging.CategorySpeech, "cleanup_failed", err.Error(), map[string]any{
			"path": path,
		})
		return
	}
	logger.Info(logging.CategorySpeech, "cleanup_completed", "", map[string]any{
		"path": path,
	})
}
