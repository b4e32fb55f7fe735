// Package analysis asks the language model for structured daily-reflection
// feedback. The call fails soft: any transport or API failure yields the
// apology string instead of an error, and the degraded text flows through
// the normal parse and display path downstream.
package analysis

import (
	"context"
	"time"

	"github.com/daybook-bot/daybook/pkg/logging"
	"github.com/daybook-bot/daybook/pkg/model"
)

// Apology is returned whenever the analysis call cannot complete.
const Apology = "I'm sorry, I couldn't analyze your diary entry due to a technical issue."

// ChatClient is the slice of the model client the coach needs.
type ChatClient interface {
	ChatCompletion(ctx context.Context, req model.ChatRequest) (*model.ChatResponse, error)
}

// Coach runs the daily analysis against a chat model. One attempt per
// entry; there is no retry policy here.
type Coach struct {
	client  ChatClient
	modelID string
	logger  *logging.Logger
}

// NewCoach creates a Coach using the given chat client and model.
func NewCoach(client ChatClient, modelID string, logger *logging.Logger) *Coach {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &Coach{client: client, modelID: modelID, logger: logger}
}

// Analyze sends the prompt and returns the model's feedback text. Never
// returns an error: failures are logged and the apology string comes back
// so the session proceeds with degraded content.
func (c *Coach) Analyze(ctx context.Context, prompt string) string {
	start := time.Now()
	defer recordModelCall(start)

	resp, err := c.client.ChatCompletion(ctx, model.ChatRequest{
		Model:    c.modelID,
		Messages: []model.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		c.logger.Error(logging.CategoryModel, "analysis_failed", err.Error(), map[string]any{
			"model":       c.modelID,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return Apology
	}

	text := resp.Text()
	if text == "" {
		c.logger.Warn(logging.CategoryModel, "analysis_empty", "model returned no content", map[string]any{
			"model": c.modelID,
		})
		return Apology
	}

	c.logger.Info(logging.CategoryModel, "analysis_completed", "", map[string]any{
		"model":             c.modelID,
		"duration_ms":       time.Since(start).Milliseconds(),
		"completion_tokens": resp.Usage.CompletionTokens,
	})
	return text
}
