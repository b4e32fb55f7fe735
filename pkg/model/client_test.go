package model

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestChatCompletion(t *testing.T) {
	var gotAuth, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path

		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}

		json.NewEncoder(w).Encode(ChatResponse{
			ID: "gen-1",
			Choices: []Choice{
				{Message: Message{Role: "assistant", Content: "GRATITUDE:\nCoffee."}},
			},
		})
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL)
	resp, err := client.ChatCompletion(context.Background(), ChatRequest{
		Model:    "openai/gpt-3.5-turbo",
		Messages: []Message{{Role: "user", Content: "analyze my day"}},
	})
	if err != nil {
		t.Fatalf("chat completion: %v", err)
	}

	if gotAuth != "Bearer test-key" {
		t.Fatalf("authorization header: %q", gotAuth)
	}
	if gotPath != "/chat/completions" {
		t.Fatalf("path: %q", gotPath)
	}
	if resp.Text() != "GRATITUDE:\nCoffee." {
		t.Fatalf("text: %q", resp.Text())
	}
}

func TestChatCompletionAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(ErrorResponse{
			Error: ErrorDetail{Message: "rate limited", Type: "rate_limit", Code: "429"},
		})
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL)
	_, err := client.ChatCompletion(context.Background(), ChatRequest{Model: "m"})
	if err == nil {
		t.Fatal("expected error")
	}

	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected APIError, got %T: %v", err, err)
	}
	if !apiErr.IsRateLimitError() || !apiErr.Retryable {
		t.Fatalf("unexpected error classification: %+v", apiErr)
	}
	if apiErr.RetryAfter != 30*time.Second {
		t.Fatalf("retry after: %v", apiErr.RetryAfter)
	}
	if apiErr.Message != "rate limited" {
		t.Fatalf("message: %q", apiErr.Message)
	}
}

func TestChatCompletionNonJSONError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL)
	_, err := client.ChatCompletion(context.Background(), ChatRequest{Model: "m"})

	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.StatusCode != http.StatusBadGateway || !apiErr.Retryable {
		t.Fatalf("unexpected error: %+v", apiErr)
	}
}

func TestChatCompletionContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := client.ChatCompletion(ctx, ChatRequest{Model: "m"}); err == nil {
		t.Fatal("expected deadline error")
	}
}

func TestResponseTextEmpty(t *testing.T) {
	var nilResp *ChatResponse
	if nilResp.Text() != "" {
		t.Fatal("nil response should yield empty text")
	}
	if (&ChatResponse{}).Text() != "" {
		t.Fatal("empty choices should yield empty text")
	}
}
