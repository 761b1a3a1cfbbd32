package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestChat(serverURL string, client *http.Client, attempts int) *ChatCompletions {
	return &ChatCompletions{
		name:        "groq",
		apiKey:      "test-key",
		model:       "moonshotai/kimi-k2-instruct-0905",
		baseURL:     serverURL,
		maxAttempts: attempts,
		retryDelay:  time.Millisecond,
		client:      client,
	}
}

func TestChatCompletions_Complete(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Error("Missing or wrong Authorization header")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		json.NewEncoder(w).Encode(chatResponse{
			Model: "moonshotai/kimi-k2-instruct-0905",
			Choices: []chatChoice{
				{Message: chatMessage{Role: "assistant", Content: `{"summary":"ok"}`}},
			},
			Usage: chatUsage{TotalTokens: 50},
		})
	}))
	defer server.Close()

	c := newTestChat(server.URL, server.Client(), 1)
	resp, err := c.Complete(context.Background(), Request{
		SystemPrompt:     "system",
		UserPrompt:       "const x = 1",
		MaxTokens:        9000,
		Temperature:      0.2,
		FrequencyPenalty: 0.8,
		JSON:             true,
	})
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if resp.Content != `{"summary":"ok"}` {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.TokensUsed != 50 {
		t.Errorf("TokensUsed = %d, want 50", resp.TokensUsed)
	}

	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "const x = 1" {
		t.Errorf("Messages = %+v", got.Messages)
	}
	if got.ResponseFormat == nil || got.ResponseFormat.Type != "json_object" {
		t.Errorf("ResponseFormat = %+v, want json_object", got.ResponseFormat)
	}
	if got.Stream {
		t.Error("Stream must be false")
	}
	if got.MaxTokens != 9000 || got.Temperature != 0.2 {
		t.Errorf("MaxTokens/Temperature = %d/%v", got.MaxTokens, got.Temperature)
	}
	if got.FrequencyPenalty == nil || *got.FrequencyPenalty != 0.8 {
		t.Errorf("FrequencyPenalty = %v, want 0.8", got.FrequencyPenalty)
	}
	if got.TopP != 1 {
		t.Errorf("TopP = %v, want 1", got.TopP)
	}
}

func TestChatCompletions_FailFastByDefault(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer server.Close()

	c := newTestChat(server.URL, server.Client(), 1)
	_, err := c.Complete(context.Background(), Request{UserPrompt: "x"})
	if err == nil {
		t.Fatal("Expected error")
	}
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("error %T should be *ProviderError", err)
	}
	if pe.StatusCode != http.StatusTooManyRequests {
		t.Errorf("StatusCode = %d, want 429", pe.StatusCode)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want exactly 1", attempts)
	}
}

func TestChatCompletions_RetriesRateLimitWhenConfigured(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(chatResponse{
			Choices: []chatChoice{{Message: chatMessage{Content: "{}"}}},
		})
	}))
	defer server.Close()

	c := newTestChat(server.URL, server.Client(), 3)
	resp, err := c.Complete(context.Background(), Request{UserPrompt: "x"})
	if err != nil {
		t.Fatalf("Complete error after retries: %v", err)
	}
	if resp.Content != "{}" {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.Model != c.model {
		t.Errorf("Model = %q, want configured model when response omits it", resp.Model)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestChatCompletions_AuthErrorNotRetried(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid api key"}`))
	}))
	defer server.Close()

	c := newTestChat(server.URL, server.Client(), 3)
	_, err := c.Complete(context.Background(), Request{UserPrompt: "x"})
	if !IsAuthError(err) {
		t.Fatalf("IsAuthError(%v) = false", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, auth errors must not be retried", attempts)
	}
}

func TestChatCompletions_EmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatResponse{
			Choices: []chatChoice{{Message: chatMessage{Content: "  "}}},
		})
	}))
	defer server.Close()

	c := newTestChat(server.URL, server.Client(), 1)
	_, err := c.Complete(context.Background(), Request{UserPrompt: "x"})
	if !errors.Is(err, ErrEmptyContent) {
		t.Errorf("error = %v, want ErrEmptyContent", err)
	}
}

func TestChatCompletions_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c := newTestChat(url, http.DefaultClient, 1)
	_, err := c.Complete(context.Background(), Request{UserPrompt: "x"})
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want *ProviderError", err)
	}
	if pe.Provider != "groq" {
		t.Errorf("Provider = %q, want groq", pe.Provider)
	}
}

func TestChatCompletions_NoJSONHint(t *testing.T) {
	var raw map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&raw)
		json.NewEncoder(w).Encode(chatResponse{
			Choices: []chatChoice{{Message: chatMessage{Content: "text"}}},
		})
	}))
	defer server.Close()

	c := newTestChat(server.URL, server.Client(), 1)
	if _, err := c.Complete(context.Background(), Request{UserPrompt: "x"}); err != nil {
		t.Fatal(err)
	}
	if _, ok := raw["response_format"]; ok {
		t.Error("response_format should be omitted when JSON is false")
	}
	if _, ok := raw["frequency_penalty"]; ok {
		t.Error("frequency_penalty should be omitted when zero")
	}
	if raw["max_tokens"] != float64(defaultMaxTokens) {
		t.Errorf("max_tokens = %v, want default %d", raw["max_tokens"], defaultMaxTokens)
	}
}
