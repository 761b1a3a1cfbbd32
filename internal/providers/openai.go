package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dshills/nodereview/internal/config"
)

const (
	defaultGroqURL   = "https://api.groq.com/openai/v1/chat/completions"
	defaultOpenAIURL = "https://api.openai.com/v1/chat/completions"
)

// ChatCompletions implements Completer for OpenAI-compatible chat
// completion APIs: Groq, OpenAI, Ollama and LM Studio.
type ChatCompletions struct {
	name        string
	apiKey      string
	model       string
	baseURL     string
	maxAttempts int
	retryDelay  time.Duration
	client      *http.Client
}

// NewChatCompletions creates a Groq or OpenAI provider.
func NewChatCompletions(cfg config.ProviderConfig) (*ChatCompletions, error) {
	if err := requireKey(cfg); err != nil {
		return nil, err
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenAIURL
		if cfg.Name == "groq" {
			baseURL = defaultGroqURL
		}
	}
	return &ChatCompletions{
		name:        cfg.Name,
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		baseURL:     baseURL,
		maxAttempts: cfg.MaxAttempts,
		client:      &http.Client{Timeout: httpTimeout(cfg, 120*time.Second)},
	}, nil
}

func (c *ChatCompletions) Name() string  { return c.name }
func (c *ChatCompletions) Model() string { return c.model }

func (c *ChatCompletions) Complete(ctx context.Context, req Request) (Response, error) {
	body := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		},
		MaxTokens:   maxTokens(req),
		Temperature: req.Temperature,
		TopP:        1,
		Stream:      false,
	}
	if req.FrequencyPenalty != 0 {
		body.FrequencyPenalty = &req.FrequencyPenalty
	}
	if req.JSON {
		body.ResponseFormat = &chatResponseFormat{Type: "json_object"}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return Response{}, wrap(c.name, fmt.Errorf("marshaling request: %w", err))
	}

	headers := map[string]string{}
	if c.apiKey != "" {
		headers["Authorization"] = "Bearer " + c.apiKey
	}

	var resp Response
	err = withRetry(ctx, c.name, c.maxAttempts, c.retryDelay, func() error {
		respBody, err := postJSON(ctx, c.client, c.baseURL, headers, payload)
		if err != nil {
			return err
		}

		var result chatResponse
		if err := json.Unmarshal(respBody, &result); err != nil {
			return fmt.Errorf("parsing response: %w", err)
		}
		if len(result.Choices) == 0 {
			return fmt.Errorf("no choices in response")
		}
		content := result.Choices[0].Message.Content
		if strings.TrimSpace(content) == "" {
			return ErrEmptyContent
		}

		model := result.Model
		if model == "" {
			model = c.model
		}
		resp = Response{
			Content:    content,
			Model:      model,
			TokensUsed: result.Usage.TotalTokens,
		}
		return nil
	})

	return resp, wrap(c.name, err)
}

type chatRequest struct {
	Model            string              `json:"model"`
	Messages         []chatMessage       `json:"messages"`
	MaxTokens        int                 `json:"max_tokens"`
	Temperature      float64             `json:"temperature"`
	TopP             float64             `json:"top_p"`
	FrequencyPenalty *float64            `json:"frequency_penalty,omitempty"`
	Stream           bool                `json:"stream"`
	ResponseFormat   *chatResponseFormat `json:"response_format,omitempty"`
}

type chatResponseFormat struct {
	Type string `json:"type"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type chatUsage struct {
	TotalTokens int `json:"total_tokens"`
}
