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
	anthropicAPIURL     = "https://api.anthropic.com/v1/messages"
	anthropicAPIVersion = "2023-06-01"
)

// Anthropic implements Completer for Anthropic's messages API. The API has
// no JSON response-format switch, so the JSON hint is carried by the prompt.
type Anthropic struct {
	apiKey      string
	model       string
	baseURL     string
	maxAttempts int
	retryDelay  time.Duration
	client      *http.Client
}

// NewAnthropic creates a new Anthropic provider.
func NewAnthropic(cfg config.ProviderConfig) (*Anthropic, error) {
	if err := requireKey(cfg); err != nil {
		return nil, err
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = anthropicAPIURL
	}
	return &Anthropic{
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		baseURL:     baseURL,
		maxAttempts: cfg.MaxAttempts,
		client:      &http.Client{Timeout: httpTimeout(cfg, 120*time.Second)},
	}, nil
}

func (a *Anthropic) Name() string  { return "anthropic" }
func (a *Anthropic) Model() string { return a.model }

func (a *Anthropic) Complete(ctx context.Context, req Request) (Response, error) {
	temperature := req.Temperature
	body := anthropicRequest{
		Model:       a.model,
		MaxTokens:   maxTokens(req),
		System:      req.SystemPrompt,
		Temperature: &temperature,
		Messages: []anthropicMessage{
			{Role: "user", Content: req.UserPrompt},
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return Response{}, wrap(a.Name(), fmt.Errorf("marshaling request: %w", err))
	}

	headers := map[string]string{
		"x-api-key":         a.apiKey,
		"anthropic-version": anthropicAPIVersion,
	}

	var resp Response
	err = withRetry(ctx, a.Name(), a.maxAttempts, a.retryDelay, func() error {
		respBody, err := postJSON(ctx, a.client, a.baseURL, headers, payload)
		if err != nil {
			return err
		}

		var result anthropicResponse
		if err := json.Unmarshal(respBody, &result); err != nil {
			return fmt.Errorf("parsing response: %w", err)
		}

		var content strings.Builder
		for _, block := range result.Content {
			if block.Type == "text" {
				content.WriteString(block.Text)
			}
		}
		if strings.TrimSpace(content.String()) == "" {
			return ErrEmptyContent
		}

		model := result.Model
		if model == "" {
			model = a.model
		}
		resp = Response{
			Content:    content.String(),
			Model:      model,
			TokensUsed: result.Usage.InputTokens + result.Usage.OutputTokens,
		}
		return nil
	})

	return resp, wrap(a.Name(), err)
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Temperature *float64           `json:"temperature,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Model   string           `json:"model"`
	Content []anthropicBlock `json:"content"`
	Usage   anthropicUsage   `json:"usage"`
}

type anthropicBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}
