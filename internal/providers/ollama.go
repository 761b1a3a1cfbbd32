package providers

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dshills/nodereview/internal/config"
)

const defaultOllamaURL = "http://localhost:11434"

// NewOllama creates a ChatCompletions provider for Ollama or LM Studio. No
// API key is required; one is sent when configured.
func NewOllama(cfg config.ProviderConfig) (*ChatCompletions, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = os.Getenv("OLLAMA_HOST")
	}
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}

	// Accept host, host/v1 or the full endpoint.
	baseURL = strings.TrimRight(baseURL, "/")
	baseURL = strings.TrimSuffix(baseURL, "/v1/chat/completions")
	baseURL = strings.TrimSuffix(baseURL, "/v1")

	return &ChatCompletions{
		name:        cfg.Name,
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		baseURL:     baseURL + "/v1/chat/completions",
		maxAttempts: cfg.MaxAttempts,
		client:      &http.Client{Timeout: httpTimeout(cfg, 300*time.Second)},
	}, nil
}
