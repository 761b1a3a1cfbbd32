package providers

import (
	"context"
	"time"

	"github.com/dshills/nodereview/internal/config"
)

// Request is one completion call. Streaming is never requested.
type Request struct {
	SystemPrompt     string
	UserPrompt       string
	MaxTokens        int
	Temperature      float64
	FrequencyPenalty float64
	// JSON asks the provider for a JSON object response where it supports a hint.
	JSON bool
}

// Response contains the raw text returned by the provider.
type Response struct {
	Content    string
	Model      string
	TokensUsed int
}

// Completer is the provider abstraction interface.
type Completer interface {
	Complete(ctx context.Context, req Request) (Response, error)
	Name() string
	Model() string
}

const defaultMaxTokens = 4096

// New creates a provider from configuration. A provider that needs a
// credential and has none fails here with a *ConfigError, so a missing key
// surfaces once at startup rather than on every call.
func New(cfg config.ProviderConfig) (Completer, error) {
	var (
		c   Completer
		err error
	)
	switch cfg.Name {
	case "groq", "openai":
		c, err = NewChatCompletions(cfg)
	case "anthropic":
		c, err = NewAnthropic(cfg)
	case "gemini", "google":
		c, err = NewGemini(cfg)
	case "ollama", "lmstudio":
		c, err = NewOllama(cfg)
	default:
		return nil, &ConfigError{Provider: cfg.Name, Message: "unknown provider: " + cfg.Name}
	}
	if err != nil {
		// A typed nil pointer inside c would compare non-nil.
		return nil, err
	}
	return c, nil
}

func requireKey(cfg config.ProviderConfig) error {
	if cfg.APIKey != "" {
		return nil
	}
	env := cfg.APIKeyEnv
	if env == "" {
		env = config.DefaultAPIKeyEnv(cfg.Name)
	}
	return &ConfigError{Provider: cfg.Name, Message: env + " environment variable is not set"}
}

func httpTimeout(cfg config.ProviderConfig, fallback time.Duration) time.Duration {
	if cfg.TimeoutSeconds > 0 {
		return time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return fallback
}

func maxTokens(req Request) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	return defaultMaxTokens
}
