package providers

import (
	"errors"
	"fmt"
)

// ConfigError reports a provider that cannot be constructed, most often
// because its credential is missing.
type ConfigError struct {
	Provider string
	Message  string
}

func (e *ConfigError) Error() string {
	return "configuration error: " + e.Message
}

// ProviderError reports a failed completion call: transport failure,
// non-200 status, undecodable body, or empty content.
type ProviderError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider %s (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ErrEmptyContent is returned when the provider answers without any text.
var ErrEmptyContent = errors.New("empty content in API response")

type rateLimitError struct{}

func (e *rateLimitError) Error() string { return "rate limited" }
func (e *rateLimitError) status() int   { return 429 }

type authError struct {
	statusCode int
	message    string
}

func (e *authError) Error() string {
	return "authentication error: " + e.message
}

func (e *authError) status() int { return e.statusCode }

type serverError struct {
	statusCode int
	body       string
}

func (e *serverError) Error() string {
	return fmt.Sprintf("server error (status %d): %s", e.statusCode, e.body)
}

func (e *serverError) status() int { return e.statusCode }

// statusCoder is implemented by errors that came from an HTTP status.
type statusCoder interface {
	status() int
}

// IsAuthError checks if an error is an authentication error.
func IsAuthError(err error) bool {
	var ae *authError
	return errors.As(err, &ae)
}

// IsConfigError checks if an error is a provider configuration error.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

func wrap(provider string, err error) error {
	if err == nil {
		return nil
	}
	pe := &ProviderError{Provider: provider, Err: err}
	var sc statusCoder
	if errors.As(err, &sc) {
		pe.StatusCode = sc.status()
	}
	return pe
}

func truncateBody(b []byte) string {
	const limit = 512
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
