// Package providers implements the Completer interface for each supported
// text-completion provider.
//
// Supported providers: Groq and OpenAI (and any OpenAI-compatible endpoint
// via baseURL), Ollama / LM Studio for local models, Anthropic, and Google
// Gemini. Each call sends one system prompt and one user message, requests a
// JSON object where the API has such a switch, and never streams.
//
// Failures come back as *ProviderError; a missing credential is reported by
// [New] as *ConfigError. Calls are made once by default. When maxAttempts is
// raised, rate-limit and 5xx responses are retried with exponential back-off
// using github.com/codeGROOVE-dev/retry.
//
// HTTP clients are held in struct fields so that tests can redirect calls
// to local httptest servers without making live API requests.
package providers
