// Package redact removes secrets from JavaScript source before it is sent to
// a review provider.
//
// Detection is a set of regex heuristics: provider API keys (Anthropic,
// OpenAI, Groq, GitHub, Slack, npm), AWS credentials, JWTs, bearer tokens,
// private key headers, credentials embedded in connection strings, and
// secret-looking assignments. Files whose paths match configured glob
// patterns are replaced wholesale.
package redact
