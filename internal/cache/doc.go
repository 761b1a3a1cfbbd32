// Package cache provides a file-based cache for provider review responses.
//
// Entries are keyed by a SHA-256 hash of the provider name, model, and the
// source text actually sent (after truncation and redaction). Each entry
// stores the sanitized response text with a creation timestamp; the review
// engine re-validates it on every hit. Expired entries are skipped on read.
//
// The default cache directory is $XDG_CACHE_HOME/nodereview (or the
// OS-appropriate equivalent).
package cache
