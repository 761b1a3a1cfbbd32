// Package review turns JavaScript source into a validated, structured code
// review.
//
// A Reviewer sends the source (truncated to a character budget and with
// secrets redacted) to a providers.Completer, strips code-fence markers from
// the reply with Sanitize, and checks the result against the review schema
// with Parse. The outcome is always an Envelope: either a Result with
// Metadata, or an error message with a fallback score of 0. Callers never
// see a partially valid review.
//
// Successful sanitized responses can be cached on disk; cached text is
// validated again on every hit.
package review
