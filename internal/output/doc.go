// Package output formats analysis reports for display or machine consumption.
//
// Four formats are supported:
//   - text: human-readable terminal output (default)
//   - json: the full structured report, review envelopes included verbatim
//   - markdown: PR-comment-friendly with a collapsible section per file
//   - sarif: SARIF v2.1.0 for upload to code scanning tools
//
// A failed review is rendered as [FailurePlaceholder] with its reason and
// the fallback score. Use [GetWriter] to obtain a [Writer] for a format
// string, or [WriteReport] to write straight to a file or stdout.
package output
