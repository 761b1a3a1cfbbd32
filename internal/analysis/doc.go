// Package analysis models the per-file analysis session.
//
// For each file an Analyzer tracks two independent states, one for the AI
// review and one for the static check, each moving from idle through
// fetching to done or failed. Both run concurrently behind their own
// in-flight keys. Unsupported files are rejected before anything is
// dispatched, and a completed file is served from memory until a forced
// refresh.
package analysis
