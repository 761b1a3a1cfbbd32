// Nodereview is a CLI and HTTP service that reviews Node.js source files with
// an LLM provider and runs ESLint over the same code.
//
// LLM responses are sanitized and validated against a fixed review schema;
// any failure becomes a failure envelope with a fallback score of 0, so a
// caller always receives a well-formed result. ESLint findings are filtered
// to those tied to a source line and deduplicated.
//
// Usage:
//
//	nodereview review src/app.js          # LLM review of one file
//	nodereview check --staged             # ESLint over staged files
//	nodereview analyze src/               # review and check concurrently
//	cat app.js | nodereview review -      # review code from stdin
//	nodereview serve --addr :8080         # HTTP API
//	nodereview hook install               # git pre-commit hook
package main
