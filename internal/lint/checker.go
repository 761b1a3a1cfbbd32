package lint

import (
	"context"
	"log/slog"
	"strings"
)

// Checker is the caller-facing static check. It never fails: a linter
// error is logged and reported as no findings.
type Checker struct {
	linter Linter
	logger *slog.Logger
}

// NewChecker wraps l. logger defaults to slog.Default().
func NewChecker(l Linter, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{linter: l, logger: logger}
}

// Check returns the raw findings for source, before normalization.
func (c *Checker) Check(ctx context.Context, source string) []Finding {
	if strings.TrimSpace(source) == "" || c.linter == nil {
		return []Finding{}
	}
	findings, err := c.linter.Lint(ctx, source)
	if err != nil {
		c.logger.Warn("lint failed", "error", err)
		return []Finding{}
	}
	if findings == nil {
		findings = []Finding{}
	}
	return findings
}
