package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dshills/nodereview/internal/lint"
	"github.com/dshills/nodereview/internal/review"
)

// TextWriter outputs a human-readable text report.
type TextWriter struct{}

func (t *TextWriter) Write(w io.Writer, report *Report) error {
	ew := &errWriter{w: w}

	ew.printf("nodereview %s: %d file(s)\n", report.Version, len(report.Files))
	ew.println(strings.Repeat("=", 60))

	for _, f := range report.Files {
		ew.printf("\n%s\n", f.Path)
		ew.println(strings.Repeat("-", 60))
		if f.Skipped != "" {
			ew.printf("  skipped: %s\n", f.Skipped)
			continue
		}
		if f.Review != nil {
			writeReviewText(ew, f.Review)
		}
		if f.Findings != nil {
			writeFindingsText(ew, f.Findings)
		}
	}

	ew.printf("\n%s\n", strings.Repeat("=", 60))
	ew.printf("Completed in %dms\n", report.DurationMs)
	return ew.err
}

func writeReviewText(ew *errWriter, env *review.Envelope) {
	if !env.Success {
		ew.printf("  %s\n", FailurePlaceholder)
		ew.printf("  Reason: %s\n", env.Error)
		ew.printf("  Score: %d/%d\n", env.Score(), review.MaxScore)
		return
	}
	r := env.Data
	ew.printf("  Score: %d/%d\n", r.Score, review.MaxScore)
	for _, line := range wrapText(r.Summary, 70) {
		ew.printf("  %s\n", line)
	}
	ew.printf("  Event loop: %s | Async consistent: %t | Dependencies: %s\n",
		r.Metrics.EventLoopSafety, r.Metrics.AsyncConsistency, r.Metrics.DependencyHealth)
	if md := env.Metadata; md != nil {
		ew.printf("  Model: %s/%s", md.Provider, md.Model)
		if md.Cached {
			ew.printf(" (cached)")
		}
		if md.Truncated {
			ew.printf(" (input truncated)")
		}
		ew.println("")
	}

	if len(r.Issues) == 0 {
		ew.println("\n  No issues found. Looks good!")
	}
	issues := append([]review.Issue(nil), r.Issues...)
	sort.SliceStable(issues, func(i, j int) bool {
		return review.SeverityRank(issues[i].Severity) > review.SeverityRank(issues[j].Severity)
	})
	for _, is := range issues {
		ew.printf("\n  %s %s [%s]%s\n", severityIcon(is.Severity), strings.ToUpper(string(is.Severity)), is.Type, lineSuffix(is.Line))
		for _, line := range wrapText(is.Description, 70) {
			ew.printf("    %s\n", line)
		}
		if is.Suggestion != "" {
			ew.println("    Suggestion:")
			for _, line := range strings.Split(is.Suggestion, "\n") {
				ew.printf("      %s\n", line)
			}
		}
	}

	if len(r.PositiveFeedback) > 0 {
		ew.println("\n  Good:")
		for _, p := range r.PositiveFeedback {
			ew.printf("    + %s\n", p)
		}
	}
}

func writeFindingsText(ew *errWriter, findings []lint.Finding) {
	ew.printf("\n  Static check: %d finding(s)\n", len(findings))
	for _, f := range findings {
		ew.printf("    %d:%d  %-7s %s  %s\n", f.Line, f.Column, f.SeverityName(), f.Message, f.RuleID)
	}
}

func lineSuffix(line *int) string {
	if line == nil {
		return ""
	}
	return fmt.Sprintf(" line %d", *line)
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}

func severityIcon(s review.Severity) string {
	switch s {
	case review.SeverityCritical:
		return "[!!!]"
	case review.SeverityHigh:
		return "[!!]"
	case review.SeverityMedium:
		return "[!]"
	case review.SeverityLow:
		return "[-]"
	default:
		return "[?]"
	}
}

func wrapText(text string, width int) []string {
	if len(text) <= width {
		return []string{text}
	}
	var lines []string
	var current strings.Builder
	for _, word := range strings.Fields(text) {
		if current.Len()+len(word)+1 > width && current.Len() > 0 {
			lines = append(lines, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}
