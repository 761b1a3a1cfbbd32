package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/dshills/nodereview/internal/lint"
	"github.com/dshills/nodereview/internal/review"
)

// MarkdownWriter outputs a PR-comment-friendly markdown report.
type MarkdownWriter struct{}

func (m *MarkdownWriter) Write(w io.Writer, report *Report) error {
	ew := &errWriter{w: w}
	ew.printf("## nodereview\n\n")

	ew.printf("| File | Score | Issues | Lint |\n")
	ew.printf("|------|-------|--------|------|\n")
	for _, f := range report.Files {
		score, issues := "-", "-"
		if f.Review != nil {
			score = fmt.Sprintf("%d/%d", f.Review.Score(), review.MaxScore)
			if f.Review.Success {
				issues = fmt.Sprint(len(f.Review.Data.Issues))
			} else {
				issues = "n/a"
			}
		}
		lintCount := "-"
		if f.Findings != nil {
			lintCount = fmt.Sprint(len(f.Findings))
		}
		ew.printf("| `%s` | %s | %s | %s |\n", f.Path, score, issues, lintCount)
	}
	ew.println("")

	for _, f := range report.Files {
		if f.Skipped != "" || (f.Review == nil && len(f.Findings) == 0) {
			continue
		}
		ew.printf("<details>\n<summary><code>%s</code></summary>\n\n", f.Path)
		if f.Review != nil {
			writeReviewMarkdown(ew, f.Review)
		}
		if len(f.Findings) > 0 {
			writeFindingsMarkdown(ew, f.Findings)
		}
		ew.printf("</details>\n\n")
	}

	ew.printf("*Reviewed in %dms*\n", report.DurationMs)
	return ew.err
}

func writeReviewMarkdown(ew *errWriter, env *review.Envelope) {
	if !env.Success {
		ew.printf("> :x: %s\n>\n> %s\n\n", FailurePlaceholder, env.Error)
		return
	}
	r := env.Data
	ew.printf("**Score: %d/%d**. %s\n\n", r.Score, review.MaxScore, r.Summary)
	ew.printf("| Event loop | Async consistent | Dependencies |\n")
	ew.printf("|------------|------------------|--------------|\n")
	ew.printf("| %s | %t | %s |\n\n", r.Metrics.EventLoopSafety, r.Metrics.AsyncConsistency, r.Metrics.DependencyHealth)

	for _, is := range r.Issues {
		ew.printf("#### %s %s: %s%s\n\n", mdSeverityIcon(is.Severity), strings.ToUpper(string(is.Severity)), is.Type, lineSuffix(is.Line))
		ew.printf("%s\n\n", is.Description)
		if is.Suggestion != "" {
			ew.printf("**Suggestion:**\n\n")
			if looksLikeCode(is.Suggestion) {
				ew.printf("```javascript\n%s\n```\n\n", is.Suggestion)
			} else {
				ew.printf("> %s\n\n", strings.ReplaceAll(is.Suggestion, "\n", "\n> "))
			}
		}
	}

	if len(r.PositiveFeedback) > 0 {
		ew.printf("**What's good:**\n\n")
		for _, p := range r.PositiveFeedback {
			ew.printf("- %s\n", p)
		}
		ew.println("")
	}
}

func writeFindingsMarkdown(ew *errWriter, findings []lint.Finding) {
	ew.printf("**Static check**\n\n")
	ew.printf("| Line | Rule | Severity | Message |\n")
	ew.printf("|------|------|----------|---------|\n")
	for _, f := range findings {
		ew.printf("| %d:%d | `%s` | %s | %s |\n", f.Line, f.Column, f.RuleID, f.SeverityName(),
			strings.ReplaceAll(f.Message, "|", "\\|"))
	}
	ew.println("")
}

func mdSeverityIcon(s review.Severity) string {
	switch s {
	case review.SeverityCritical:
		return ":no_entry:"
	case review.SeverityHigh:
		return ":red_circle:"
	case review.SeverityMedium:
		return ":orange_circle:"
	case review.SeverityLow:
		return ":yellow_circle:"
	default:
		return ":white_circle:"
	}
}

func looksLikeCode(s string) bool {
	codeIndicators := []string{
		"function ", "const ", "let ", "await ", "return ",
		"require(", "import ", "=>", "{", "}", "();",
	}
	for _, indicator := range codeIndicators {
		if strings.Contains(s, indicator) {
			return true
		}
	}
	return false
}
