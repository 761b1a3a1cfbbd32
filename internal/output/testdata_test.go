package output

import (
	"github.com/dshills/nodereview/internal/lint"
	"github.com/dshills/nodereview/internal/review"
)

func sampleReport() *Report {
	line := 12
	ok := review.Succeeded(review.Result{
		Summary: "Handler blocks the event loop.",
		Score:   6,
		Metrics: review.Metrics{EventLoopSafety: review.EventLoopBlocking, AsyncConsistency: false, DependencyHealth: "Good"},
		Issues: []review.Issue{
			{Type: review.IssuePerformance, Severity: review.SeverityHigh, Line: &line, Description: "fs.readFileSync in request handler", Suggestion: "const data = await fs.promises.readFile(p);"},
			{Type: review.IssueStyle, Severity: review.SeverityLow, Description: "Inconsistent naming", Suggestion: "Use camelCase throughout"},
		},
		PositiveFeedback: []string{"Clear route structure"},
	}, review.Metadata{Provider: "groq", Model: "kimi", Cached: true})
	failed := review.Failed("provider groq (status 429): rate limited")

	return &Report{
		Tool:    "nodereview",
		Version: "1.0.0",
		Files: []FileReport{
			{
				Path:   "server.js",
				Review: &ok,
				Findings: []lint.Finding{
					{RuleID: "prefer-const", Severity: lint.SeverityError, Line: 3, Column: 5, Message: "'app' is never reassigned. Use 'const' instead.", Fix: &lint.Fix{Range: [2]int{20, 23}, Text: "const"}},
				},
			},
			{Path: "worker.js", Review: &failed, Findings: []lint.Finding{}},
			{Path: "README.md", Skipped: "unsupported file type"},
		},
		DurationMs: 1234,
	}
}
