package lint

import "context"

// ESLint severities as reported in its JSON output.
const (
	SeverityWarning = 1
	SeverityError   = 2
)

// Finding is one linter message. RuleID is empty for messages not produced
// by a rule, such as parse errors.
type Finding struct {
	RuleID   string `json:"ruleId"`
	Severity int    `json:"severity"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Message  string `json:"message"`
	Fix      *Fix   `json:"fix,omitempty"`
}

// Fix is an autofix suggestion: replace the byte range with Text.
type Fix struct {
	Range [2]int `json:"range"`
	Text  string `json:"text"`
}

// SeverityName returns "error", "warning" or "off".
func (f Finding) SeverityName() string {
	switch f.Severity {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "off"
	}
}

// Linter checks a single piece of JavaScript source.
type Linter interface {
	Lint(ctx context.Context, source string) ([]Finding, error)
}
