package review

import "time"

// Severity represents the severity level of an issue.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// SeverityRank returns a numeric rank for sorting (higher = more severe).
func SeverityRank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// MeetsThreshold returns true if severity is at or above the threshold.
func MeetsThreshold(s Severity, threshold string) bool {
	if threshold == "none" || threshold == "" {
		return false
	}
	return SeverityRank(s) >= SeverityRank(Severity(threshold))
}

// IssueType represents the kind of issue.
type IssueType string

const (
	IssueBug         IssueType = "bug"
	IssueSecurity    IssueType = "security"
	IssuePerformance IssueType = "performance"
	IssueLogic       IssueType = "logic"
	IssueStyle       IssueType = "style"
)

// EventLoopSafety grades how the code treats the Node.js event loop.
type EventLoopSafety string

const (
	EventLoopSafe     EventLoopSafety = "Safe"
	EventLoopAtRisk   EventLoopSafety = "At Risk"
	EventLoopBlocking EventLoopSafety = "Blocking"
)

var (
	issueTypes = map[IssueType]bool{
		IssueBug: true, IssueSecurity: true, IssuePerformance: true, IssueLogic: true, IssueStyle: true,
	}
	severities = map[Severity]bool{
		SeverityLow: true, SeverityMedium: true, SeverityHigh: true, SeverityCritical: true,
	}
	eventLoopValues = map[EventLoopSafety]bool{
		EventLoopSafe: true, EventLoopAtRisk: true, EventLoopBlocking: true,
	}
)

// Metrics holds the Node.js specific health indicators.
type Metrics struct {
	EventLoopSafety  EventLoopSafety `json:"event_loop_safety"`
	AsyncConsistency bool            `json:"async_consistency"`
	DependencyHealth string          `json:"dependency_health"`
}

// Issue is a single problem reported by the reviewer. Line is nil when the
// reviewer did not tie the issue to a line.
type Issue struct {
	Type        IssueType `json:"type"`
	Severity    Severity  `json:"severity"`
	Line        *int      `json:"line"`
	Description string    `json:"description"`
	Suggestion  string    `json:"suggestion"`
}

// Result is a validated review. Values of this type only come out of Parse,
// so Score is within [MinScore, MaxScore] and every enum field is a member
// of its enumeration.
type Result struct {
	Summary          string   `json:"summary"`
	Score            int      `json:"score"`
	Metrics          Metrics  `json:"node_specific_metrics"`
	Issues           []Issue  `json:"issues"`
	PositiveFeedback []string `json:"positive_feedback"`
}

const (
	MinScore = 1
	MaxScore = 10
)

// Metadata describes how a successful review was produced.
type Metadata struct {
	Provider   string    `json:"provider"`
	Model      string    `json:"model"`
	Timestamp  time.Time `json:"timestamp"`
	Truncated  bool      `json:"truncated"`
	InputChars int       `json:"input_chars"`
	TokensUsed int       `json:"tokens_used,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	Cached     bool      `json:"cached"`
	Redactions int       `json:"redactions,omitempty"`
}

// Envelope is the tagged success/failure wrapper handed to callers. Exactly
// one of (Data, Metadata) or Error is populated, as selected by Success.
type Envelope struct {
	Success       bool      `json:"success"`
	Data          *Result   `json:"data,omitempty"`
	Metadata      *Metadata `json:"metadata,omitempty"`
	Error         string    `json:"error,omitempty"`
	FallbackScore *int      `json:"fallback_score,omitempty"`
}

// Succeeded builds a success envelope.
func Succeeded(r Result, md Metadata) Envelope {
	return Envelope{Success: true, Data: &r, Metadata: &md}
}

// Failed builds a failure envelope with a fallback score of 0.
func Failed(message string) Envelope {
	zero := 0
	return Envelope{Success: false, Error: message, FallbackScore: &zero}
}

// Score returns the review score, or the fallback score for a failure.
func (e Envelope) Score() int {
	if e.Success && e.Data != nil {
		return e.Data.Score
	}
	return 0
}

// SeverityCounts holds counts by severity level.
type SeverityCounts struct {
	Low      int `json:"low"`
	Medium   int `json:"medium"`
	High     int `json:"high"`
	Critical int `json:"critical"`
}

// Summary provides an overview of issues.
type Summary struct {
	Counts          SeverityCounts `json:"counts"`
	HighestSeverity Severity       `json:"highestSeverity"`
}

// ComputeSummary calculates the summary from issues.
func ComputeSummary(issues []Issue) Summary {
	var s Summary
	for _, is := range issues {
		switch is.Severity {
		case SeverityLow:
			s.Counts.Low++
		case SeverityMedium:
			s.Counts.Medium++
		case SeverityHigh:
			s.Counts.High++
		case SeverityCritical:
			s.Counts.Critical++
		}
		if SeverityRank(is.Severity) > SeverityRank(s.HighestSeverity) {
			s.HighestSeverity = is.Severity
		}
	}
	return s
}
