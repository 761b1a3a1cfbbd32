package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dshills/nodereview/internal/lint"
	"github.com/dshills/nodereview/internal/review"
)

// SARIFWriter outputs review issues and lint findings in SARIF v2.1.0 format.
type SARIFWriter struct{}

func (s *SARIFWriter) Write(w io.Writer, report *Report) error {
	data, err := json.MarshalIndent(buildSARIF(report), "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling SARIF: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing SARIF: %w", err)
	}
	_, err = fmt.Fprintln(w)
	return err
}

// SARIF schema types (v2.1.0)

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version"`
	InformationURI string      `json:"informationUri"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string             `json:"id"`
	ShortDescription sarifMessage       `json:"shortDescription"`
	DefaultConfig    sarifDefaultConfig `json:"defaultConfiguration"`
}

type sarifDefaultConfig struct {
	Level string `json:"level"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations,omitempty"`
	Fixes     []sarifFix      `json:"fixes,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine   int `json:"startLine"`
	StartColumn int `json:"startColumn,omitempty"`
}

type sarifFix struct {
	Description sarifMessage `json:"description"`
}

type sarifBuilder struct {
	rules   []sarifRule
	seen    map[string]bool
	results []sarifResult
}

func (b *sarifBuilder) rule(id, desc, level string) {
	if b.seen[id] {
		return
	}
	b.seen[id] = true
	b.rules = append(b.rules, sarifRule{
		ID:               id,
		ShortDescription: sarifMessage{Text: desc},
		DefaultConfig:    sarifDefaultConfig{Level: level},
	})
}

func buildSARIF(report *Report) sarifLog {
	b := &sarifBuilder{seen: make(map[string]bool), results: []sarifResult{}}

	for _, f := range report.Files {
		if f.Review != nil && f.Review.Success {
			for _, is := range f.Review.Data.Issues {
				b.addIssue(f.Path, is)
			}
		}
		for _, lf := range f.Findings {
			b.addFinding(f.Path, lf)
		}
	}

	return sarifLog{
		Version: "2.1.0",
		Schema:  "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/main/sarif-2.1/schema/sarif-schema-2.1.0.json",
		Runs: []sarifRun{
			{
				Tool: sarifTool{
					Driver: sarifDriver{
						Name:           "nodereview",
						Version:        report.Version,
						InformationURI: "https://github.com/dshills/nodereview",
						Rules:          b.rules,
					},
				},
				Results: b.results,
			},
		},
	}
}

func (b *sarifBuilder) addIssue(path string, is review.Issue) {
	id := "nodereview/" + string(is.Type)
	level := severityToLevel(is.Severity)
	b.rule(id, "AI review: "+string(is.Type), "warning")

	loc := sarifLocation{PhysicalLocation: sarifPhysicalLocation{ArtifactLocation: sarifArtifactLocation{URI: path}}}
	if is.Line != nil {
		loc.PhysicalLocation.Region = &sarifRegion{StartLine: *is.Line}
	}
	res := sarifResult{
		RuleID:    id,
		Level:     level,
		Message:   sarifMessage{Text: is.Description},
		Locations: []sarifLocation{loc},
	}
	if is.Suggestion != "" {
		res.Fixes = []sarifFix{{Description: sarifMessage{Text: is.Suggestion}}}
	}
	b.results = append(b.results, res)
}

func (b *sarifBuilder) addFinding(path string, f lint.Finding) {
	id := "eslint/" + f.RuleID
	level := "warning"
	if f.Severity == lint.SeverityError {
		level = "error"
	}
	b.rule(id, "ESLint rule "+f.RuleID, level)

	res := sarifResult{
		RuleID:  id,
		Level:   level,
		Message: sarifMessage{Text: f.Message},
		Locations: []sarifLocation{{PhysicalLocation: sarifPhysicalLocation{
			ArtifactLocation: sarifArtifactLocation{URI: path},
			Region:           &sarifRegion{StartLine: max(f.Line, 1), StartColumn: f.Column},
		}}},
	}
	if f.Fix != nil {
		res.Fixes = []sarifFix{{Description: sarifMessage{Text: fmt.Sprintf("Replace characters %d-%d with %q", f.Fix.Range[0], f.Fix.Range[1], f.Fix.Text)}}}
	}
	b.results = append(b.results, res)
}

// severityToLevel maps review severity to SARIF level.
func severityToLevel(s review.Severity) string {
	switch s {
	case review.SeverityCritical, review.SeverityHigh:
		return "error"
	case review.SeverityMedium:
		return "warning"
	default:
		return "note"
	}
}
