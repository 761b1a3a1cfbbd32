package output

import (
	"fmt"
	"io"
	"os"

	"github.com/dshills/nodereview/internal/lint"
	"github.com/dshills/nodereview/internal/review"
)

// FailurePlaceholder is shown in place of a review that could not be produced.
const FailurePlaceholder = "Failed to fetch review."

// FileReport is the analysis of one file. Either half may be absent when
// only a review or only a check was requested.
type FileReport struct {
	Path   string           `json:"path"`
	Review *review.Envelope `json:"review,omitempty"`
	// Findings is nil when the file was not checked and empty when the
	// check was clean.
	Findings []lint.Finding `json:"findings"`
	// Skipped explains why a file was not analyzed.
	Skipped string `json:"skipped,omitempty"`
}

// Report is the result of one run over one or more files.
type Report struct {
	Tool       string       `json:"tool"`
	Version    string       `json:"version"`
	Files      []FileReport `json:"files"`
	DurationMs int64        `json:"durationMs"`
}

// Exceeds reports whether any review issue or lint finding is at or above
// threshold. Lint errors rank as high and lint warnings as low.
func (r *Report) Exceeds(threshold string) bool {
	for _, f := range r.Files {
		if f.Review != nil && f.Review.Success {
			for _, is := range f.Review.Data.Issues {
				if review.MeetsThreshold(is.Severity, threshold) {
					return true
				}
			}
		}
		for _, lf := range f.Findings {
			if review.MeetsThreshold(lintSeverity(lf), threshold) {
				return true
			}
		}
	}
	return false
}

// Failures counts files whose review failed.
func (r *Report) Failures() int {
	var n int
	for _, f := range r.Files {
		if f.Review != nil && !f.Review.Success {
			n++
		}
	}
	return n
}

func lintSeverity(f lint.Finding) review.Severity {
	if f.Severity == lint.SeverityError {
		return review.SeverityHigh
	}
	return review.SeverityLow
}

// Writer writes a report in a specific format.
type Writer interface {
	Write(w io.Writer, report *Report) error
}

// GetWriter returns a writer for the specified format.
func GetWriter(format string) (Writer, error) {
	switch format {
	case "text", "":
		return &TextWriter{}, nil
	case "json":
		return &JSONWriter{}, nil
	case "markdown", "md":
		return &MarkdownWriter{}, nil
	case "sarif":
		return &SARIFWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteReport writes the report to the specified output (file path or stdout).
func WriteReport(report *Report, format, outPath string) error {
	writer, err := GetWriter(format)
	if err != nil {
		return err
	}

	var w io.Writer
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		w = f
	} else {
		w = os.Stdout
	}

	return writer.Write(w, report)
}
