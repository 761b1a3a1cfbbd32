package review

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
)

// Parse decodes sanitized provider text and validates it against the review
// schema. It returns *ParseError when the text is not well-formed JSON and
// *ValidationError, listing every problem found, when the shape is wrong.
func Parse(text string) (Result, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("empty document")
		}
		return Result{}, &ParseError{Err: err}
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return Result{}, &ParseError{Err: errors.New("unexpected data after top-level value")}
	}

	v := &validator{}
	r := v.result(doc)
	if len(v.problems) > 0 {
		return Result{}, &ValidationError{Problems: v.problems}
	}
	return r, nil
}

type validator struct {
	problems []FieldError
}

func (v *validator) addf(path, format string, args ...any) {
	v.problems = append(v.problems, FieldError{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (v *validator) result(doc any) Result {
	obj, ok := doc.(map[string]any)
	if !ok {
		v.addf("$", "expected object, got %s", kind(doc))
		return Result{}
	}

	r := Result{
		Summary: v.str(obj, "summary", "summary"),
	}
	if score, ok := v.integer(obj, "score", "score", true); ok {
		if score < MinScore || score > MaxScore {
			v.addf("score", "must be between %d and %d, got %d", MinScore, MaxScore, score)
		}
		r.Score = score
	}

	metricsKey := "node_specific_metrics"
	if _, ok := obj[metricsKey]; !ok {
		if _, alias := obj["metrics"]; alias {
			metricsKey = "metrics"
		}
	}
	r.Metrics = v.metrics(obj, metricsKey)

	if items, ok := v.array(obj, "issues", "issues"); ok {
		r.Issues = make([]Issue, 0, len(items))
		for i, item := range items {
			r.Issues = append(r.Issues, v.issue(item, fmt.Sprintf("issues[%d]", i)))
		}
	}

	if items, ok := v.array(obj, "positive_feedback", "positive_feedback"); ok {
		r.PositiveFeedback = make([]string, 0, len(items))
		for i, item := range items {
			s, ok := item.(string)
			if !ok {
				v.addf(fmt.Sprintf("positive_feedback[%d]", i), "expected string, got %s", kind(item))
				continue
			}
			r.PositiveFeedback = append(r.PositiveFeedback, s)
		}
	}
	return r
}

func (v *validator) metrics(obj map[string]any, key string) Metrics {
	raw, present := obj[key]
	if !present {
		v.addf(key, "required field is missing")
		return Metrics{}
	}
	m, ok := raw.(map[string]any)
	if !ok {
		v.addf(key, "expected object, got %s", kind(raw))
		return Metrics{}
	}

	var out Metrics
	if s := v.str(m, "event_loop_safety", key+".event_loop_safety"); s != "" || hasString(m, "event_loop_safety") {
		out.EventLoopSafety = EventLoopSafety(s)
		if !eventLoopValues[out.EventLoopSafety] {
			v.addf(key+".event_loop_safety", "must be one of Safe, At Risk, Blocking, got %q", s)
		}
	}
	out.AsyncConsistency = v.boolean(m, "async_consistency", key+".async_consistency")
	out.DependencyHealth = v.str(m, "dependency_health", key+".dependency_health")
	return out
}

func (v *validator) issue(item any, path string) Issue {
	obj, ok := item.(map[string]any)
	if !ok {
		v.addf(path, "expected object, got %s", kind(item))
		return Issue{}
	}

	var is Issue
	if s := v.str(obj, "type", path+".type"); s != "" || hasString(obj, "type") {
		is.Type = IssueType(s)
		if !issueTypes[is.Type] {
			v.addf(path+".type", "must be one of bug, security, performance, logic, style, got %q", s)
		}
	}
	if s := v.str(obj, "severity", path+".severity"); s != "" || hasString(obj, "severity") {
		is.Severity = Severity(s)
		if !severities[is.Severity] {
			v.addf(path+".severity", "must be one of low, medium, high, critical, got %q", s)
		}
	}
	if line, ok := v.integer(obj, "line", path+".line", false); ok {
		switch {
		case line < 0:
			v.addf(path+".line", "must not be negative, got %d", line)
		case line > 0:
			is.Line = &line
		}
	}
	is.Description = v.str(obj, "description", path+".description")
	is.Suggestion = v.str(obj, "suggestion", path+".suggestion")
	return is
}

func (v *validator) str(obj map[string]any, key, path string) string {
	raw, present := obj[key]
	if !present {
		v.addf(path, "required field is missing")
		return ""
	}
	s, ok := raw.(string)
	if !ok {
		v.addf(path, "expected string, got %s", kind(raw))
		return ""
	}
	return s
}

func (v *validator) boolean(obj map[string]any, key, path string) bool {
	raw, present := obj[key]
	if !present {
		v.addf(path, "required field is missing")
		return false
	}
	b, ok := raw.(bool)
	if !ok {
		v.addf(path, "expected boolean, got %s", kind(raw))
		return false
	}
	return b
}

// integer reads an integral JSON number. Optional fields may be absent or
// null; ok is false in that case and whenever a problem was recorded.
func (v *validator) integer(obj map[string]any, key, path string, required bool) (int, bool) {
	raw, present := obj[key]
	if !present || raw == nil {
		if required {
			v.addf(path, "required field is missing")
		}
		return 0, false
	}
	num, ok := raw.(json.Number)
	if !ok {
		v.addf(path, "expected integer, got %s", kind(raw))
		return 0, false
	}
	if n, err := strconv.Atoi(num.String()); err == nil {
		return n, true
	}
	f, err := num.Float64()
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		v.addf(path, "expected integer, got %s", num.String())
		return 0, false
	}
	return int(f), true
}

func (v *validator) array(obj map[string]any, key, path string) ([]any, bool) {
	raw, present := obj[key]
	if !present {
		v.addf(path, "required field is missing")
		return nil, false
	}
	items, ok := raw.([]any)
	if !ok {
		v.addf(path, "expected array, got %s", kind(raw))
		return nil, false
	}
	return items, true
}

func hasString(obj map[string]any, key string) bool {
	_, ok := obj[key].(string)
	return ok
}

func kind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case json.Number:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
