package lint

// Attributable drops findings that carry no rule id. The input is not
// modified.
func Attributable(findings []Finding) []Finding {
	out := make([]Finding, 0, len(findings))
	for _, f := range findings {
		if f.RuleID != "" {
			out = append(out, f)
		}
	}
	return out
}

type dedupeKey struct {
	ruleID  string
	line    int
	column  int
	message string
}

// Dedupe keeps the first finding for each (rule, line, column, message)
// and preserves input order.
func Dedupe(findings []Finding) []Finding {
	seen := make(map[dedupeKey]struct{}, len(findings))
	out := make([]Finding, 0, len(findings))
	for _, f := range findings {
		k := dedupeKey{f.RuleID, f.Line, f.Column, f.Message}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, f)
	}
	return out
}

// Normalize prepares findings for display: unattributable findings are
// dropped, then duplicates removed. Normalize(Normalize(x)) == Normalize(x).
func Normalize(findings []Finding) []Finding {
	return Dedupe(Attributable(findings))
}
