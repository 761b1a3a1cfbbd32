package lint

import (
	"reflect"
	"testing"
)

func TestNormalize_DropsAndDedupes(t *testing.T) {
	in := []Finding{
		{RuleID: "no-unused-vars", Line: 1, Column: 5, Message: "'x' is defined but never used."},
		{RuleID: "no-unused-vars", Line: 1, Column: 5, Message: "'x' is defined but never used."},
		{RuleID: "", Line: 3, Column: 1, Message: "Parsing error: Unexpected token"},
	}
	got := Normalize(in)
	want := []Finding{in[0]}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Normalize = %+v, want %+v", got, want)
	}
	if len(in) != 3 {
		t.Error("input must not be modified")
	}
}

func TestNormalize_KeepsFirstAndOrder(t *testing.T) {
	in := []Finding{
		{RuleID: "prefer-const", Line: 2, Column: 5, Message: "use const", Severity: SeverityError},
		{RuleID: "no-empty", Line: 4, Column: 1, Message: "Empty block statement."},
		{RuleID: "prefer-const", Line: 2, Column: 5, Message: "use const", Severity: SeverityWarning},
		{RuleID: "prefer-const", Line: 2, Column: 6, Message: "use const"},
	}
	got := Normalize(in)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].Severity != SeverityError {
		t.Error("first occurrence should win")
	}
	if got[1].RuleID != "no-empty" || got[2].Column != 6 {
		t.Errorf("order not preserved: %+v", got)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	in := []Finding{
		{RuleID: "a", Line: 1, Column: 1, Message: "m"},
		{RuleID: "a", Line: 1, Column: 1, Message: "m"},
		{Line: 2},
		{RuleID: "b", Line: 1, Column: 1, Message: "m"},
	}
	once := Normalize(in)
	twice := Normalize(once)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("Normalize not idempotent: %+v vs %+v", once, twice)
	}
}

func TestNormalize_Empty(t *testing.T) {
	if got := Normalize(nil); got == nil || len(got) != 0 {
		t.Errorf("Normalize(nil) = %#v, want empty slice", got)
	}
}

func TestAttributable(t *testing.T) {
	got := Attributable([]Finding{{RuleID: "x"}, {}, {RuleID: "y"}})
	if len(got) != 2 || got[0].RuleID != "x" || got[1].RuleID != "y" {
		t.Errorf("Attributable = %+v", got)
	}
}
