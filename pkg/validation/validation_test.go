package validation

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBuildResultGroupsObjects(t *testing.T) {
	res := BuildResult([]Object{
		Message("page", "name", "simpleBinding", SeverityErrors, "required"),
		Message("page", "name", "simpleBinding", SeverityWarnings, "short"),
		Message("page", "name", "simpleBinding", SeverityFixed, "old"),
		EmptyValidation("page", "age"),
		{PageKey: "page", ComponentID: "age", BindingKey: "simpleBinding", Severity: SeverityErrors, Message: "type", InvalidDataTypes: true},
		EmptyValidation("other", "ok"),
	})

	want := Validations{
		"page": {
			"name": {"simpleBinding": {SeverityErrors: {"required"}, SeverityWarnings: {"short"}}},
			"age":  {"simpleBinding": {SeverityErrors: {"type"}}},
		},
		"other": {"ok": {}},
	}
	if diff := cmp.Diff(want, res.Validations); diff != "" {
		t.Fatalf("validations mismatch (-want +got):\n%s", diff)
	}
	if !res.InvalidDataTypes {
		t.Fatalf("expected invalid data types flag")
	}
	if len(res.Fixed) != 1 || res.Fixed[0].Message != "old" {
		t.Fatalf("fixed = %+v", res.Fixed)
	}
}

func TestMergeEmptyValidationClearsStaleErrors(t *testing.T) {
	existing := Validations{
		"page": {
			"X": {"simpleBinding": {SeverityErrors: {"stale"}}},
			"Y": {"simpleBinding": {SeverityErrors: {"keep"}}},
		},
	}
	incoming := BuildResult([]Object{EmptyValidation("page", "X")})

	got := Merge(existing, incoming, true)
	want := Validations{"page": {"Y": {"simpleBinding": {SeverityErrors: {"keep"}}}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("merge mismatch (-want +got):\n%s", diff)
	}
	if !existing.HasValidationMessages("page", "X") {
		t.Fatalf("Merge must not modify existing")
	}
}

func TestMergeEmptyBindingClearsOnlyThatBinding(t *testing.T) {
	existing := Validations{
		"page": {"X": {
			"simpleBinding": {SeverityErrors: {"a"}},
			"label":         {SeverityErrors: {"b"}},
		}},
	}
	clear := EmptyValidation("page", "X")
	clear.BindingKey = "simpleBinding"

	got := Merge(existing, BuildResult([]Object{clear}), true)
	want := Validations{"page": {"X": {"label": {SeverityErrors: {"b"}}}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("merge mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeSupersedesPerBinding(t *testing.T) {
	existing := Validations{
		"page": {"X": {"simpleBinding": {SeverityErrors: {"old"}, SeverityInfo: {"hint"}}}},
		"next": {"Z": {"simpleBinding": {SeverityErrors: {"other page"}}}},
	}
	incoming := BuildResult([]Object{Message("page", "X", "simpleBinding", SeverityErrors, "new")})

	merged := Merge(existing, incoming, true)
	want := Validations{
		"page": {"X": {"simpleBinding": {SeverityErrors: {"new"}}}},
		"next": {"Z": {"simpleBinding": {SeverityErrors: {"other page"}}}},
	}
	if diff := cmp.Diff(want, merged); diff != "" {
		t.Fatalf("merge mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeWithoutMergeReplacesPages(t *testing.T) {
	existing := Validations{
		"page": {
			"X": {"simpleBinding": {SeverityErrors: {"x"}}},
			"Y": {"simpleBinding": {SeverityErrors: {"y"}}},
		},
		"next": {"Z": {"simpleBinding": {SeverityErrors: {"z"}}}},
	}
	incoming := BuildResult([]Object{Message("page", "X", "simpleBinding", SeverityWarnings, "w")})

	got := Merge(existing, incoming, false)
	want := Validations{
		"page": {"X": {"simpleBinding": {SeverityWarnings: {"w"}}}},
		"next": {"Z": {"simpleBinding": {SeverityErrors: {"z"}}}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("merge mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeFixedRemovesCounterpart(t *testing.T) {
	existing := Validations{
		"page": {"X": {"simpleBinding": {SeverityErrors: {"broken", "other"}}}},
	}
	incoming := BuildResult([]Object{Message("page", "X", "simpleBinding", SeverityFixed, "broken")})

	got := Merge(existing, incoming, true)
	want := Validations{"page": {"X": {"simpleBinding": {SeverityErrors: {"other"}}}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("merge mismatch (-want +got):\n%s", diff)
	}
}

func TestDiffFixed(t *testing.T) {
	before := Validations{
		"page": {
			"X": {"simpleBinding": {SeverityErrors: {"gone", "stays"}}},
			"Y": {"simpleBinding": {SeverityWarnings: {"warn"}, SeverityInfo: {"info"}}},
		},
	}
	after := Validations{
		"page": {"X": {"simpleBinding": {SeverityErrors: {"stays"}}}},
	}

	want := []Object{
		Message("page", "X", "simpleBinding", SeverityFixed, "gone"),
		Message("page", "Y", "simpleBinding", SeverityFixed, "warn"),
	}
	if diff := cmp.Diff(want, DiffFixed(before, after)); diff != "" {
		t.Fatalf("fixed mismatch (-want +got):\n%s", diff)
	}
}

func TestShiftRows(t *testing.T) {
	v := Validations{
		"page": {
			"field-0":     {"simpleBinding": {SeverityErrors: {"row 0"}}},
			"field-1":     {"simpleBinding": {SeverityErrors: {"row 1"}}},
			"field-2":     {"simpleBinding": {SeverityErrors: {"row 2"}}},
			"comment-2-0": {"simpleBinding": {SeverityErrors: {"nested"}}},
			"title":       {"simpleBinding": {SeverityInfo: {"unrelated"}}},
		},
		"other": {"field-1": {"simpleBinding": {SeverityErrors: {"other page"}}}},
	}
	descendants := map[string]struct{}{"field": {}, "comment": {}}

	got := ShiftRows(v, "page", descendants, nil, 1)
	want := Validations{
		"page": {
			"field-0":     {"simpleBinding": {SeverityErrors: {"row 0"}}},
			"field-1":     {"simpleBinding": {SeverityErrors: {"row 2"}}},
			"comment-1-0": {"simpleBinding": {SeverityErrors: {"nested"}}},
			"title":       {"simpleBinding": {SeverityInfo: {"unrelated"}}},
		},
		"other": {"field-1": {"simpleBinding": {SeverityErrors: {"other page"}}}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("shift mismatch (-want +got):\n%s", diff)
	}
}

func TestValidationsQueries(t *testing.T) {
	v := Validations{
		"page": {
			"X": {
				"b": {SeverityErrors: {"e2"}},
				"a": {SeverityErrors: {"e1"}, SeverityWarnings: {"w"}},
			},
			"Y": {"a": {SeverityErrors: {}}},
		},
	}
	if !v.HasValidationMessages("page", "X") || v.HasValidationMessages("page", "Y") {
		t.Fatalf("HasValidationMessages mismatch")
	}
	if diff := cmp.Diff([]string{"e1", "e2"}, v.Messages("page", "X", SeverityErrors)); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}
	if got := v.Count(SeverityErrors); got != 2 {
		t.Fatalf("Count = %d, want 2", got)
	}
	if !v.HasErrors("page") || v.HasErrors("missing") {
		t.Fatalf("HasErrors mismatch")
	}
}
