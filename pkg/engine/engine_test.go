package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formlayout/internal/logonce"
	"github.com/goliatone/go-formlayout/pkg/formdata"
	"github.com/goliatone/go-formlayout/pkg/layout"
	"github.com/goliatone/go-formlayout/pkg/state"
	"github.com/goliatone/go-formlayout/pkg/textresources"
	"github.com/goliatone/go-formlayout/pkg/validation"
)

func engineSet(t *testing.T) *layout.Set {
	t.Helper()
	set, err := layout.NewSet([]layout.Page{
		{Name: "Form", Components: []layout.Component{
			{ID: "name", Type: "Input", Required: true, DataModelBindings: map[string]string{"simpleBinding": "Name"}},
			{
				ID:                "people",
				Type:              layout.TypeGroup,
				MaxCount:          3,
				DataModelBindings: map[string]string{"group": "People"},
				Children:          []string{"age"},
			},
			{ID: "age", Type: "Input", DataModelBindings: map[string]string{"simpleBinding": "People.age"}},
		}},
		{
			Name:   "Extra",
			Hidden: []any{"equals", []any{"dataModel", "Skip"}, true},
			Components: []layout.Component{
				{ID: "extra", Type: "Input", Required: true, DataModelBindings: map[string]string{"simpleBinding": "Extra"}},
			},
		},
		{Name: "Summary", Components: []layout.Component{{ID: "header", Type: "Header"}}},
	}, []string{"Form", "Extra", "Summary"})
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}
	return set
}

func newEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	data := formdata.DataModel{"Skip": true, "People[0].age": 30.0}
	e, err := New(engineSet(t), append([]Option{WithDataModel(data)}, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func TestNewRequiresLayouts(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrNoLayouts) {
		t.Fatalf("expected ErrNoLayouts, got %v", err)
	}
}

func TestNewDerivesGroupStateFromData(t *testing.T) {
	e := newEngine(t)
	st := e.Store().Snapshot().RepeatingGroups["people"]
	if st.Index != 0 || st.EditIndex != -1 {
		t.Fatalf("people state = %+v", st)
	}
	page, err := e.Page("Form")
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	if page.FindByID("age-0") == nil {
		t.Fatalf("expected age-0 to be resolved")
	}
	if _, err := e.Page("Nope"); !errors.Is(err, layout.ErrPageNotFound) {
		t.Fatalf("expected ErrPageNotFound, got %v", err)
	}
}

func TestValidateMergesAndClears(t *testing.T) {
	ctx := context.Background()
	resources := textresources.New("en",
		textresources.Resource{ID: validation.RequiredTextKey, Value: "Please fill in"},
	)
	e := newEngine(t, WithTextResources(resources))

	if _, err := e.Validate(ctx); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	want := validation.Validations{
		"Form": {"name": {"simpleBinding": {validation.SeverityErrors: {"Please fill in"}}}},
	}
	if diff := cmp.Diff(want, e.Store().Snapshot().Validations); diff != "" {
		t.Fatalf("validations mismatch (-want +got):\n%s", diff)
	}

	if err := e.SetValue(ctx, "Name", "Ada"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if _, err := e.Validate(ctx); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got := e.Store().Snapshot().Validations; len(got) != 0 {
		t.Fatalf("expected validations to clear, got %v", got)
	}
}

func TestValidateIncludesPagesThatBecomeVisible(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	if err := e.SetValue(ctx, "Name", "Ada"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if err := e.SetValue(ctx, "Skip", nil); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	res, err := e.Validate(ctx)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !res.Validations.HasErrors("Extra") {
		t.Fatalf("expected errors on Extra, got %v", res.Validations)
	}
}

func TestNextPageSkipsHiddenPages(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	next, ok := e.NextPage("Form", false)
	if !ok || next != "Summary" {
		t.Fatalf("NextPage = %q, %v; want Summary", next, ok)
	}
	prev, ok := e.NextPage("Summary", true)
	if !ok || prev != "Form" {
		t.Fatalf("previous = %q, %v; want Form", prev, ok)
	}
	if _, ok := e.NextPage("Summary", false); ok {
		t.Fatalf("expected no page after Summary")
	}

	if err := e.SetValue(ctx, "Skip", false); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if next, _ := e.NextPage("Form", false); next != "Extra" {
		t.Fatalf("NextPage = %q; want Extra", next)
	}
}

func TestRowsShareTheEngineStore(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	row, err := e.Rows().AddRow(ctx, "people")
	if err != nil {
		t.Fatalf("AddRow: %v", err)
	}
	if row != 1 {
		t.Fatalf("AddRow = %d; want 1", row)
	}
	if err := e.SetValue(ctx, "People[1].age", 40.0); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if st := e.Store().Snapshot().RepeatingGroups["people"]; st.EditIndex != 1 {
		t.Fatalf("SetValue reset group state: %+v", st)
	}
	if err := e.Rows().DeleteRow(ctx, "Form", "people", 0); err != nil {
		t.Fatalf("DeleteRow: %v", err)
	}

	want := formdata.DataModel{"Skip": true, "People[0].age": 40.0}
	if diff := cmp.Diff(want, e.Store().Snapshot().DataModel); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyBackendIssuesReportsFixedMessages(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, WithLogger(logonce.Discard()))

	_, dropped, err := e.ApplyBackendIssues(ctx, []validation.BackendIssue{
		{Code: "taken", Description: "Taken", Field: "Name", Severity: validation.BackendError},
		{Code: "orphan", Description: "no field or target", Severity: validation.BackendError},
	})
	if err != nil {
		t.Fatalf("ApplyBackendIssues: %v", err)
	}
	if len(dropped) != 1 || dropped[0].Issue.Code != "orphan" {
		t.Fatalf("dropped = %+v", dropped)
	}
	if !e.Store().Snapshot().Validations.HasErrors("Form") {
		t.Fatalf("expected backend error on Form")
	}

	fixed, _, err := e.ApplyBackendIssues(ctx, []validation.BackendIssue{
		{Code: "old", Description: "Old", Field: "People[0].age", Severity: validation.BackendWarning},
	})
	if err != nil {
		t.Fatalf("ApplyBackendIssues: %v", err)
	}
	wantFixed := []validation.Object{
		validation.Message("Form", "name", "simpleBinding", validation.SeverityFixed, "Taken"),
	}
	if diff := cmp.Diff(wantFixed, fixed); diff != "" {
		t.Fatalf("fixed mismatch (-want +got):\n%s", diff)
	}
	want := validation.Validations{
		"Form": {"age-0": {"simpleBinding": {validation.SeverityWarnings: {"Old"}}}},
	}
	if diff := cmp.Diff(want, e.Store().Snapshot().Validations); diff != "" {
		t.Fatalf("validations mismatch (-want +got):\n%s", diff)
	}
}

func TestCleanBackendRunClearsEarlierIssues(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, WithLogger(logonce.Discard()))

	err := e.Store().Update(func(s *state.State) error {
		s.Validations["Summary"] = validation.LayoutValidations{
			"header": {"simpleBinding": {validation.SeverityInfo: {"Check totals"}}},
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if _, _, err := e.ApplyBackendIssues(ctx, []validation.BackendIssue{
		{Code: "taken", Description: "Taken", Field: "Name", Severity: validation.BackendError},
	}); err != nil {
		t.Fatalf("ApplyBackendIssues: %v", err)
	}

	fixed, dropped, err := e.ApplyBackendIssues(ctx, nil)
	if err != nil {
		t.Fatalf("ApplyBackendIssues: %v", err)
	}
	if len(dropped) != 0 {
		t.Fatalf("dropped = %+v", dropped)
	}
	wantFixed := []validation.Object{
		validation.Message("Form", "name", "simpleBinding", validation.SeverityFixed, "Taken"),
	}
	if diff := cmp.Diff(wantFixed, fixed); diff != "" {
		t.Fatalf("fixed mismatch (-want +got):\n%s", diff)
	}
	want := validation.Validations{
		"Summary": {"header": {"simpleBinding": {validation.SeverityInfo: {"Check totals"}}}},
	}
	if diff := cmp.Diff(want, e.Store().Snapshot().Validations); diff != "" {
		t.Fatalf("validations mismatch (-want +got):\n%s", diff)
	}
}

func TestTextUsesRowContext(t *testing.T) {
	resources := textresources.New("en", textresources.Resource{
		ID:        "age.label",
		Value:     "Age {0}",
		Variables: []textresources.Variable{{Key: "People.age", DataSource: "dataModel.default"}},
	})
	e := newEngine(t, WithTextResources(resources))

	if got := e.Text("age.label", "People[0]"); got != "Age 30" {
		t.Fatalf("Text = %q; want %q", got, "Age 30")
	}
	if got := e.Text("missing", ""); got != "missing" {
		t.Fatalf("Text = %q; want key", got)
	}
	if got := e.Language(); got != "en" {
		t.Fatalf("Language = %q", got)
	}
}

func TestLoadConfig(t *testing.T) {
	yamlDoc := []byte(`
layouts: layouts
data: data.json
language: en
validations:
  People.age:
    - message: too young
      condition: ["lessThan", ["argv", 0], 18]
log:
  level: debug
`)
	cfg, err := LoadConfig(yamlDoc)
	if err != nil {
		t.Fatalf("LoadConfig yaml: %v", err)
	}
	if cfg.Layouts != "layouts" || cfg.Language != "en" || cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if rules := cfg.Validations["People.age"]; len(rules) != 1 || rules[0].Message != "too young" {
		t.Fatalf("validations = %+v", cfg.Validations)
	}

	jsonCfg, err := LoadConfig([]byte(`{"layouts": "pages", "concurrency": 2}`))
	if err != nil {
		t.Fatalf("LoadConfig json: %v", err)
	}
	if jsonCfg.Layouts != "pages" || jsonCfg.Concurrency != 2 || jsonCfg.Log.Level != "info" {
		t.Fatalf("unexpected config: %+v", jsonCfg)
	}

	if _, err := LoadConfig([]byte("layouts: [unterminated")); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestOpenLoadsInputsRelativeToConfig(t *testing.T) {
	dir := t.TempDir()
	write := func(rel, body string) {
		t.Helper()
		p := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
	write("layouts/Form.yaml", `
data:
  layout:
    - id: people
      type: Group
      maxCount: 4
      dataModelBindings:
        group: People
      children: [age]
    - id: age
      type: Input
      dataModelBindings:
        simpleBinding: People.age
`)
	write("data.json", `{"People": [{"age": 12}, {"age": 40}]}`)
	write("texts/resource.en.yaml", `
resources:
  - id: age.young
    value: Too young
`)
	write("formlayout.yaml", `
layouts: layouts
data: data.json
textResources: texts
language: en
validations:
  People.age:
    - message: age.young
      condition: ["lessThan", ["argv", 0], 18]
`)

	cfg, err := LoadConfigFile(filepath.Join(dir, "formlayout.yaml"))
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	ctx := context.Background()
	e, err := Open(ctx, cfg, WithLogger(logonce.Discard()))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if st := e.Store().Snapshot().RepeatingGroups["people"]; st.Index != 1 {
		t.Fatalf("people index = %d; want 1", st.Index)
	}

	res, err := e.Validate(ctx)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	want := validation.Validations{
		"Form": {
			"age-0": {"simpleBinding": {validation.SeverityErrors: {"Too young"}}},
		},
	}
	if diff := cmp.Diff(want, e.Store().Snapshot().Validations); diff != "" {
		t.Fatalf("validations mismatch (-want +got):\n%s", diff)
	}
	if res.Validations.Count(validation.SeverityErrors) != 1 {
		t.Fatalf("result errors = %d", res.Validations.Count(validation.SeverityErrors))
	}
}

func TestOpenRequiresLayouts(t *testing.T) {
	if _, err := Open(context.Background(), Config{}); !errors.Is(err, ErrNoLayouts) {
		t.Fatalf("expected ErrNoLayouts, got %v", err)
	}
}
