package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formlayout/internal/prompt"
	"github.com/goliatone/go-formlayout/pkg/formdata"
)

const formLayout = `{
  "data": {
    "layout": [
      {"id": "name", "type": "Input", "required": true, "dataModelBindings": {"simpleBinding": "Name"}},
      {"id": "people", "type": "Group", "maxCount": 4, "dataModelBindings": {"group": "People"}, "children": ["age"]},
      {"id": "age", "type": "Input", "dataModelBindings": {"simpleBinding": "People.age"}}
    ]
  }
}`

func writeFixture(t *testing.T, data string) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"layouts/Form.json": formLayout,
		"data.json":         data,
		"formlayout.yaml":   "layouts: layouts\ndata: data.json\n",
	}
	for rel, body := range files {
		p := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
	return dir
}

func run(t *testing.T, driver prompt.Driver, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(driver)
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestNewRootCmd_RegistersSubcommands(t *testing.T) {
	root := NewRootCmd(nil)
	want := map[string]bool{"tree": false, "rows": false, "validate": false, "inspect": false}
	for _, sub := range root.Commands() {
		if _, ok := want[sub.Name()]; ok {
			want[sub.Name()] = true
		}
		if sub.RunE == nil {
			t.Errorf("command %q has nil RunE", sub.Name())
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("expected %q subcommand registered on root command", name)
		}
	}
}

func TestTreePrintsRowsAndBindings(t *testing.T) {
	dir := writeFixture(t, `{"Name": "Ada", "People": [{"age": 1}, {"age": 2}]}`)
	out, err := run(t, nil, "tree", "--config", filepath.Join(dir, "formlayout.yaml"))
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	for _, line := range []string{
		"Form\n",
		"  name (Input) -> Name [required]\n",
		"  people (Group) -> People\n",
		"    [1]\n",
		"      age-1 (Input) -> People[1].age\n",
	} {
		if !strings.Contains(out, line) {
			t.Errorf("output missing %q:\n%s", line, out)
		}
	}

	if _, err := run(t, nil, "tree", "Missing", "--config", filepath.Join(dir, "formlayout.yaml")); err == nil {
		t.Fatalf("expected error for unknown page")
	}
}

func TestValidateFailsOnErrors(t *testing.T) {
	dir := writeFixture(t, `{"People": [{"age": 1}]}`)
	out, err := run(t, nil, "validate", "--config", filepath.Join(dir, "formlayout.yaml"))
	if !errors.Is(err, errValidationFailed) {
		t.Fatalf("expected errValidationFailed, got %v", err)
	}
	if want := "Form/name simpleBinding errors: Field is required\n"; out != want {
		t.Fatalf("output = %q; want %q", out, want)
	}
}

func TestValidateMergesBackendIssues(t *testing.T) {
	dir := writeFixture(t, `{"Name": "Ada", "People": [{"age": 1}]}`)
	issues := filepath.Join(dir, "issues.json")
	body := `[{"code": "young", "description": "Too young", "field": "People[0].age", "severity": 2}]`
	if err := os.WriteFile(issues, []byte(body), 0o644); err != nil {
		t.Fatalf("write issues: %v", err)
	}

	out, err := run(t, nil, "validate", "--json", "--backend", issues, "--config", filepath.Join(dir, "formlayout.yaml"))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	var got validateOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if msgs := got.Validations.Messages("Form", "age-0", "warnings"); len(msgs) != 1 || msgs[0] != "Too young" {
		t.Fatalf("validations = %+v", got.Validations)
	}
}

func TestRowsDeleteShiftsData(t *testing.T) {
	dir := writeFixture(t, `{"Name": "Ada", "People": [{"age": 1}, {"age": 2}]}`)
	layouts := filepath.Join(dir, "layouts")
	data := filepath.Join(dir, "data.json")

	out, err := run(t, nil, "rows", "people", "--delete", "0", "--layouts", layouts, "--data", data)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	var got rowsOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	want := rowsOutput{
		Group:          "people",
		Page:           "Form",
		Binding:        "People",
		Index:          0,
		EditIndex:      -1,
		MultiPageIndex: -1,
		VisibleRows:    []int{0},
		Data:           formdata.DataModel{"People[0].age": 2.0},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}

	if _, err := run(t, nil, "rows", "nope", "--layouts", layouts); err == nil {
		t.Fatalf("expected error for unknown group")
	}
}

type scriptedDriver struct {
	selects  []int
	confirms []bool
	prompts  []string
}

func (d *scriptedDriver) Select(_ context.Context, cfg prompt.SelectConfig) (int, error) {
	d.prompts = append(d.prompts, cfg.Message)
	if len(d.selects) == 0 {
		return 0, prompt.ErrAborted
	}
	next := d.selects[0]
	d.selects = d.selects[1:]
	return next, nil
}

func (d *scriptedDriver) Confirm(_ context.Context, cfg prompt.ConfirmConfig) (bool, error) {
	d.prompts = append(d.prompts, cfg.Message)
	if len(d.confirms) == 0 {
		return false, nil
	}
	next := d.confirms[0]
	d.confirms = d.confirms[1:]
	return next, nil
}

func TestInspectDescribesSelectedNode(t *testing.T) {
	dir := writeFixture(t, `{"People": [{"age": 7}]}`)
	driver := &scriptedDriver{selects: []int{0, 0}, confirms: []bool{false}}

	out, err := run(t, driver, "inspect", "--config", filepath.Join(dir, "formlayout.yaml"))
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	for _, line := range []string{
		"id:        name\n",
		"type:      Input (form)\n",
		"required:  true\n",
		"binding:   simpleBinding = Name\n",
	} {
		if !strings.Contains(out, line) {
			t.Errorf("output missing %q:\n%s", line, out)
		}
	}
	wantPrompts := []string{"Page", "Component on Form", "Inspect another component?"}
	if diff := cmp.Diff(wantPrompts, driver.prompts); diff != "" {
		t.Fatalf("prompts mismatch (-want +got):\n%s", diff)
	}
}

func TestInspectListsGroupColumns(t *testing.T) {
	dir := writeFixture(t, `{"People": [{"age": 7}, {"age": 9}]}`)
	driver := &scriptedDriver{selects: []int{0, 1}, confirms: []bool{false}}

	out, err := run(t, driver, "inspect", "--config", filepath.Join(dir, "formlayout.yaml"))
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	for _, line := range []string{
		"id:        people\n",
		"visible rows: 2\n",
		"columns:   age\n",
	} {
		if !strings.Contains(out, line) {
			t.Errorf("output missing %q:\n%s", line, out)
		}
	}
}

func TestInspectAbortIsNotAnError(t *testing.T) {
	dir := writeFixture(t, `{}`)
	driver := &scriptedDriver{}
	if _, err := run(t, driver, "inspect", "--config", filepath.Join(dir, "formlayout.yaml")); err != nil {
		t.Fatalf("inspect: %v", err)
	}
}
