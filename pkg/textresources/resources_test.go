package textresources

import (
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formlayout/pkg/expr"
	"github.com/goliatone/go-formlayout/pkg/formdata"
)

func TestParseJSONAndYAML(t *testing.T) {
	jsonDoc := []byte(`{"language":"en","resources":[{"id":"title","value":"Hello"}]}`)
	yamlDoc := []byte("language: en\nresources:\n  - id: title\n    value: Hello\n")

	for name, doc := range map[string][]byte{"json": jsonDoc, "yaml": yamlDoc} {
		res, err := Parse(doc)
		if err != nil {
			t.Fatalf("%s: Parse: %v", name, err)
		}
		if res.Language != "en" {
			t.Fatalf("%s: language = %q, want en", name, res.Language)
		}
		got, ok := res.Get("title")
		if !ok || got.Value != "Hello" {
			t.Fatalf("%s: Get(title) = %+v, %v", name, got, ok)
		}
	}
}

func TestParseRejectsMissingID(t *testing.T) {
	_, err := Parse([]byte(`{"resources":[{"value":"x"}]}`))
	if err == nil || !strings.Contains(err.Error(), "has no id") {
		t.Fatalf("expected missing id error, got %v", err)
	}
}

func TestLoadFS(t *testing.T) {
	fsys := fstest.MapFS{
		"resource.nb.yaml": {Data: []byte("resources:\n  - id: a\n    value: A\n  - id: b\n    value: B\n")},
	}
	res, err := LoadFS(fsys, "nb")
	if err != nil {
		t.Fatalf("LoadFS: %v", err)
	}
	if res.Language != "nb" {
		t.Fatalf("language = %q, want nb", res.Language)
	}
	if diff := cmp.Diff([]string{"a", "b"}, res.Keys()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}

	if _, err := LoadFS(fsys, "en"); !errors.Is(err, ErrLanguageNotFound) {
		t.Fatalf("expected ErrLanguageNotFound, got %v", err)
	}
}

func TestResolveVariables(t *testing.T) {
	res := New("nb",
		Resource{
			ID:    "greeting",
			Value: "Hei {0}, du søker for {1} ({2})",
			Variables: []Variable{
				{Key: "Person.name", DataSource: "dataModel.default"},
				{Key: "appId", DataSource: "instanceContext"},
				{Key: "homeTown", DataSource: "applicationSettings"},
			},
		},
		Resource{
			ID:        "row",
			Value:     "Rad: {0}",
			Variables: []Variable{{Key: "Group.name", DataSource: "dataModel.default"}},
		},
		Resource{
			ID:        "missing",
			Value:     "Verdi: {0}",
			Variables: []Variable{{Key: "Nothing.here", DataSource: "dataModel.default"}},
		},
	)
	r := NewResolver(res)
	ctx := Context{
		DataModel: formdata.DataModel{
			"Person.name":   "Kari",
			"Group[0].name": "first",
			"Group[1].name": "second",
		},
		Instance:            expr.Instance{AppID: "org/app"},
		ApplicationSettings: map[string]any{"homeTown": "Bergen"},
	}

	cases := []struct {
		key     string
		context string
		want    string
	}{
		{key: "greeting", want: "Hei Kari, du søker for org/app (Bergen)"},
		{key: "row", context: "Group[1]", want: "Rad: second"},
		{key: "missing", want: "Verdi: Nothing.here"},
		{key: "unknown.key", want: "unknown.key"},
	}
	for _, tc := range cases {
		c := ctx
		c.DataContext = tc.context
		if got := r.Resolve(tc.key, c); got != tc.want {
			t.Fatalf("Resolve(%q) = %q, want %q", tc.key, got, tc.want)
		}
	}
}

func TestResolveTemplate(t *testing.T) {
	res := New("en",
		Resource{ID: "tpl", Value: `{% if data.Count > 1 %}{{ data.Count }} rows{% else %}one row{% endif %}`},
		Resource{ID: "field", Value: `Name: {{ field("Group.name") }}`},
		Resource{ID: "broken", Value: `{% if %}`},
	)
	r := NewResolver(res)

	ctx := Context{DataModel: formdata.DataModel{"Count": 3, "Group[0].name": "Ola"}}
	if got := r.Resolve("tpl", ctx); got != "3 rows" {
		t.Fatalf("tpl = %q, want %q", got, "3 rows")
	}
	ctx.DataModel["Count"] = 1
	if got := r.Resolve("tpl", ctx); got != "one row" {
		t.Fatalf("tpl = %q, want %q", got, "one row")
	}

	ctx.DataContext = "Group[0]"
	if got := r.Resolve("field", ctx); got != "Name: Ola" {
		t.Fatalf("field = %q, want %q", got, "Name: Ola")
	}

	if _, err := r.ResolveErr("broken", ctx); err == nil {
		t.Fatalf("expected template error")
	}
	if got := r.Resolve("broken", ctx); got != "broken" {
		t.Fatalf("broken template should fall back to key, got %q", got)
	}
}

func TestResolveSanitizes(t *testing.T) {
	res := New("en", Resource{ID: "html", Value: `<b>bold</b><script>alert(1)</script>`})

	if got := NewResolver(res).Resolve("html", Context{}); got != "<b>bold</b>" {
		t.Fatalf("sanitized = %q, want %q", got, "<b>bold</b>")
	}
	raw := NewResolver(res, WithoutSanitizing()).Resolve("html", Context{})
	if !strings.Contains(raw, "<script>") {
		t.Fatalf("expected raw output, got %q", raw)
	}
}

func TestTextFuncFeedsExpressions(t *testing.T) {
	r := NewResolver(New("en", Resource{ID: "label", Value: "Label"}))
	ctx := expr.Context{Text: r.TextFunc(Context{})}

	got, err := expr.EvaluateRaw([]any{"text", "label"}, ctx)
	if err != nil {
		t.Fatalf("EvaluateRaw: %v", err)
	}
	if got != "Label" {
		t.Fatalf("text = %v, want Label", got)
	}
}
