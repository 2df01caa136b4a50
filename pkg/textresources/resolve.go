package textresources

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-formlayout/pkg/expr"
	"github.com/goliatone/go-formlayout/pkg/formdata"
)

// Context supplies the values variables and templates can read.
type Context struct {
	DataModel           formdata.DataModel
	Instance            expr.Instance
	ApplicationSettings map[string]any
	// DataContext is the indexed row path of the node the text belongs to,
	// used to transpose data model variables into the current row.
	DataContext string
}

// Resolver resolves keys against a resource table.
type Resolver struct {
	resources *Resources
	sanitize  bool

	mu        sync.RWMutex
	set       *pongo2.TemplateSet
	templates map[string]*pongo2.Template
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithoutSanitizing returns raw template output. Only use it for text that
// never reaches markup.
func WithoutSanitizing() ResolverOption {
	return func(r *Resolver) { r.sanitize = false }
}

// NewResolver wraps a resource table.
func NewResolver(resources *Resources, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		resources: resources,
		sanitize:  true,
		set:       pongo2.NewSet("textresources", pongo2.MustNewLocalFileSystemLoader("")),
		templates: make(map[string]*pongo2.Template),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Language returns the language of the wrapped resources.
func (r *Resolver) Language() string {
	if r == nil || r.resources == nil {
		return ""
	}
	return r.resources.Language
}

// Resolve returns the display string for key. Unknown keys resolve to the
// key itself so missing translations stay visible.
func (r *Resolver) Resolve(key string, ctx Context) string {
	out, err := r.ResolveErr(key, ctx)
	if err != nil {
		return key
	}
	return out
}

// ResolveErr is Resolve with template errors reported.
func (r *Resolver) ResolveErr(key string, ctx Context) (string, error) {
	res, ok := r.resources.Get(key)
	if !ok {
		return key, nil
	}

	value := substituteVariables(res.Value, res.Variables, ctx)
	if isTemplate(value) {
		rendered, err := r.render(value, ctx)
		if err != nil {
			return "", fmt.Errorf("textresources: render %q: %w", key, err)
		}
		value = rendered
	}
	if r.sanitize {
		value = Sanitize(value)
	}
	return value, nil
}

// TextFunc adapts the resolver to the lookup function expressions use.
func (r *Resolver) TextFunc(ctx Context) func(string) string {
	return func(key string) string { return r.Resolve(key, ctx) }
}

func substituteVariables(value string, vars []Variable, ctx Context) string {
	if len(vars) == 0 {
		return value
	}
	var pairs []string
	for i, v := range vars {
		pairs = append(pairs, "{"+strconv.Itoa(i)+"}", variableValue(v, ctx))
	}
	return strings.NewReplacer(pairs...).Replace(value)
}

// variableValue falls back to the variable key when the source has no value.
func variableValue(v Variable, ctx Context) string {
	var raw any
	switch {
	case strings.HasPrefix(v.DataSource, "dataModel"):
		raw, _ = ctx.DataModel.Get(expr.Transpose(v.Key, ctx.DataContext))
	case v.DataSource == "instanceContext":
		raw = ctx.Instance.Get(v.Key)
	case v.DataSource == "applicationSettings":
		if ctx.ApplicationSettings != nil {
			raw = ctx.ApplicationSettings[v.Key]
		}
	}
	if raw == nil {
		return v.Key
	}
	switch typed := raw.(type) {
	case string:
		return typed
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	default:
		return fmt.Sprint(typed)
	}
}

func isTemplate(value string) bool {
	return strings.Contains(value, "{{") || strings.Contains(value, "{%")
}

func (r *Resolver) render(source string, ctx Context) (string, error) {
	tpl, err := r.template(source)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tpl.ExecuteWriter(templateContext(ctx, r.Language()), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (r *Resolver) template(source string) (*pongo2.Template, error) {
	r.mu.RLock()
	tpl, ok := r.templates[source]
	r.mu.RUnlock()
	if ok {
		return tpl, nil
	}

	tpl, err := r.set.FromString(source)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.templates[source] = tpl
	r.mu.Unlock()
	return tpl, nil
}

func templateContext(ctx Context, language string) pongo2.Context {
	data := make(map[string]any, len(ctx.DataModel))
	for k, v := range ctx.DataModel {
		data[k] = v
	}
	return pongo2.Context{
		"data":     data,
		"row":      ctx.DataContext,
		"instance": ctx.Instance,
		"settings": ctx.ApplicationSettings,
		"language": language,
		"field": func(path string) any {
			v, _ := ctx.DataModel.Get(expr.Transpose(path, ctx.DataContext))
			return v
		},
	}
}
