// Package textresources resolves text resource keys into display strings.
// Values may reference variables (`{0}`) bound to the data model, instance
// metadata or application settings, and may use pongo2 template syntax.
// Resolved output is sanitized before it leaves the package.
package textresources

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Variable binds a `{n}` placeholder to a data source. DataSource is one of
// `dataModel.<name>`, `instanceContext` or `applicationSettings`.
type Variable struct {
	Key        string `json:"key" yaml:"key"`
	DataSource string `json:"dataSource" yaml:"dataSource"`
}

// Resource is one text resource entry.
type Resource struct {
	ID        string     `json:"id" yaml:"id"`
	Value     string     `json:"value" yaml:"value"`
	Variables []Variable `json:"variables,omitempty" yaml:"variables,omitempty"`
}

// Resources holds the text resources of one language.
type Resources struct {
	Language string
	items    map[string]Resource
}

// ErrLanguageNotFound is returned by LoadFS when no file exists for the
// requested language.
var ErrLanguageNotFound = errors.New("textresources: language not found")

type resourceFile struct {
	Language  string     `json:"language" yaml:"language"`
	Resources []Resource `json:"resources" yaml:"resources"`
}

// New builds a resource table from entries. Later duplicates win.
func New(language string, entries ...Resource) *Resources {
	r := &Resources{Language: language, items: make(map[string]Resource, len(entries))}
	for _, e := range entries {
		r.items[e.ID] = e
	}
	return r
}

// Parse decodes a resource document. JSON is tried first, YAML second.
func Parse(data []byte) (*Resources, error) {
	var doc resourceFile
	if err := json.Unmarshal(data, &doc); err != nil {
		if yerr := yaml.Unmarshal(data, &doc); yerr != nil {
			return nil, fmt.Errorf("textresources: decode: %w", errors.Join(err, yerr))
		}
	}
	for i, res := range doc.Resources {
		if strings.TrimSpace(res.ID) == "" {
			return nil, fmt.Errorf("textresources: resource %d has no id", i)
		}
	}
	return New(doc.Language, doc.Resources...), nil
}

// LoadFS reads `resource.<language>.{json,yaml,yml}` from fsys.
func LoadFS(fsys fs.FS, language string) (*Resources, error) {
	for _, ext := range []string{".json", ".yaml", ".yml"} {
		name := "resource." + language + ext
		data, err := fs.ReadFile(fsys, name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("textresources: read %s: %w", name, err)
		}
		res, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("textresources: %s: %w", path.Base(name), err)
		}
		if res.Language == "" {
			res.Language = language
		}
		return res, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrLanguageNotFound, language)
}

// Get returns the raw entry for key.
func (r *Resources) Get(key string) (Resource, bool) {
	if r == nil {
		return Resource{}, false
	}
	res, ok := r.items[key]
	return res, ok
}

// Keys lists every resource id in sorted order.
func (r *Resources) Keys() []string {
	if r == nil {
		return nil
	}
	keys := make([]string, 0, len(r.items))
	for k := range r.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
