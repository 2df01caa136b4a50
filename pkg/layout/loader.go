package layout

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

// Set is every page loaded for one layout set, plus the page order.
type Set struct {
	pages map[string]Page
	order []string
}

// ErrPageNotFound is returned when a page name is not part of the set.
var ErrPageNotFound = errors.New("layout: page not found")

// NewSet builds a set from in-memory pages. When order is empty pages are
// ordered by name.
func NewSet(pages []Page, order []string) (*Set, error) {
	set := &Set{pages: make(map[string]Page, len(pages))}
	for _, page := range pages {
		name := strings.TrimSpace(page.Name)
		if name == "" {
			return nil, errors.New("layout: page name is required")
		}
		if _, exists := set.pages[name]; exists {
			return nil, fmt.Errorf("layout: duplicate page %q", name)
		}
		if err := validatePage(page); err != nil {
			return nil, err
		}
		set.pages[name] = page
	}
	if err := set.setOrder(order); err != nil {
		return nil, err
	}
	return set, nil
}

// LoadFS walks fsys and parses JSON/YAML layout pages. Each file is one page
// named after the file (without extension). A file named `Settings` holds the
// page order under `pages.order`. When fsys is nil the returned set is empty.
func LoadFS(fsys fs.FS) (*Set, error) {
	if fsys == nil {
		return &Set{pages: map[string]Page{}}, nil
	}

	var (
		pages []Page
		order []string
	)
	err := fs.WalkDir(fsys, ".", func(p string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isLayoutFile(p) {
			return nil
		}

		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("layout: read %s: %w", p, err)
		}
		name := strings.TrimSuffix(path.Base(p), path.Ext(p))

		if strings.EqualFold(name, "settings") {
			settings, err := parseSettings(data, p)
			if err != nil {
				return err
			}
			order = settings.Pages.Order
			return nil
		}

		page, err := ParsePage(name, data)
		if err != nil {
			return err
		}
		pages = append(pages, page)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return NewSet(pages, order)
}

// Page returns the named page.
func (s *Set) Page(name string) (Page, error) {
	if s == nil {
		return Page{}, ErrPageNotFound
	}
	page, ok := s.pages[name]
	if !ok {
		return Page{}, fmt.Errorf("%w: %q", ErrPageNotFound, name)
	}
	return page, nil
}

// Order returns the page names in navigation order.
func (s *Set) Order() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.order...)
}

// Pages returns every page in navigation order.
func (s *Set) Pages() []Page {
	if s == nil {
		return nil
	}
	out := make([]Page, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.pages[name])
	}
	return out
}

// NextPage returns the page after (or before, when back is set) current,
// honouring per-page navigation overrides.
func (s *Set) NextPage(current string, back bool) (string, bool) {
	if s == nil {
		return "", false
	}
	if page, ok := s.pages[current]; ok && page.Navigation != nil {
		if back && page.Navigation.Previous != "" {
			return page.Navigation.Previous, true
		}
		if !back && page.Navigation.Next != "" {
			return page.Navigation.Next, true
		}
	}
	idx := -1
	for i, name := range s.order {
		if name == current {
			idx = i
			break
		}
	}
	if back {
		idx--
	} else {
		idx++
	}
	if idx < 0 || idx >= len(s.order) {
		return "", false
	}
	return s.order[idx], true
}

func (s *Set) setOrder(order []string) error {
	if len(order) == 0 {
		for name := range s.pages {
			s.order = append(s.order, name)
		}
		sort.Strings(s.order)
		return nil
	}
	seen := make(map[string]struct{}, len(order))
	for _, name := range order {
		if _, ok := s.pages[name]; !ok {
			return fmt.Errorf("layout: page order references unknown page %q", name)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("layout: page %q listed twice in page order", name)
		}
		seen[name] = struct{}{}
		s.order = append(s.order, name)
	}
	return nil
}

type pageFile struct {
	Data *pageData `json:"data"`
	pageData
}

type pageData struct {
	Layout     []Component `json:"layout"`
	Hidden     any         `json:"hidden,omitempty"`
	Navigation *Navigation `json:"navigation,omitempty"`
}

type settingsFile struct {
	Pages struct {
		Order []string `json:"order"`
	} `json:"pages"`
}

// ParsePage decodes one layout document. Accepted shapes are
// `{"data": {"layout": [...]}}`, `{"layout": [...]}` and a bare component
// list, in JSON or YAML.
func ParsePage(name string, data []byte) (Page, error) {
	raw, err := toJSON(data, name)
	if err != nil {
		return Page{}, err
	}

	page := Page{Name: name}
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(raw, &page.Components); err != nil {
			return Page{}, fmt.Errorf("layout: parse %s: %w", name, err)
		}
	} else {
		var doc pageFile
		if err := json.Unmarshal(raw, &doc); err != nil {
			return Page{}, fmt.Errorf("layout: parse %s: %w", name, err)
		}
		body := doc.pageData
		if doc.Data != nil {
			body = *doc.Data
		}
		page.Components = body.Layout
		page.Hidden = body.Hidden
		page.Navigation = body.Navigation
	}

	if err := validatePage(page); err != nil {
		return Page{}, err
	}
	return page, nil
}

func parseSettings(data []byte, source string) (settingsFile, error) {
	var settings settingsFile
	raw, err := toJSON(data, source)
	if err != nil {
		return settings, err
	}
	if err := json.Unmarshal(raw, &settings); err != nil {
		return settings, fmt.Errorf("layout: parse settings %s: %w", source, err)
	}
	return settings, nil
}

// toJSON accepts JSON as-is and converts YAML documents to JSON so both go
// through the same decoders.
func toJSON(data []byte, source string) ([]byte, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("layout: file %s is empty", source)
	}
	if json.Valid(data) {
		return data, nil
	}
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("layout: parse %s: invalid JSON or YAML", source)
	}
	out, err := json.Marshal(normalizeYAML(doc))
	if err != nil {
		return nil, fmt.Errorf("layout: parse %s: %w", source, err)
	}
	return out, nil
}

func normalizeYAML(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		for k, v := range typed {
			typed[k] = normalizeYAML(v)
		}
		return typed
	case map[any]any:
		out := make(map[string]any, len(typed))
		for k, v := range typed {
			out[fmt.Sprint(k)] = normalizeYAML(v)
		}
		return out
	case []any:
		for i, v := range typed {
			typed[i] = normalizeYAML(v)
		}
		return typed
	default:
		return typed
	}
}

func validatePage(page Page) error {
	seen := make(map[string]struct{}, len(page.Components))
	for i, comp := range page.Components {
		id := strings.TrimSpace(comp.ID)
		if id == "" {
			return fmt.Errorf("layout: page %s component #%d has no id", page.Name, i)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("layout: page %s defines component %q twice", page.Name, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

func isLayoutFile(p string) bool {
	switch strings.ToLower(path.Ext(p)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
