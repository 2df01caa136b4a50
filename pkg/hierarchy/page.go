package hierarchy

import (
	"github.com/goliatone/go-formlayout/pkg/formdata"
	"github.com/goliatone/go-formlayout/pkg/layout"
)

// LayoutPage is the resolved tree of one layout page.
type LayoutPage struct {
	name      string
	cfg       config
	data      formdata.DataModel
	hiddenRaw any
	hidden    bool

	components []layout.Component
	lookup     map[string]*layout.Component

	top    []*LayoutNode
	all    []*LayoutNode
	byID   map[string]*LayoutNode
	byBase map[string][]*LayoutNode
	diags  diagnostics
	pages  *LayoutPages
}

// Name returns the page key.
func (p *LayoutPage) Name() string { return p.name }

// IsHidden reports the page-level hidden expression result.
func (p *LayoutPage) IsHidden() bool { return p.hidden }

// Pages returns the page collection p was built in, or nil for a page built
// on its own.
func (p *LayoutPage) Pages() *LayoutPages { return p.pages }

// Children returns the top-level nodes matching match.
func (p *LayoutPage) Children(match Matcher) []*LayoutNode {
	return filter(p.top, match)
}

// FindByID returns the node with the given instance id, or nil.
func (p *LayoutPage) FindByID(id string) *LayoutNode {
	if p == nil {
		return nil
	}
	return p.byID[id]
}

// FindAllByBaseID returns every instance of an authored component in
// traversal order.
func (p *LayoutPage) FindAllByBaseID(baseID string) []*LayoutNode {
	return append([]*LayoutNode(nil), p.byBase[baseID]...)
}

// Find returns the first node in traversal order matching match.
func (p *LayoutPage) Find(match Matcher) *LayoutNode {
	for _, n := range p.all {
		if match == nil || match(n) {
			return n
		}
	}
	return nil
}

// Flat returns every node depth-first, groups included only when asked.
func (p *LayoutPage) Flat(includeGroups bool) []*LayoutNode {
	out := make([]*LayoutNode, 0, len(p.all))
	for _, n := range p.all {
		if n.base.Type == layout.TypeGroup && !includeGroups {
			continue
		}
		out = append(out, n)
	}
	return out
}

// Diagnostics returns the configuration problems found while building the
// page, one per offending key.
func (p *LayoutPage) Diagnostics() []Diagnostic { return p.diags.list() }

func (p *LayoutPage) register(n *LayoutNode) {
	p.all = append(p.all, n)
	p.byID[n.id] = n
	p.byBase[n.base.ID] = append(p.byBase[n.base.ID], n)
}

func (p *LayoutPage) report(d Diagnostic) {
	d.Page = p.name
	if !p.diags.add(d) {
		return
	}
	args := []any{"kind", string(d.Kind), "page", d.Page}
	if d.ComponentID != "" {
		args = append(args, "component", d.ComponentID)
	}
	if d.Type != "" {
		args = append(args, "type", d.Type)
	}
	if d.Property != "" {
		args = append(args, "property", d.Property)
	}
	p.cfg.logger.Warn(d.key(), d.Message, args...)
}

// LayoutPages holds every resolved page of a layout set. Component lookups
// from expressions fall back to other pages when the current page has no
// match.
type LayoutPages struct {
	order []string
	pages map[string]*LayoutPage
}

// Page returns a page by key.
func (ps *LayoutPages) Page(name string) (*LayoutPage, bool) {
	if ps == nil {
		return nil, false
	}
	p, ok := ps.pages[name]
	return p, ok
}

// All returns the pages in navigation order.
func (ps *LayoutPages) All() []*LayoutPage {
	out := make([]*LayoutPage, 0, len(ps.order))
	for _, name := range ps.order {
		out = append(out, ps.pages[name])
	}
	return out
}

// FindByID searches every page in order.
func (ps *LayoutPages) FindByID(id string) *LayoutNode {
	for _, p := range ps.All() {
		if n := p.FindByID(id); n != nil {
			return n
		}
	}
	return nil
}

// FindAllByBaseID collects instances from every page.
func (ps *LayoutPages) FindAllByBaseID(baseID string) []*LayoutNode {
	var out []*LayoutNode
	for _, p := range ps.All() {
		out = append(out, p.FindAllByBaseID(baseID)...)
	}
	return out
}

// Diagnostics collects the diagnostics of every page.
func (ps *LayoutPages) Diagnostics() []Diagnostic {
	var out []Diagnostic
	for _, p := range ps.All() {
		out = append(out, p.Diagnostics()...)
	}
	return out
}

func (ps *LayoutPages) findExcept(skip string, match Matcher) *LayoutNode {
	for _, p := range ps.All() {
		if p.name == skip {
			continue
		}
		if n := p.Find(match); n != nil {
			return n
		}
	}
	return nil
}
