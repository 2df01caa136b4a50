// Package hierarchy resolves flat layout pages into trees of component
// instances. Repeating groups are expanded into rows, bindings are indexed
// per row, and expression properties are evaluated against the data model.
//
// Building never fails: unknown component types, invalid group
// configurations and broken expressions degrade the offending subtree and are
// reported once as Diagnostics.
package hierarchy

import (
	"fmt"
	"strconv"

	"github.com/goliatone/go-formlayout/pkg/formdata"
	"github.com/goliatone/go-formlayout/pkg/ids"
	"github.com/goliatone/go-formlayout/pkg/layout"
	"github.com/goliatone/go-formlayout/pkg/repgroups"
)

// Build resolves one page from its components, the current repeating group
// state and a data model snapshot. Group instances missing from states fall
// back to row counts derived from data.
func Build(pageName string, components []layout.Component, states repgroups.States, data formdata.DataModel, opts ...Option) *LayoutPage {
	return BuildPage(layout.Page{Name: pageName, Components: components}, states, data, opts...)
}

// BuildPage resolves a loaded page, including its page-level hidden
// expression.
func BuildPage(page layout.Page, states repgroups.States, data formdata.DataModel, opts ...Option) *LayoutPage {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	p := construct(page, states, data, cfg)
	p.force()
	return p
}

// BuildAll resolves every page of a layout set. Pages are constructed first
// and resolved afterwards so component lookups can cross page boundaries.
func BuildAll(set *layout.Set, states repgroups.States, data formdata.DataModel, opts ...Option) *LayoutPages {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	out := &LayoutPages{pages: make(map[string]*LayoutPage)}
	for _, page := range set.Pages() {
		p := construct(page, states, data, cfg)
		p.pages = out
		out.pages[page.Name] = p
		out.order = append(out.order, page.Name)
	}
	for _, name := range out.order {
		out.pages[name].force()
	}
	return out
}

func construct(page layout.Page, states repgroups.States, data formdata.DataModel, cfg config) *LayoutPage {
	components := append([]layout.Component(nil), page.Components...)
	p := &LayoutPage{
		name:       page.Name,
		cfg:        cfg,
		data:       data,
		hiddenRaw:  page.Hidden,
		components: components,
		lookup:     make(map[string]*layout.Component, len(components)),
		byID:       make(map[string]*LayoutNode),
		byBase:     make(map[string][]*LayoutNode),
	}
	for i := range components {
		p.lookup[components[i].ID] = &components[i]
	}

	b := builder{page: p, states: states, data: data}
	childIDs := layout.ChildIDSet(components)
	for i := range components {
		comp := &components[i]
		if _, isChild := childIDs[comp.ID]; isChild {
			continue
		}
		node := b.instantiate(comp, nil, nil, nil, nil, -1, make(map[string]struct{}))
		p.top = append(p.top, node)
	}
	return p
}

type builder struct {
	page   *LayoutPage
	states repgroups.States
	data   formdata.DataModel
}

// instantiate creates the node for comp at the given row depth and recurses
// into its children. visiting holds the group ids on the current path.
func (b *builder) instantiate(comp *layout.Component, parent *LayoutNode, row *Row, depth []int, scopes []repgroups.Scope, multiPage int, visiting map[string]struct{}) *LayoutNode {
	n := &LayoutNode{
		page:           b.page,
		parent:         parent,
		row:            row,
		base:           comp,
		id:             ids.BuildKey(comp.ID, depth),
		depth:          depth,
		multiPageIndex: multiPage,
		scopes:         scopes,
		bindings:       indexBindings(comp.DataModelBindings, scopes),
		memo:           make(map[string]*memo),
	}
	b.page.register(n)

	kind, known := b.page.cfg.registry.Resolve(comp.Type)
	n.kind = kind
	if !known {
		b.page.report(Diagnostic{
			Kind:        DiagUnknownType,
			ComponentID: comp.ID,
			Type:        comp.Type,
			Message:     fmt.Sprintf("No component definition found for type '%s'", comp.Type),
		})
		return n
	}
	if comp.Type != layout.TypeGroup {
		return n
	}

	n.shape = layout.ShapeOf(*comp, b.page.lookup)
	if _, loop := visiting[comp.ID]; loop {
		n.shape = layout.ShapeInvalid
	}
	switch n.shape {
	case layout.ShapeInvalid:
		b.page.report(Diagnostic{
			Kind:        DiagInvalidGroup,
			ComponentID: comp.ID,
			Type:        comp.Type,
			Message:     fmt.Sprintf("Group %s has an invalid configuration", comp.ID),
		})
		return n
	case layout.ShapeRepeating, layout.ShapeRepeatingLikert:
		visiting[comp.ID] = struct{}{}
		defer delete(visiting, comp.ID)
		b.expandRows(n, visiting)
	default:
		visiting[comp.ID] = struct{}{}
		defer delete(visiting, comp.ID)
		for _, ref := range comp.Children {
			childID, _ := comp.SplitChild(ref)
			if child := b.child(n, childID, nil, depth, scopes, -1, visiting); child != nil {
				n.children = append(n.children, child)
			}
		}
	}
	return n
}

func (b *builder) expandRows(n *LayoutNode, visiting map[string]struct{}) {
	comp := n.base
	n.groupBinding = repgroups.Substitute(comp.GroupBinding(), n.scopes)
	if st, ok := b.states[n.id]; ok {
		n.groupState = st
	} else {
		n.groupState = repgroups.State{
			Index:            b.data.MaxRowIndex(n.groupBinding),
			EditIndex:        -1,
			MultiPageIndex:   -1,
			DataModelBinding: comp.GroupBinding(),
		}
		if n.groupBinding == "" {
			n.groupState.Index = -1
		}
	}

	for r := 0; r <= n.groupState.Index; r++ {
		row := &Row{Index: r, group: n}
		rowDepth := append(append(make([]int, 0, len(n.depth)+1), n.depth...), r)
		rowScopes := append(append(make([]repgroups.Scope, 0, len(n.scopes)+1), n.scopes...),
			repgroups.Scope{GroupBinding: n.groupBinding, RowIndex: r})
		for _, ref := range comp.Children {
			childID, page := comp.SplitChild(ref)
			if child := b.child(n, childID, row, rowDepth, rowScopes, page, visiting); child != nil {
				row.Items = append(row.Items, child)
			}
		}
		n.rows = append(n.rows, row)
	}
	n.visibleRows = b.visibleRows(n)
}

func (b *builder) child(parent *LayoutNode, id string, row *Row, depth []int, scopes []repgroups.Scope, page int, visiting map[string]struct{}) *LayoutNode {
	comp, ok := b.page.lookup[id]
	if !ok {
		b.page.report(Diagnostic{
			Kind:        DiagMissingChild,
			ComponentID: parent.base.ID,
			Property:    id,
			Message:     fmt.Sprintf("Group %s references missing child %s", parent.base.ID, id),
		})
		return nil
	}
	return b.instantiate(comp, parent, row, depth, scopes, page, visiting)
}

// visibleRows applies the start/stop range and the row filter. Explicit
// filtered indexes win over the group's own filter rule; a rule that matches
// no row leaves every row visible.
func (b *builder) visibleRows(n *LayoutNode) []*Row {
	start, stop := repgroups.StartStopIndex(n.groupState.Index, n.base.Edit)

	var allowed []int
	if f, ok := b.page.cfg.filtered[n.id]; ok {
		allowed = f
	} else if n.base.Edit != nil {
		allowed = repgroups.FilteredRows(b.data, n.groupBinding, n.base.Edit.Filter)
	}
	var allow map[int]struct{}
	if allowed != nil {
		allow = make(map[int]struct{}, len(allowed))
		for _, idx := range allowed {
			allow[idx] = struct{}{}
		}
	}

	var out []*Row
	for _, r := range n.rows {
		if r.Index < start || r.Index > stop {
			continue
		}
		if allow != nil {
			if _, ok := allow[r.Index]; !ok {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

func indexBindings(bindings map[string]string, scopes []repgroups.Scope) map[string]string {
	if len(bindings) == 0 {
		return nil
	}
	out := make(map[string]string, len(bindings))
	for key, path := range bindings {
		out[key] = repgroups.Substitute(path, scopes)
	}
	return out
}

func scopeContext(scopes []repgroups.Scope) string {
	if len(scopes) == 0 {
		return ""
	}
	last := scopes[len(scopes)-1]
	if last.GroupBinding == "" {
		return ""
	}
	return last.GroupBinding + "[" + strconv.Itoa(last.RowIndex) + "]"
}
