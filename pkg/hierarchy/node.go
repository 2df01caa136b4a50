package hierarchy

import (
	"sort"

	"github.com/goliatone/go-formlayout/pkg/layout"
	"github.com/goliatone/go-formlayout/pkg/repgroups"
)

// AllRows selects children across every row of a repeating group.
const AllRows = -1

// LayoutNode is one resolved component instance. Nodes are rebuilt on every
// resolution pass; only their ids are stable between passes. A node returned
// from Build is read-only and safe for concurrent readers.
type LayoutNode struct {
	page   *LayoutPage
	parent *LayoutNode
	row    *Row

	base  *layout.Component
	kind  *layout.Kind
	shape layout.GroupShape

	id             string
	depth          []int
	multiPageIndex int
	scopes         []repgroups.Scope
	bindings       map[string]string

	groupBinding string
	groupState   repgroups.State
	children     []*LayoutNode
	rows         []*Row
	visibleRows  []*Row

	memo  map[string]*memo
	props resolvedProps
	item  layout.Component
}

// Row is one row of a repeating group. Index is the row index in the data
// model; filtering never renumbers it.
type Row struct {
	Index int
	Items []*LayoutNode

	group        *LayoutNode
	hidden       bool
	deleteButton bool
	editButton   bool
}

// Group returns the repeating group owning the row.
func (r *Row) Group() *LayoutNode { return r.group }

// IsHidden reports whether the row's hiddenRow expression hid it.
func (r *Row) IsHidden() bool { return r.hidden }

// DeleteButton reports whether the row may be deleted.
func (r *Row) DeleteButton() bool { return r.deleteButton }

// EditButton reports whether the row may be opened for editing.
func (r *Row) EditButton() bool { return r.editButton }

// EditState holds the resolved group-level edit settings of a repeating
// group.
type EditState struct {
	AddButton     bool
	SaveButton    bool
	OpenByDefault any
}

func (n *LayoutNode) ID() string              { return n.id }
func (n *LayoutNode) BaseComponentID() string { return n.base.ID }
func (n *LayoutNode) Type() string            { return n.base.Type }
func (n *LayoutNode) Kind() *layout.Kind      { return n.kind }
func (n *LayoutNode) Page() *LayoutPage       { return n.page }
func (n *LayoutNode) Parent() *LayoutNode     { return n.parent }

// Item returns the resolved component: instance id, row-indexed bindings,
// and evaluated expression properties. Maps in the result must not be
// modified.
func (n *LayoutNode) Item() layout.Component { return n.item }

// Category returns the kind category, CategoryUnknown for placeholders.
func (n *LayoutNode) Category() layout.Category {
	if n.kind == nil {
		return layout.CategoryUnknown
	}
	return n.kind.Category
}

// IsPlaceholder reports whether the node stands in for an unknown type.
// Placeholders have no children and render nothing.
func (n *LayoutNode) IsPlaceholder() bool { return n.kind.IsUnknown() }

func (n *LayoutNode) IsType(typ string) bool { return n.base.Type == typ }

func (n *LayoutNode) GroupShape() layout.GroupShape { return n.shape }
func (n *LayoutNode) IsRepGroup() bool              { return n.shape == layout.ShapeRepeating }
func (n *LayoutNode) IsRepGroupLikert() bool        { return n.shape == layout.ShapeRepeatingLikert }

// IsNonRepGroup covers plain groups and both panel shapes.
func (n *LayoutNode) IsNonRepGroup() bool {
	switch n.shape {
	case layout.ShapePlain, layout.ShapePanel, layout.ShapePanelReference:
		return true
	}
	return false
}

func (n *LayoutNode) IsNonRepPanelGroup() bool {
	return n.shape == layout.ShapePanel || n.shape == layout.ShapePanelReference
}

// IsHidden reports whether the node is hidden by its own expression, an
// ancestor, or a hidden row.
func (n *LayoutNode) IsHidden() bool      { return n.props.hidden }
func (n *LayoutNode) IsRequired() bool    { return n.props.required }
func (n *LayoutNode) IsReadOnly() bool    { return n.props.readOnly }
func (n *LayoutNode) Edit() EditState     { return n.props.edit }
func (n *LayoutNode) MultiPageIndex() int { return n.multiPageIndex }

// Text returns the resolved text resource binding for key.
func (n *LayoutNode) Text(key string) string { return n.props.text[key] }

// HasValidationMessages reports whether the validation state passed to the
// build holds messages for this instance.
func (n *LayoutNode) HasValidationMessages() bool {
	src := n.page.cfg.messages
	if src == nil {
		return false
	}
	return src.HasValidationMessages(n.page.name, n.id)
}

// Depth returns the row indices of every enclosing repeating group,
// outermost first.
func (n *LayoutNode) Depth() []int { return append([]int(nil), n.depth...) }

// RowIndex returns the innermost enclosing row index, or -1.
func (n *LayoutNode) RowIndex() int {
	if len(n.depth) == 0 {
		return -1
	}
	return n.depth[len(n.depth)-1]
}

// Binding returns the row-indexed data model path of a binding.
func (n *LayoutNode) Binding(key string) string { return n.bindings[key] }

// Bindings returns a copy of every row-indexed binding.
func (n *LayoutNode) Bindings() map[string]string {
	if len(n.bindings) == 0 {
		return nil
	}
	out := make(map[string]string, len(n.bindings))
	for k, v := range n.bindings {
		out[k] = v
	}
	return out
}

// DataModelContext returns the indexed data path of the innermost row the
// node lives in (`Group[1].sub[0]`), or "".
func (n *LayoutNode) DataModelContext() string {
	return scopeContext(n.scopes)
}

// GroupBinding returns the row-indexed `group` binding of a repeating group.
func (n *LayoutNode) GroupBinding() string { return n.groupBinding }

// GroupState returns the repeating group state the node was built from.
func (n *LayoutNode) GroupState() repgroups.State { return n.groupState }

// Rows returns the visible rows of a repeating group in ascending index
// order: rows inside the edit.filter start/stop range that pass the row
// filter. Hidden rows are included; check Row.IsHidden.
func (n *LayoutNode) Rows() []*Row { return append([]*Row(nil), n.visibleRows...) }

// AllRows returns every row regardless of filtering.
func (n *LayoutNode) AllRows() []*Row { return append([]*Row(nil), n.rows...) }

// Row returns the row with the given data index.
func (n *LayoutNode) Row(index int) (*Row, bool) {
	for _, r := range n.rows {
		if r.Index == index {
			return r, true
		}
	}
	return nil, false
}

// Children returns the direct children matching match (all when nil). For
// repeating groups row selects one row; AllRows walks every row in order.
func (n *LayoutNode) Children(match Matcher, row int) []*LayoutNode {
	var source []*LayoutNode
	switch {
	case len(n.rows) > 0 && row == AllRows:
		for _, r := range n.rows {
			source = append(source, r.Items...)
		}
	case len(n.rows) > 0:
		if r, ok := n.Row(row); ok {
			source = r.Items
		}
	default:
		source = n.children
	}
	return filter(source, match)
}

// TableNodes returns the children of row shown as table columns. When the
// group lists tableHeaders, children whose id or base id is listed are kept
// in header order; otherwise every child whose kind renders in a table is
// kept in authored order.
func (n *LayoutNode) TableNodes(row int) []*LayoutNode {
	children := n.Children(nil, row)
	headers := n.base.TableHeaders
	if len(headers) == 0 {
		return filter(children, func(c *LayoutNode) bool { return c.kind.RenderInTable })
	}

	position := make(map[string]int, len(headers))
	for i, h := range headers {
		if _, dup := position[h]; !dup {
			position[h] = i
		}
	}
	column := func(c *LayoutNode) int {
		if i, ok := position[c.BaseComponentID()]; ok {
			return i
		}
		if i, ok := position[c.ID()]; ok {
			return i
		}
		return -1
	}
	out := filter(children, func(c *LayoutNode) bool { return column(c) >= 0 })
	sort.SliceStable(out, func(i, j int) bool { return column(out[i]) < column(out[j]) })
	return out
}

// Flat returns n and its descendants depth-first in authored order, with
// group nodes left out unless includeGroups is set.
func (n *LayoutNode) Flat(includeGroups bool) []*LayoutNode {
	var out []*LayoutNode
	n.walk(func(node *LayoutNode) {
		if node.base.Type == layout.TypeGroup && !includeGroups {
			return
		}
		out = append(out, node)
	})
	return out
}

func (n *LayoutNode) walk(visit func(*LayoutNode)) {
	visit(n)
	for _, child := range n.Children(nil, AllRows) {
		child.walk(visit)
	}
}

// Closest searches outward from n: siblings in the same row, then each
// ancestor and its siblings, then the whole page, then other pages.
func (n *LayoutNode) Closest(match Matcher) *LayoutNode {
	if match == nil {
		return n
	}
	for cur := n; cur != nil; cur = cur.parent {
		for _, sib := range cur.siblings() {
			if match(sib) {
				return sib
			}
		}
		if cur.parent != nil && match(cur.parent) {
			return cur.parent
		}
	}
	if found := n.page.Find(match); found != nil {
		return found
	}
	if n.page.pages != nil {
		return n.page.pages.findExcept(n.page.name, match)
	}
	return nil
}

func (n *LayoutNode) siblings() []*LayoutNode {
	switch {
	case n.parent == nil:
		return n.page.top
	case n.row != nil:
		return n.row.Items
	default:
		return n.parent.children
	}
}

func filter(nodes []*LayoutNode, match Matcher) []*LayoutNode {
	if match == nil {
		return append([]*LayoutNode(nil), nodes...)
	}
	var out []*LayoutNode
	for _, node := range nodes {
		if match(node) {
			out = append(out, node)
		}
	}
	return out
}
