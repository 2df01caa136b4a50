package hierarchy

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/goliatone/go-formlayout/pkg/expr"
	"github.com/goliatone/go-formlayout/pkg/layout"
)

// ErrCycle is reported when a property depends on itself through component
// lookups.
var ErrCycle = errors.New("hierarchy: cyclic property reference")

type memoState uint8

const (
	memoPending memoState = iota
	memoResolving
	memoDone
)

type memo struct {
	state memoState
	value any
}

type resolvedProps struct {
	hidden   bool
	required bool
	readOnly bool
	text     map[string]string
	edit     EditState
}

// memoize computes a property once per node. Re-entering a property that is
// still being computed reports ErrCycle to the caller instead of recursing.
func (n *LayoutNode) memoize(key string, compute func() any) (any, error) {
	m, ok := n.memo[key]
	if !ok {
		m = &memo{}
		n.memo[key] = m
	}
	switch m.state {
	case memoDone:
		return m.value, nil
	case memoResolving:
		return nil, fmt.Errorf("%w: %s.%s", ErrCycle, n.id, key)
	}
	m.state = memoResolving
	m.value = compute()
	m.state = memoDone
	return m.value, nil
}

func (n *LayoutNode) evalContext(row *Row) expr.Context {
	ctx := n.page.cfg.evalCtx
	ctx.DataModel = n.page.data
	ctx.Node = exprNode{node: n, row: row}
	return ctx
}

func (n *LayoutNode) resolveBool(prop string, raw any, fallback bool, row *Row) bool {
	v, err := expr.ResolveBool(raw, n.evalContext(row), fallback)
	if err != nil {
		n.reportExpr(prop, err)
	}
	return v
}

func (n *LayoutNode) reportExpr(prop string, err error) {
	n.page.report(Diagnostic{
		Kind:        DiagExpression,
		ComponentID: n.base.ID,
		Type:        n.base.Type,
		Property:    prop,
		Message:     fmt.Sprintf("expression for %s.%s failed, using static value: %v", n.base.ID, prop, err),
	})
}

func (n *LayoutNode) hiddenState() (bool, error) {
	v, err := n.memoize("hidden", func() any {
		if n.parent != nil {
			ph, err := n.parent.hiddenState()
			if err != nil {
				n.reportExpr("hidden", err)
			} else if ph {
				return true
			}
		}
		if n.row != nil {
			rh, err := n.row.hiddenState()
			if err != nil {
				n.reportExpr("hidden", err)
			} else if rh {
				return true
			}
		}
		return n.resolveBool("hidden", n.base.Hidden, false, nil)
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

func (r *Row) hiddenState() (bool, error) {
	g := r.group
	v, err := g.memoize("row:"+strconv.Itoa(r.Index)+":hidden", func() any {
		return g.resolveBool("hiddenRow", g.base.HiddenRow, false, r)
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// force resolves every lazily computed property so the finished tree never
// writes to its memo tables again.
func (p *LayoutPage) force() {
	ctx := p.cfg.evalCtx
	ctx.DataModel = p.data
	hidden, err := expr.ResolveBool(p.hiddenRaw, ctx, false)
	if err != nil {
		p.report(Diagnostic{
			Kind:     DiagExpression,
			Property: "page.hidden",
			Message:  fmt.Sprintf("page %s hidden expression failed: %v", p.name, err),
		})
	}
	p.hidden = hidden

	for _, n := range p.all {
		n.force()
	}
}

func (n *LayoutNode) force() {
	hidden, _ := n.hiddenState()
	n.props.hidden = hidden
	n.props.required = n.resolveBool("required", n.base.Required, false, nil)
	n.props.readOnly = n.resolveBool("readOnly", n.base.ReadOnly, false, nil)

	if len(n.base.TextResourceBindings) > 0 {
		n.props.text = make(map[string]string, len(n.base.TextResourceBindings))
		for key, raw := range n.base.TextResourceBindings {
			fallback, _ := raw.(string)
			v, err := expr.ResolveString(raw, n.evalContext(nil), fallback)
			if err != nil {
				n.reportExpr("textResourceBindings."+key, err)
			}
			n.props.text[key] = v
		}
	}

	if edit := n.base.Edit; edit != nil && (n.IsRepGroup() || n.IsRepGroupLikert()) {
		n.props.edit = EditState{
			AddButton:     n.resolveBool("edit.addButton", edit.AddButton, true, nil),
			SaveButton:    n.resolveBool("edit.saveButton", edit.SaveButton, true, nil),
			OpenByDefault: expr.ResolveOr(edit.OpenByDefault, n.evalContext(nil), false, func(err error) { n.reportExpr("edit.openByDefault", err) }),
		}
	} else if n.IsRepGroup() || n.IsRepGroupLikert() {
		n.props.edit = EditState{AddButton: true, SaveButton: true, OpenByDefault: false}
	}

	for _, r := range n.rows {
		r.hidden, _ = r.hiddenState()
		var del, edit any
		if n.base.Edit != nil {
			del, edit = n.base.Edit.DeleteButton, n.base.Edit.EditButton
		}
		r.deleteButton = n.resolveBool("edit.deleteButton", del, true, r)
		r.editButton = n.resolveBool("edit.editButton", edit, true, r)
	}

	n.item = n.resolvedItem()
}

func (n *LayoutNode) resolvedItem() layout.Component {
	item := *n.base
	item.ID = n.id
	item.DataModelBindings = n.bindings
	item.Hidden = n.props.hidden
	item.Required = n.props.required
	item.ReadOnly = n.props.readOnly
	if n.props.text != nil {
		text := make(map[string]any, len(n.props.text))
		for k, v := range n.props.text {
			text[k] = v
		}
		item.TextResourceBindings = text
	}
	return item
}

// exprNode adapts a LayoutNode to expr.Node. When row is set the node stands
// for that row of a repeating group, so lookups and data paths are scoped to
// the row.
type exprNode struct {
	node *LayoutNode
	row  *Row
}

func (e exprNode) ID() string {
	if e.row != nil {
		return e.node.id + "-" + strconv.Itoa(e.row.Index)
	}
	return e.node.id
}

func (e exprNode) DataModelContext() string {
	if e.row != nil && e.node.groupBinding != "" {
		return e.node.groupBinding + "[" + strconv.Itoa(e.row.Index) + "]"
	}
	return e.node.DataModelContext()
}

func (e exprNode) PrimaryBinding() string {
	return e.node.bindings[e.node.kind.PrimaryBinding()]
}

func (e exprNode) Hidden() (bool, error) {
	return e.node.hiddenState()
}

func (e exprNode) Lookup(baseID string) (expr.Node, bool) {
	match := ByBaseID(baseID)
	if e.row != nil {
		for _, item := range e.row.Items {
			for _, n := range item.Flat(true) {
				if match(n) {
					return exprNode{node: n}, true
				}
			}
		}
	}
	found := e.node.Closest(match)
	if found == nil {
		return nil, false
	}
	return exprNode{node: found}, true
}
