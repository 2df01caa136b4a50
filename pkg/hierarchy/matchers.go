package hierarchy

import "github.com/goliatone/go-formlayout/pkg/layout"

// Matcher selects nodes during traversal.
type Matcher func(*LayoutNode) bool

// ByType matches nodes whose component type is one of types.
func ByType(types ...string) Matcher {
	return func(n *LayoutNode) bool {
		for _, t := range types {
			if n.base.Type == t {
				return true
			}
		}
		return false
	}
}

// ByCategory matches nodes of the given kind categories.
func ByCategory(categories ...layout.Category) Matcher {
	return func(n *LayoutNode) bool {
		for _, c := range categories {
			if n.Category() == c {
				return true
			}
		}
		return false
	}
}

// ByBaseID matches every instance of an authored component.
func ByBaseID(id string) Matcher {
	return func(n *LayoutNode) bool { return n.base.ID == id }
}

// Visible matches nodes that are not hidden.
func Visible() Matcher {
	return func(n *LayoutNode) bool { return !n.props.hidden }
}

// All matches when every matcher does.
func All(matchers ...Matcher) Matcher {
	return func(n *LayoutNode) bool {
		for _, m := range matchers {
			if m != nil && !m(n) {
				return false
			}
		}
		return true
	}
}
