package hierarchy

import "github.com/goliatone/go-formlayout/pkg/layout"

// HasRequiredFields reports whether any visible node on the page resolved
// as required.
func HasRequiredFields(p *LayoutPage) bool {
	for _, n := range p.Flat(false) {
		if n.IsRequired() && !n.IsHidden() {
			return true
		}
	}
	return false
}

// ExtractBottomButtons splits the top-level nodes of a page into the main
// content and the trailing run of action components rendered below it.
func ExtractBottomButtons(p *LayoutPage) (main, bottom []*LayoutNode) {
	top := p.Children(nil)
	split := len(top)
	for split > 0 && top[split-1].Category() == layout.CategoryAction {
		split--
	}
	return top[:split], top[split:]
}
