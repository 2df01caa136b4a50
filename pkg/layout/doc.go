// Package layout defines the authored form layout: flat component
// definitions grouped into pages, the closed registry of component kinds, and
// the group shape predicates the hierarchy builder dispatches on.
//
// Pages are loaded from JSON or YAML documents:
//
//	set, err := layout.LoadFS(os.DirFS("ui/layouts"))
//	page, err := set.Page("FormLayout")
//
// A layout is immutable once loaded; reloading replaces the whole set.
package layout
