// Package repgroups derives and maintains the per-instance state of repeating
// groups: how many rows exist, which row is open for editing, and which
// multi-page step is showing.
package repgroups

import (
	"strconv"
	"strings"

	"github.com/goliatone/go-formlayout/pkg/formdata"
	"github.com/goliatone/go-formlayout/pkg/ids"
	"github.com/goliatone/go-formlayout/pkg/layout"
)

// State is the UI state of one concrete repeating group instance. Index is
// the highest existing row index (-1 when the group has no rows).
type State struct {
	Index            int    `json:"index"`
	EditIndex        int    `json:"editIndex"`
	MultiPageIndex   int    `json:"multiPageIndex"`
	DataModelBinding string `json:"dataModelBinding,omitempty"`
	BaseGroupID      string `json:"baseGroupId,omitempty"`
	DeletingIndex    *int   `json:"deletingIndex,omitempty"`
}

// Rows returns the number of rows, never negative.
func (s State) Rows() int {
	if s.Index < 0 {
		return 0
	}
	return s.Index + 1
}

// States maps a group instance id (`groupId` or `groupId-<parentRow>...`) to
// its state.
type States map[string]State

// Clone returns a deep copy.
func (s States) Clone() States {
	out := make(States, len(s))
	for k, v := range s {
		if v.DeletingIndex != nil {
			idx := *v.DeletingIndex
			v.DeletingIndex = &idx
		}
		out[k] = v
	}
	return out
}

// Get returns the state for an instance id, defaulting to an empty group.
func (s States) Get(id string) State {
	if st, ok := s[id]; ok {
		return st
	}
	return empty("", "")
}

func empty(binding, base string) State {
	return State{
		Index:            -1,
		EditIndex:        -1,
		MultiPageIndex:   -1,
		DataModelBinding: binding,
		BaseGroupID:      base,
	}
}

// ComputeRowCounts derives row counts for every repeating group in a layout
// from the data model. Top-level repeating groups are keyed by their id;
// repeating groups nested inside repeating rows get one entry per parent row,
// keyed by their instance id (`child-<parentRow>`). Missing or malformed
// bindings produce empty groups, never errors.
func ComputeRowCounts(components []layout.Component, data formdata.DataModel) States {
	lookup := make(map[string]*layout.Component, len(components))
	for i := range components {
		lookup[components[i].ID] = &components[i]
	}
	childGroups := layout.ChildGroupIDs(components)

	out := make(States)
	c := counter{lookup: lookup, data: data, out: out}
	for _, comp := range components {
		if comp.Type != layout.TypeGroup {
			continue
		}
		if _, isChild := childGroups[comp.ID]; isChild {
			continue
		}
		c.visit(comp, nil, nil, make(map[string]struct{}))
	}
	return out
}

type counter struct {
	lookup map[string]*layout.Component
	data   formdata.DataModel
	out    States
}

// visit records state for group (when repeating) at the given row depth and
// descends into child groups. scopes holds the enclosing repeating bindings
// already indexed for their row.
func (c counter) visit(group layout.Component, depth []int, scopes []Scope, seen map[string]struct{}) {
	if _, loop := seen[group.ID]; loop {
		return
	}
	seen[group.ID] = struct{}{}
	defer delete(seen, group.ID)

	children := c.childGroups(group)

	if !layout.IsRepeatingAny(group) {
		for _, child := range children {
			c.visit(*child, depth, scopes, seen)
		}
		return
	}

	binding := group.GroupBinding()
	indexed := Substitute(binding, scopes)
	instanceID := ids.BuildKey(group.ID, depth)

	st := empty(binding, "")
	if len(depth) > 0 {
		st.BaseGroupID = group.ID
	}
	if indexed != "" {
		st.Index = c.data.MaxRowIndex(indexed)
	}
	c.out[instanceID] = st

	for row := 0; row <= st.Index; row++ {
		rowDepth := append(append([]int(nil), depth...), row)
		rowScopes := append(append([]Scope(nil), scopes...), Scope{GroupBinding: indexed, RowIndex: row})
		for _, child := range children {
			c.visit(*child, rowDepth, rowScopes, seen)
		}
	}
}

// SeedRow adds an empty state for every repeating group nested in row of the
// group instance groupID, looking through non-repeating groups. Entries that
// already exist are kept. states is modified in place.
func SeedRow(states States, components []layout.Component, groupID string, row int) {
	lookup := make(map[string]*layout.Component, len(components))
	for i := range components {
		lookup[components[i].ID] = &components[i]
	}
	key := ids.ParseKey(groupID)
	group, ok := lookup[key.BaseID]
	if !ok {
		return
	}
	depth := append(append([]int(nil), key.Depth...), row)
	c := counter{lookup: lookup}
	seen := map[string]struct{}{group.ID: {}}

	var seed func(parent layout.Component)
	seed = func(parent layout.Component) {
		for _, child := range c.childGroups(parent) {
			if _, loop := seen[child.ID]; loop {
				continue
			}
			if !layout.IsRepeatingAny(*child) {
				seen[child.ID] = struct{}{}
				seed(*child)
				continue
			}
			id := ids.BuildKey(child.ID, depth)
			if _, exists := states[id]; !exists {
				states[id] = empty(child.GroupBinding(), child.ID)
			}
		}
	}
	seed(*group)
}

func (c counter) childGroups(group layout.Component) []*layout.Component {
	var out []*layout.Component
	for _, id := range group.ChildIDs() {
		if child, ok := c.lookup[id]; ok && child.Type == layout.TypeGroup {
			out = append(out, child)
		}
	}
	return out
}

// Scope is one enclosing repeating group row: the group binding (already
// indexed for its own enclosing rows) and the row index.
type Scope struct {
	GroupBinding string
	RowIndex     int
}

// Substitute rewrites an authored binding so every enclosing repeating group
// prefix carries its row index (`Group.sub.x` in row 1 of `Group` becomes
// `Group[1].sub.x`). Scopes are ordered outermost first.
func Substitute(binding string, scopes []Scope) string {
	out := binding
	for _, scope := range scopes {
		out = substituteOne(out, scope.GroupBinding, scope.RowIndex)
	}
	return out
}

// substituteOne inserts `[row]` after prefix when binding starts with the
// un-indexed form of prefix. Bindings that do not live under prefix are
// returned unchanged.
func substituteOne(binding, prefix string, row int) string {
	if binding == "" || prefix == "" {
		return binding
	}
	if !strings.HasPrefix(binding, prefix) {
		return binding
	}
	rest := binding[len(prefix):]
	if rest != "" && rest[0] != '.' {
		return binding
	}
	return prefix + "[" + strconv.Itoa(row) + "]" + rest
}

// RemoveFromUIConfig removes the nested group state keyed
// `${groupID}-${index}`. When shift is set, nested states of higher rows move
// down one row so they stay aligned with the renumbered data.
func RemoveFromUIConfig(states States, groupID string, index int, shift bool) States {
	if shift {
		return ShiftNested(states, map[string]struct{}{groupID: {}}, nil, index)
	}
	out := states.Clone()
	delete(out, ids.WithRow(groupID, index))
	return out
}

// ShiftNested renumbers every nested group state whose instance id carries a
// row index of the deleted row at the given depth level, dropping the state of
// the deleted row itself. prefix holds the enclosing row indices.
func ShiftNested(states States, nestedBaseIDs map[string]struct{}, prefix []int, removed int) States {
	out := make(States, len(states))
	for key, st := range states {
		parsed := ids.ParseKey(key)
		if _, nested := nestedBaseIDs[parsed.BaseID]; !nested {
			out[key] = st
			continue
		}
		shifted, keep := ids.ShiftDepth(key, prefix, removed)
		if !keep {
			continue
		}
		out[shifted] = st
	}
	return out
}
