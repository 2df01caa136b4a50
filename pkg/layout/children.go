package layout

// ChildGroupIDs returns the ids of every group referenced as a child of
// another group, resolving multi-page `page:childId` references.
func ChildGroupIDs(components []Component) map[string]struct{} {
	lookup := make(map[string]*Component, len(components))
	for i := range components {
		lookup[components[i].ID] = &components[i]
	}

	out := make(map[string]struct{})
	for _, comp := range components {
		if comp.Type != TypeGroup {
			continue
		}
		for _, childID := range comp.ChildIDs() {
			if child, ok := lookup[childID]; ok && child.Type == TypeGroup {
				out[childID] = struct{}{}
			}
		}
	}
	return out
}

// ChildIDSet returns every id referenced as a child of any group.
func ChildIDSet(components []Component) map[string]struct{} {
	out := make(map[string]struct{})
	for _, comp := range components {
		if comp.Type != TypeGroup {
			continue
		}
		for _, childID := range comp.ChildIDs() {
			out[childID] = struct{}{}
		}
	}
	return out
}

// FindChildren returns the non-group components of a layout that satisfy
// matching (all of them when matching is nil). When rootGroupID is set only
// components nested somewhere below that group are considered, including
// children of nested groups defined out of order.
func FindChildren(components []Component, matching func(Component) bool, rootGroupID string) []Component {
	var consider map[string]struct{}
	if rootGroupID != "" {
		consider = descendantIDs(components, rootGroupID)
	}

	var out []Component
	for _, comp := range components {
		if comp.Type == TypeGroup {
			continue
		}
		if consider != nil {
			if _, ok := consider[comp.ID]; !ok {
				continue
			}
		}
		if matching == nil || matching(comp) {
			out = append(out, comp)
		}
	}
	return out
}

// DescendantIDs returns every id nested below the group rootID.
func DescendantIDs(components []Component, rootID string) map[string]struct{} {
	return descendantIDs(components, rootID)
}

func descendantIDs(components []Component, rootID string) map[string]struct{} {
	lookup := make(map[string]*Component, len(components))
	for i := range components {
		lookup[components[i].ID] = &components[i]
	}

	out := make(map[string]struct{})
	var walk func(id string, seen map[string]struct{})
	walk = func(id string, seen map[string]struct{}) {
		comp, ok := lookup[id]
		if !ok || comp.Type != TypeGroup {
			return
		}
		if _, loop := seen[id]; loop {
			return
		}
		seen[id] = struct{}{}
		for _, childID := range comp.ChildIDs() {
			out[childID] = struct{}{}
			walk(childID, seen)
		}
	}
	walk(rootID, make(map[string]struct{}))
	return out
}
