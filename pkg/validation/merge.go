package validation

import (
	"sort"
)

// Merge applies incoming to existing and returns the new state; existing is
// not modified.
//
// With merge set, incoming entries supersede existing ones per (page,
// component, binding): an empty component entry clears the whole component,
// an empty binding entry clears that binding, and any other binding entry
// replaces the existing one. Without merge, every page present in incoming
// replaces the existing page wholesale. Fixed messages remove their
// counterparts from the result in both modes.
func Merge(existing Validations, incoming Result, merge bool) Validations {
	out := existing.Clone()
	if out == nil {
		out = Validations{}
	}

	for pageKey, comps := range incoming.Validations {
		if !merge {
			out[pageKey] = comps.Clone()
			continue
		}
		page := out.page(pageKey)
		for id, comp := range comps {
			if len(comp) == 0 {
				delete(page, id)
				continue
			}
			target, ok := page[id]
			if !ok {
				target = ComponentValidations{}
				page[id] = target
			}
			for key, b := range comp {
				if len(b) == 0 {
					delete(target, key)
					continue
				}
				target[key] = b.Clone()
			}
		}
	}

	for _, fixed := range incoming.Fixed {
		removeFixed(out, fixed)
	}
	return out.Prune()
}

// removeFixed drops the fixed message from every severity of the matching
// binding. A fixed object without a binding key applies to all bindings of
// the component.
func removeFixed(v Validations, fixed Object) {
	comp := v[fixed.PageKey][fixed.ComponentID]
	for key, b := range comp {
		if fixed.BindingKey != "" && key != fixed.BindingKey {
			continue
		}
		for sev, msgs := range b {
			kept := msgs[:0:0]
			for _, m := range msgs {
				if m != fixed.Message {
					kept = append(kept, m)
				}
			}
			b[sev] = kept
		}
	}
}

// DiffFixed lists the error and warning messages present in before that are
// gone from after, as fixed objects. Consumers use them to acknowledge
// resolved problems.
func DiffFixed(before, after Validations) []Object {
	var out []Object
	for pageKey, comps := range before {
		for id, comp := range comps {
			for key, b := range comp {
				for _, sev := range []Severity{SeverityErrors, SeverityWarnings} {
					remaining := make(map[string]int)
					for _, m := range after[pageKey][id][key][sev] {
						remaining[m]++
					}
					for _, m := range b[sev] {
						if remaining[m] > 0 {
							remaining[m]--
							continue
						}
						out = append(out, Message(pageKey, id, key, SeverityFixed, m))
					}
				}
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.PageKey != b.PageKey {
			return a.PageKey < b.PageKey
		}
		if a.ComponentID != b.ComponentID {
			return a.ComponentID < b.ComponentID
		}
		if a.BindingKey != b.BindingKey {
			return a.BindingKey < b.BindingKey
		}
		return a.Message < b.Message
	})
	return out
}
