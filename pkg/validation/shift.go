package validation

import (
	"github.com/goliatone/go-formlayout/pkg/ids"
)

// ShiftRows keeps validations aligned with a repeating group after row
// removed was deleted. Components whose base id is in descendants and whose
// instance id carries the deleted row at depth len(prefix) are dropped;
// higher rows are renumbered down by one. prefix holds the row indices of the
// enclosing groups. Other pages are returned untouched.
func ShiftRows(v Validations, pageKey string, descendants map[string]struct{}, prefix []int, removed int) Validations {
	out := v.Clone()
	page, ok := out[pageKey]
	if !ok {
		return out
	}

	shifted := make(LayoutValidations, len(page))
	for id, comp := range page {
		if _, affected := descendants[ids.ParseKey(id).BaseID]; !affected {
			shifted[id] = comp
			continue
		}
		next, keep := ids.ShiftDepth(id, prefix, removed)
		if !keep {
			continue
		}
		shifted[next] = comp
	}
	if len(shifted) == 0 {
		delete(out, pageKey)
		return out
	}
	out[pageKey] = shifted
	return out
}
