package repgroups

import (
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-formlayout/pkg/formdata"
	"github.com/goliatone/go-formlayout/pkg/layout"
)

// StartStopIndex returns the visible row range of a repeating group, taking
// the reserved `start`/`stop` filter keys into account. stop is inclusive and
// never exceeds index.
func StartStopIndex(index int, edit *layout.GroupEdit) (start, stop int) {
	start, stop = 0, index
	if edit == nil {
		return start, stop
	}
	for _, rule := range edit.Filter {
		switch rule.Key {
		case "start":
			if n, err := strconv.Atoi(strings.TrimSpace(rule.Value)); err == nil {
				start = n
			}
		case "stop":
			if n, err := strconv.Atoi(strings.TrimSpace(rule.Value)); err == nil && n-1 < stop {
				stop = n - 1
			}
		}
	}
	return start, stop
}

// FilteredIndices returns the row indices whose data matches the last filter
// rule, or nil when no rule is configured or no row matches. A rule key
// matches a data key when it equals the key with every array index removed,
// or the trailing path of that key (`type` matches `Group[1].type`). Stored
// row indices are never changed; filtering only affects visibility.
func FilteredIndices(data formdata.DataModel, filters []layout.GroupFilter) []int {
	rule, ok := lastDataRule(filters)
	if !ok {
		return nil
	}

	seen := make(map[int]struct{})
	var out []int
	for _, key := range data.Keys() {
		stripped := formdata.StripIndices(key)
		if stripped != rule.Key && !strings.HasSuffix(stripped, "."+rule.Key) {
			continue
		}
		if !valueMatches(data[key], rule.Value) {
			continue
		}
		idx := formdata.LastIndex(key)
		if _, dup := seen[idx]; dup {
			continue
		}
		seen[idx] = struct{}{}
		out = append(out, idx)
	}
	if len(out) == 0 {
		return nil
	}
	sort.Ints(out)
	return out
}

func lastDataRule(filters []layout.GroupFilter) (layout.GroupFilter, bool) {
	for i := len(filters) - 1; i >= 0; i-- {
		switch filters[i].Key {
		case "start", "stop", "":
			continue
		}
		return filters[i], true
	}
	return layout.GroupFilter{}, false
}

func valueMatches(value any, want string) bool {
	switch v := value.(type) {
	case string:
		return v == want
	case nil:
		return false
	case bool:
		return strconv.FormatBool(v) == want
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64) == want
	case int:
		return strconv.Itoa(v) == want
	default:
		return false
	}
}

// FilteredRows applies the last filter rule to the rows of one repeating
// group instance. Only keys below binding (`binding[<n>]...`) are considered
// and the row index is the one directly after binding, so nested groups and
// unrelated groups sharing a field name do not leak into the result. The rule
// key may be the full index-free path (`Group.type`) or the path relative to
// the row (`type`). Returns nil when no rule is configured or no row matches.
func FilteredRows(data formdata.DataModel, binding string, filters []layout.GroupFilter) []int {
	rule, ok := lastDataRule(filters)
	if !ok || binding == "" {
		return nil
	}

	prefix := binding + "["
	seen := make(map[int]struct{})
	var out []int
	for _, key := range data.KeysWithPrefix(prefix) {
		idxText, rest, found := strings.Cut(key[len(prefix):], "]")
		if !found {
			continue
		}
		row, err := strconv.Atoi(idxText)
		if err != nil || row < 0 {
			continue
		}
		relative := strings.TrimPrefix(formdata.StripIndices(rest), ".")
		if relative != rule.Key && formdata.StripIndices(key) != rule.Key {
			continue
		}
		if !valueMatches(data[key], rule.Value) {
			continue
		}
		if _, dup := seen[row]; dup {
			continue
		}
		seen[row] = struct{}{}
		out = append(out, row)
	}
	if len(out) == 0 {
		return nil
	}
	sort.Ints(out)
	return out
}
