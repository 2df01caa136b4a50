// Package formdata holds the flat data model snapshot the engine resolves
// against. Keys are dotted paths with array indices (`Group[0].field`) and
// values are scalars.
package formdata

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// DataModel maps flat data model paths to scalar values. A DataModel is
// treated as an immutable snapshot during resolution; helpers that change
// data return a new map.
type DataModel map[string]any

var indexSegment = regexp.MustCompile(`\[\d*]`)

// Get returns the value stored at path.
func (d DataModel) Get(path string) (any, bool) {
	if d == nil {
		return nil, false
	}
	v, ok := d[path]
	return v, ok
}

// Clone returns a shallow copy of the snapshot.
func (d DataModel) Clone() DataModel {
	out := make(DataModel, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Keys returns every key in sorted order.
func (d DataModel) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// KeysWithPrefix returns the sorted keys starting with prefix.
func (d DataModel) KeysWithPrefix(prefix string) []string {
	var keys []string
	for k := range d {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// MaxRowIndex returns the highest array index found directly after binding in
// any key (`binding[<n>]...`), or -1 when no key addresses a row of binding.
func (d DataModel) MaxRowIndex(binding string) int {
	if binding == "" {
		return -1
	}
	highest := -1
	prefix := binding + "["
	for k := range d {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if n, _, ok := leadingIndex(k[len(prefix):]); ok && n > highest {
			highest = n
		}
	}
	return highest
}

// RemoveRow drops every key addressing row `row` of binding and shifts keys
// of higher rows down by one. The binding must already carry the indices of
// any enclosing rows (`Group[1].sub`).
func (d DataModel) RemoveRow(binding string, row int) DataModel {
	out := make(DataModel, len(d))
	prefix := binding + "["
	for k, v := range d {
		if !strings.HasPrefix(k, prefix) {
			out[k] = v
			continue
		}
		rest := k[len(prefix):]
		n, end, ok := leadingIndex(rest)
		if !ok {
			out[k] = v
			continue
		}
		switch {
		case n == row:
			continue
		case n > row:
			out[prefix+strconv.Itoa(n-1)+rest[end:]] = v
		default:
			out[k] = v
		}
	}
	return out
}

// StripIndices removes every array index from a path (`A[0].b[1].c` becomes
// `A.b.c`).
func StripIndices(path string) string {
	return indexSegment.ReplaceAllString(path, "")
}

// LastIndex returns the innermost array index of path, defaulting to 0 when
// the path has none.
func LastIndex(path string) int {
	matches := indexSegment.FindAllString(path, -1)
	if len(matches) == 0 {
		return 0
	}
	last := matches[len(matches)-1]
	n, err := strconv.Atoi(last[1 : len(last)-1])
	if err != nil {
		return 0
	}
	return n
}

// FromJSON decodes either a flat key/value document or a nested JSON object,
// flattening nested objects and arrays into dotted/indexed keys.
func FromJSON(data []byte) (DataModel, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("formdata: decode: %w", err)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("formdata: expected a JSON object, got %T", raw)
	}
	return Flatten(obj), nil
}

// Flatten converts a nested object into a flat DataModel.
func Flatten(obj map[string]any) DataModel {
	out := make(DataModel)
	flattenInto(out, "", obj)
	return out
}

func flattenInto(out DataModel, prefix string, value any) {
	switch typed := value.(type) {
	case map[string]any:
		for k, v := range typed {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			flattenInto(out, key, v)
		}
	case []any:
		for i, v := range typed {
			flattenInto(out, prefix+"["+strconv.Itoa(i)+"]", v)
		}
	default:
		if prefix != "" {
			out[prefix] = typed
		}
	}
}

// leadingIndex parses `<n>]...` and returns n plus the offset of the closing
// bracket.
func leadingIndex(s string) (int, int, bool) {
	end := strings.IndexByte(s, ']')
	if end <= 0 {
		return 0, 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil || n < 0 {
		return 0, 0, false
	}
	return n, end, true
}
