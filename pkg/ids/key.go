// Package ids parses and builds component instance identifiers. An instance
// id is the authored base id followed by one dash-separated row index per
// enclosing repeating group, innermost last (`field-0-2`).
package ids

import (
	"regexp"
	"strconv"
	"strings"
)

// Authored ids are frequently UUIDs, which contain hyphens and may end in a
// numeric leg. Those legs are always longer than five digits, so only short
// numeric segments count as row indices.
var depthSegment = regexp.MustCompile(`^\d{1,5}$`)

// Key is a parsed instance id.
type Key struct {
	BaseID                     string
	StringDepth                string
	StringDepthWithLeadingDash string
	Depth                      []int
}

// ParseKey splits a dashed instance id like `myComponent-0-1` into its base id
// (`myComponent`) and row depth ([0, 1]). Ids without trailing numeric
// segments are returned unchanged with an empty depth.
func ParseKey(id string) Key {
	parts := strings.Split(id, "-")

	var depth []int
	for len(parts) > 0 {
		last := parts[len(parts)-1]
		if !depthSegment.MatchString(last) {
			break
		}
		n, _ := strconv.Atoi(last)
		depth = append(depth, n)
		parts = parts[:len(parts)-1]
	}

	if len(parts) == 0 {
		return Key{BaseID: id, Depth: []int{}}
	}

	reverse(depth)
	if depth == nil {
		depth = []int{}
	}
	stringDepth := joinDepth(depth)
	key := Key{
		BaseID:      strings.Join(parts, "-"),
		StringDepth: stringDepth,
		Depth:       depth,
	}
	if stringDepth != "" {
		key.StringDepthWithLeadingDash = "-" + stringDepth
	}
	return key
}

// BuildKey joins a base id and row depth into an instance id.
func BuildKey(baseID string, depth []int) string {
	if len(depth) == 0 {
		return baseID
	}
	return baseID + "-" + joinDepth(depth)
}

// WithRow appends a single row index to an instance id.
func WithRow(id string, row int) string {
	return id + "-" + strconv.Itoa(row)
}

// ShiftDepth renumbers the row index found at the given depth level after the
// row `removed` has been deleted. The prefix holds the indices of the
// enclosing rows that must match for the id to be affected. Ids for the
// removed row report keep=false; ids at higher rows are decremented; all
// others are returned untouched.
func ShiftDepth(id string, prefix []int, removed int) (string, bool) {
	key := ParseKey(id)
	level := len(prefix)
	if len(key.Depth) <= level {
		return id, true
	}
	for i, want := range prefix {
		if key.Depth[i] != want {
			return id, true
		}
	}

	row := key.Depth[level]
	switch {
	case row == removed:
		return "", false
	case row > removed:
		depth := append([]int(nil), key.Depth...)
		depth[level] = row - 1
		return BuildKey(key.BaseID, depth), true
	default:
		return id, true
	}
}

func joinDepth(depth []int) string {
	if len(depth) == 0 {
		return ""
	}
	parts := make([]string, len(depth))
	for i, d := range depth {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, "-")
}

func reverse(values []int) {
	for i, j := 0, len(values)-1; i < j; i, j = i+1, j-1 {
		values[i], values[j] = values[j], values[i]
	}
}
