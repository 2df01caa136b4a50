package hierarchy

import (
	"fmt"
	"sort"
)

// DiagnosticKind classifies a configuration problem found while building a
// page.
type DiagnosticKind string

const (
	DiagUnknownType  DiagnosticKind = "unknown-type"
	DiagInvalidGroup DiagnosticKind = "invalid-group"
	DiagMissingChild DiagnosticKind = "missing-child"
	DiagExpression   DiagnosticKind = "expression"
)

// Diagnostic describes one configuration problem. Problems never abort a
// build; the offending subtree degrades instead.
type Diagnostic struct {
	Kind        DiagnosticKind
	Page        string
	ComponentID string
	Type        string
	Property    string
	Message     string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s", d.Kind, d.Message)
}

// key deduplicates diagnostics: unknown types once per type tag, everything
// else once per authored component (and property).
func (d Diagnostic) key() string {
	switch d.Kind {
	case DiagUnknownType:
		return string(d.Kind) + "|" + d.Type
	default:
		return string(d.Kind) + "|" + d.Page + "|" + d.ComponentID + "|" + d.Property
	}
}

type diagnostics struct {
	seen  map[string]struct{}
	items []Diagnostic
}

func (d *diagnostics) add(diag Diagnostic) bool {
	if d.seen == nil {
		d.seen = make(map[string]struct{})
	}
	k := diag.key()
	if _, ok := d.seen[k]; ok {
		return false
	}
	d.seen[k] = struct{}{}
	d.items = append(d.items, diag)
	return true
}

func (d *diagnostics) list() []Diagnostic {
	out := append([]Diagnostic(nil), d.items...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		if out[i].ComponentID != out[j].ComponentID {
			return out[i].ComponentID < out[j].ComponentID
		}
		return out[i].Property < out[j].Property
	})
	return out
}
