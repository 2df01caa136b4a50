// Package validation aggregates validation messages from frontend checks and
// backend issues into the nested page → component → binding → severity map
// the form renders from, and keeps that map consistent across merges and
// repeating-group row deletions.
package validation

import (
	"sort"
)

// Severity classifies a validation message.
type Severity string

const (
	SeverityErrors      Severity = "errors"
	SeverityWarnings    Severity = "warnings"
	SeverityInfo        Severity = "info"
	SeveritySuccess     Severity = "success"
	SeverityFixed       Severity = "fixed"
	SeverityUnspecified Severity = "unspecified"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityErrors, SeverityWarnings, SeverityInfo, SeveritySuccess, SeverityFixed, SeverityUnspecified:
		return true
	}
	return false
}

// Object is the intermediate form validators produce. An Empty object means
// the component was validated and nothing is wrong; it clears earlier
// messages for the component (or only for BindingKey when set).
type Object struct {
	Empty            bool     `json:"empty"`
	PageKey          string   `json:"pageKey"`
	ComponentID      string   `json:"componentId"`
	BindingKey       string   `json:"bindingKey,omitempty"`
	Severity         Severity `json:"severity,omitempty"`
	Message          string   `json:"message,omitempty"`
	InvalidDataTypes bool     `json:"invalidDataTypes,omitempty"`
	RowIndices       []int    `json:"rowIndices,omitempty"`
}

// EmptyValidation builds an Object that clears a component's messages.
func EmptyValidation(pageKey, componentID string, rowIndices ...int) Object {
	return Object{Empty: true, PageKey: pageKey, ComponentID: componentID, RowIndices: rowIndices}
}

// Message builds a message Object.
func Message(pageKey, componentID, bindingKey string, severity Severity, message string) Object {
	return Object{
		PageKey:     pageKey,
		ComponentID: componentID,
		BindingKey:  bindingKey,
		Severity:    severity,
		Message:     message,
	}
}

// BindingValidation holds the messages of one binding key per severity.
type BindingValidation map[Severity][]string

// ComponentValidations maps binding keys to their messages.
type ComponentValidations map[string]BindingValidation

// LayoutValidations maps component instance ids to their validations.
type LayoutValidations map[string]ComponentValidations

// Validations is the persisted validation state, keyed by page.
type Validations map[string]LayoutValidations

// Result is what one validator run hands to Merge.
type Result struct {
	Validations      Validations
	Fixed            []Object
	InvalidDataTypes bool
}

// BuildResult groups objects into a Result. Messages with the fixed severity
// are collected separately; empty objects produce empty entries.
func BuildResult(objects []Object) Result {
	res := Result{Validations: Validations{}}
	for _, obj := range objects {
		if obj.InvalidDataTypes {
			res.InvalidDataTypes = true
		}
		if obj.Severity == SeverityFixed && !obj.Empty {
			res.Fixed = append(res.Fixed, obj)
			continue
		}
		page := res.Validations.page(obj.PageKey)
		comp, ok := page[obj.ComponentID]
		if !ok {
			comp = ComponentValidations{}
			page[obj.ComponentID] = comp
		}
		if obj.Empty {
			if obj.BindingKey != "" {
				if _, ok := comp[obj.BindingKey]; !ok {
					comp[obj.BindingKey] = BindingValidation{}
				}
			}
			continue
		}
		binding, ok := comp[obj.BindingKey]
		if !ok {
			binding = BindingValidation{}
			comp[obj.BindingKey] = binding
		}
		binding[obj.Severity] = append(binding[obj.Severity], obj.Message)
	}
	return res
}

func (v Validations) page(key string) LayoutValidations {
	p, ok := v[key]
	if !ok {
		p = LayoutValidations{}
		v[key] = p
	}
	return p
}

// Clone returns a deep copy.
func (v Validations) Clone() Validations {
	if v == nil {
		return nil
	}
	out := make(Validations, len(v))
	for page, comps := range v {
		out[page] = comps.Clone()
	}
	return out
}

// Clone returns a deep copy.
func (l LayoutValidations) Clone() LayoutValidations {
	out := make(LayoutValidations, len(l))
	for id, comp := range l {
		out[id] = comp.Clone()
	}
	return out
}

// Clone returns a deep copy.
func (c ComponentValidations) Clone() ComponentValidations {
	out := make(ComponentValidations, len(c))
	for key, b := range c {
		out[key] = b.Clone()
	}
	return out
}

// Clone returns a deep copy.
func (b BindingValidation) Clone() BindingValidation {
	out := make(BindingValidation, len(b))
	for sev, msgs := range b {
		out[sev] = append([]string(nil), msgs...)
	}
	return out
}

// HasValidationMessages reports whether the component has any message of any
// severity on the page.
func (v Validations) HasValidationMessages(pageKey, componentID string) bool {
	for _, b := range v[pageKey][componentID] {
		for _, msgs := range b {
			if len(msgs) > 0 {
				return true
			}
		}
	}
	return false
}

// Messages returns the messages of a severity for one component, across all
// of its binding keys, in binding key order.
func (v Validations) Messages(pageKey, componentID string, severity Severity) []string {
	comp := v[pageKey][componentID]
	keys := make([]string, 0, len(comp))
	for k := range comp {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var out []string
	for _, k := range keys {
		out = append(out, comp[k][severity]...)
	}
	return out
}

// Count returns the number of messages of a severity across all pages.
func (v Validations) Count(severity Severity) int {
	n := 0
	for _, page := range v {
		for _, comp := range page {
			for _, b := range comp {
				n += len(b[severity])
			}
		}
	}
	return n
}

// HasErrors reports whether a page has error messages. An empty pageKey
// checks every page.
func (v Validations) HasErrors(pageKey string) bool {
	for key, page := range v {
		if pageKey != "" && key != pageKey {
			continue
		}
		for _, comp := range page {
			for _, b := range comp {
				if len(b[SeverityErrors]) > 0 {
					return true
				}
			}
		}
	}
	return false
}

// Prune drops empty severities, bindings, components and pages in place.
func (v Validations) Prune() Validations {
	for page, comps := range v {
		for id, comp := range comps {
			for key, b := range comp {
				for sev, msgs := range b {
					if len(msgs) == 0 {
						delete(b, sev)
					}
				}
				if len(b) == 0 {
					delete(comp, key)
				}
			}
			if len(comp) == 0 {
				delete(comps, id)
			}
		}
		if len(comps) == 0 {
			delete(v, page)
		}
	}
	return v
}
