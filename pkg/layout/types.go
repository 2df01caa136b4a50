package layout

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TypeGroup is the only component type that owns children.
const TypeGroup = "Group"

// Component is a component definition as authored in a layout page. Fields
// the engine interprets are lifted into typed fields; everything else is kept
// in Props so type-specific configuration survives a load/save round trip.
//
// Hidden, Required, ReadOnly, HiddenRow and every TextResourceBindings value
// hold either a literal or an expression (a JSON array whose first element is
// a function name).
type Component struct {
	ID                   string            `json:"id"`
	Type                 string            `json:"type"`
	DataModelBindings    map[string]string `json:"dataModelBindings,omitempty"`
	Children             []string          `json:"children,omitempty"`
	TextResourceBindings map[string]any    `json:"textResourceBindings,omitempty"`
	Hidden               any               `json:"hidden,omitempty"`
	Required             any               `json:"required,omitempty"`
	ReadOnly             any               `json:"readOnly,omitempty"`
	MaxCount             int               `json:"maxCount,omitempty"`
	MinCount             int               `json:"minCount,omitempty"`
	Edit                 *GroupEdit        `json:"edit,omitempty"`
	Panel                *GroupPanel       `json:"panel,omitempty"`
	TableHeaders         []string          `json:"tableHeaders,omitempty"`
	HiddenRow            any               `json:"hiddenRow,omitempty"`
	Triggers             []string          `json:"triggers,omitempty"`
	Props                map[string]any    `json:"-"`
}

// GroupEdit configures how rows of a repeating group are edited.
type GroupEdit struct {
	Mode                string        `json:"mode,omitempty"`
	Filter              []GroupFilter `json:"filter,omitempty"`
	MultiPage           bool          `json:"multiPage,omitempty"`
	OpenByDefault       any           `json:"openByDefault,omitempty"`
	AddButton           any           `json:"addButton,omitempty"`
	SaveButton          any           `json:"saveButton,omitempty"`
	DeleteButton        any           `json:"deleteButton,omitempty"`
	EditButton          any           `json:"editButton,omitempty"`
	AlwaysShowAddButton bool          `json:"alwaysShowAddButton,omitempty"`
}

// GroupFilter is a declarative row filter rule. The reserved keys `start` and
// `stop` bound the visible row range instead of matching data.
type GroupFilter struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// GroupPanel renders a non-repeating group as a panel.
type GroupPanel struct {
	Variant        string          `json:"variant,omitempty"`
	ShowIcon       *bool           `json:"showIcon,omitempty"`
	IconURL        string          `json:"iconUrl,omitempty"`
	GroupReference *GroupReference `json:"groupReference,omitempty"`
}

// GroupReference points a panel at a repeating group it adds rows to.
type GroupReference struct {
	Group string `json:"group"`
}

// Edit modes recognised on repeating groups.
const (
	EditModeShowTable      = "showTable"
	EditModeHideTable      = "hideTable"
	EditModeShowAll        = "showAll"
	EditModeOnlyTable      = "onlyTable"
	EditModeLikert         = "likert"
	multiPageSeparator     = ":"
	reservedFilterStartKey = "start"
	reservedFilterStopKey  = "stop"
)

var knownFields = map[string]struct{}{
	"id": {}, "type": {}, "dataModelBindings": {}, "children": {},
	"textResourceBindings": {}, "hidden": {}, "required": {}, "readOnly": {},
	"maxCount": {}, "minCount": {}, "edit": {}, "panel": {},
	"tableHeaders": {}, "hiddenRow": {}, "triggers": {},
}

type componentAlias Component

// UnmarshalJSON decodes the typed fields and keeps the rest in Props.
func (c *Component) UnmarshalJSON(data []byte) error {
	var alias componentAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = Component(alias)
	for key, value := range raw {
		if _, known := knownFields[key]; known {
			continue
		}
		if c.Props == nil {
			c.Props = make(map[string]any)
		}
		c.Props[key] = value
	}
	return nil
}

// MarshalJSON encodes the typed fields merged with Props.
func (c Component) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(componentAlias(c))
	if err != nil {
		return nil, err
	}
	if len(c.Props) == 0 {
		return base, nil
	}
	var merged map[string]any
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for key, value := range c.Props {
		if _, known := knownFields[key]; known {
			continue
		}
		merged[key] = value
	}
	return json.Marshal(merged)
}

// Prop returns a type-specific configuration value.
func (c Component) Prop(key string) (any, bool) {
	if c.Props == nil {
		return nil, false
	}
	v, ok := c.Props[key]
	return v, ok
}

// ChildIDs returns the child ids of a group with any multi-page prefix
// (`page:childId`) removed, in authored order.
func (c Component) ChildIDs() []string {
	if len(c.Children) == 0 {
		return nil
	}
	out := make([]string, len(c.Children))
	for i, child := range c.Children {
		out[i], _ = c.SplitChild(child)
	}
	return out
}

// SplitChild separates a child reference into its id and multi-page index.
// The index is -1 unless the group is a multi-page repeating group and the
// reference carries a `page:` prefix.
func (c Component) SplitChild(ref string) (string, int) {
	if !c.IsMultiPage() {
		return ref, -1
	}
	page, id, found := strings.Cut(ref, multiPageSeparator)
	if !found {
		return ref, -1
	}
	var idx int
	if _, err := fmt.Sscanf(page, "%d", &idx); err != nil {
		return id, -1
	}
	return id, idx
}

// IsMultiPage reports whether child references carry a page prefix.
func (c Component) IsMultiPage() bool {
	return c.Type == TypeGroup && IsRepeating(c) && c.Edit != nil && c.Edit.MultiPage
}

// GroupBinding returns the `group` data model binding, if any.
func (c Component) GroupBinding() string {
	if c.DataModelBindings == nil {
		return ""
	}
	return c.DataModelBindings["group"]
}

// Page is one loaded layout page.
type Page struct {
	Name       string      `json:"name"`
	Hidden     any         `json:"hidden,omitempty"`
	Navigation *Navigation `json:"navigation,omitempty"`
	Components []Component `json:"layout"`
}

// Navigation overrides the default next/previous page order.
type Navigation struct {
	Next     string `json:"next,omitempty"`
	Previous string `json:"previous,omitempty"`
}

// Lookup builds an id index over the page components.
func (p Page) Lookup() map[string]*Component {
	out := make(map[string]*Component, len(p.Components))
	for i := range p.Components {
		out[p.Components[i].ID] = &p.Components[i]
	}
	return out
}
