package expr

import (
	"strings"

	"github.com/goliatone/go-formlayout/pkg/formdata"
)

// Node is the view of a resolved layout node the evaluator needs. The
// hierarchy package provides the implementation.
type Node interface {
	// ID returns the instance id (`field-2`).
	ID() string
	// DataModelContext returns the indexed path prefix of the innermost
	// repeating row the node lives in (`Group[2]`), or "" outside any row.
	DataModelContext() string
	// PrimaryBinding returns the resolved (indexed) path of the node's main
	// data binding, or "".
	PrimaryBinding() string
	// Hidden resolves the node's hidden state. An error is returned when the
	// resolution itself fails, for example on a cyclic reference.
	Hidden() (bool, error)
	// Lookup finds the closest node with the given base component id,
	// preferring nodes in the same row, then ancestors, then the page.
	Lookup(baseID string) (Node, bool)
}

// Instance carries metadata about the running form instance.
type Instance struct {
	InstanceOwnerPartyID   string `json:"instanceOwnerPartyId,omitempty" yaml:"instanceOwnerPartyId,omitempty"`
	InstanceID             string `json:"instanceId,omitempty" yaml:"instanceId,omitempty"`
	AppID                  string `json:"appId,omitempty" yaml:"appId,omitempty"`
	InstanceOwnerPartyType string `json:"instanceOwnerPartyType,omitempty" yaml:"instanceOwnerPartyType,omitempty"`
}

// Get returns the named instance field, or nil when unset or unknown.
func (i Instance) Get(key string) any {
	var v string
	switch key {
	case "instanceOwnerPartyId":
		v = i.InstanceOwnerPartyID
	case "instanceId":
		v = i.InstanceID
	case "appId":
		v = i.AppID
	case "instanceOwnerPartyType":
		v = i.InstanceOwnerPartyType
	}
	if v == "" {
		return nil
	}
	return v
}

// DefaultLanguage is used by `language` when the context carries none.
const DefaultLanguage = "nb"

// Context bundles everything an expression can read. Node is nil for
// page-level expressions.
type Context struct {
	Node             Node
	DataModel        formdata.DataModel
	Instance         Instance
	FrontendSettings map[string]any
	GatewayAction    string
	Language         string
	// Text resolves a text resource key. A nil Text returns the key itself.
	Text func(key string) string
	// Argv holds positional arguments for expressions used as templates.
	Argv []any
}

// WithNode returns a copy of ctx scoped to node.
func (c Context) WithNode(node Node) Context {
	c.Node = node
	return c
}

// Transpose rewrites a data model path so any un-indexed segments shared with
// the node's row context pick up that row's indices. `Group.field` evaluated
// in the context `Group[2]` becomes `Group[2].field`. Segments that already
// carry an index are kept and stop transposition when they differ from the
// context.
func Transpose(path, context string) string {
	if path == "" || context == "" {
		return path
	}
	pathSegs := strings.Split(path, ".")
	ctxSegs := strings.Split(context, ".")
	for i := range pathSegs {
		if i >= len(ctxSegs) {
			break
		}
		name, idx := splitSegment(pathSegs[i])
		ctxName, ctxIdx := splitSegment(ctxSegs[i])
		if name != ctxName {
			break
		}
		if idx == "" {
			pathSegs[i] = ctxSegs[i]
			continue
		}
		if idx != ctxIdx {
			break
		}
	}
	return strings.Join(pathSegs, ".")
}

func splitSegment(seg string) (name, index string) {
	if i := strings.IndexByte(seg, '['); i >= 0 {
		return seg[:i], seg[i:]
	}
	return seg, ""
}
