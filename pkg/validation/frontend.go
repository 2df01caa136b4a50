package validation

import (
	"sort"
	"strings"

	"github.com/goliatone/go-formlayout/pkg/expr"
	"github.com/goliatone/go-formlayout/pkg/formdata"
	"github.com/goliatone/go-formlayout/pkg/hierarchy"
	"github.com/goliatone/go-formlayout/pkg/layout"
)

// RequiredTextKey is the text resource used for required field messages.
const RequiredTextKey = "form_filler.error_required"

const defaultRequiredMessage = "Field is required"

// ExpressionValidation is a custom rule attached to a data model field. The
// condition is evaluated with the field value as argv 0; a true result
// produces the message.
type ExpressionValidation struct {
	Message   string   `json:"message" yaml:"message"`
	Condition any      `json:"condition" yaml:"condition"`
	Severity  Severity `json:"severity,omitempty" yaml:"severity,omitempty"`
}

// FrontendValidator checks the visible form nodes of a page: required
// fields, schema constraints and expression rules.
type FrontendValidator struct {
	schema      *Schema
	text        func(string) string
	expressions map[string][]ExpressionValidation
	evalCtx     expr.Context
}

// FrontendOption configures a FrontendValidator.
type FrontendOption func(*FrontendValidator)

// WithSchema enables data model schema checks.
func WithSchema(schema *Schema) FrontendOption {
	return func(v *FrontendValidator) { v.schema = schema }
}

// WithMessages resolves message text keys through text.
func WithMessages(text func(string) string) FrontendOption {
	return func(v *FrontendValidator) { v.text = text }
}

// WithExpressionValidations registers custom rules keyed by index-free data
// model path (`Group.amount`).
func WithExpressionValidations(rules map[string][]ExpressionValidation) FrontendOption {
	return func(v *FrontendValidator) { v.expressions = rules }
}

// WithEvaluationContext supplies instance data and settings to rule
// conditions.
func WithEvaluationContext(ctx expr.Context) FrontendOption {
	return func(v *FrontendValidator) { v.evalCtx = ctx }
}

// NewFrontendValidator builds a validator.
func NewFrontendValidator(opts ...FrontendOption) *FrontendValidator {
	v := &FrontendValidator{}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v
}

// ValidatePage validates every form node of page. Nodes without problems,
// and hidden nodes, yield an EmptyValidation so stale messages are cleared on
// merge.
func (v *FrontendValidator) ValidatePage(page *hierarchy.LayoutPage, data formdata.DataModel) []Object {
	var out []Object
	for _, node := range page.Flat(false) {
		if node.Category() != layout.CategoryForm {
			continue
		}
		var found []Object
		if !node.IsHidden() {
			found = v.validateNode(page.Name(), node, data)
		}
		if len(found) == 0 {
			out = append(out, EmptyValidation(page.Name(), node.ID(), node.Depth()...))
			continue
		}
		out = append(out, found...)
		out = append(out, clearedBindings(page.Name(), node, found)...)
	}
	return out
}

// Validate runs ValidatePage on every page that is not hidden and builds a
// Result ready for Merge.
func (v *FrontendValidator) Validate(pages *hierarchy.LayoutPages, data formdata.DataModel) Result {
	var objects []Object
	for _, page := range pages.All() {
		if page.IsHidden() {
			continue
		}
		objects = append(objects, v.ValidatePage(page, data)...)
	}
	return BuildResult(objects)
}

func (v *FrontendValidator) validateNode(pageKey string, node *hierarchy.LayoutNode, data formdata.DataModel) []Object {
	var out []Object
	rows := node.Depth()
	add := func(key string, sev Severity, msg string, invalidType bool) {
		obj := Message(pageKey, node.ID(), key, sev, msg)
		obj.InvalidDataTypes = invalidType
		obj.RowIndices = rows
		out = append(out, obj)
	}

	for key, path := range node.Bindings() {
		value, present := data.Get(path)
		if node.IsRequired() && isBlank(value, present) {
			add(key, SeverityErrors, v.requiredMessage(), false)
			continue
		}
		if present && v.schema != nil {
			if issue := v.schema.Check(path, value); issue != nil {
				add(key, SeverityErrors, v.resolve(issue.Message), issue.TypeMismatch)
				continue
			}
		}
		for _, rule := range v.expressions[formdata.StripIndices(path)] {
			if v.ruleFires(rule, node, data, path, value) {
				sev := rule.Severity
				if sev == "" {
					sev = SeverityErrors
				}
				add(key, sev, v.resolve(rule.Message), false)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].BindingKey < out[j].BindingKey })
	return out
}

func (v *FrontendValidator) ruleFires(rule ExpressionValidation, node *hierarchy.LayoutNode, data formdata.DataModel, path string, value any) bool {
	ctx := v.evalCtx
	ctx.DataModel = data
	ctx.Node = nodeRef{node: node, binding: path}
	ctx.Argv = []any{value}
	fires, err := expr.ResolveBool(rule.Condition, ctx, false)
	return err == nil && fires
}

func (v *FrontendValidator) requiredMessage() string {
	if v.text != nil {
		if msg := v.text(RequiredTextKey); msg != "" && msg != RequiredTextKey {
			return msg
		}
	}
	return defaultRequiredMessage
}

func (v *FrontendValidator) resolve(msg string) string {
	if v.text == nil {
		return msg
	}
	return v.text(msg)
}

// clearedBindings lists empty entries for the bindings of node that produced
// no message, so their earlier messages are dropped on merge.
func clearedBindings(pageKey string, node *hierarchy.LayoutNode, found []Object) []Object {
	flagged := make(map[string]struct{}, len(found))
	for _, obj := range found {
		flagged[obj.BindingKey] = struct{}{}
	}
	var out []Object
	for key := range node.Bindings() {
		if _, ok := flagged[key]; ok {
			continue
		}
		obj := EmptyValidation(pageKey, node.ID(), node.Depth()...)
		obj.BindingKey = key
		out = append(out, obj)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BindingKey < out[j].BindingKey })
	return out
}

func isBlank(value any, present bool) bool {
	if !present || value == nil {
		return true
	}
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// nodeRef exposes a resolved node to rule conditions.
type nodeRef struct {
	node    *hierarchy.LayoutNode
	binding string
}

func (r nodeRef) ID() string               { return r.node.ID() }
func (r nodeRef) DataModelContext() string { return r.node.DataModelContext() }
func (r nodeRef) PrimaryBinding() string   { return r.binding }
func (r nodeRef) Hidden() (bool, error)    { return r.node.IsHidden(), nil }

func (r nodeRef) Lookup(baseID string) (expr.Node, bool) {
	found := r.node.Closest(hierarchy.ByBaseID(baseID))
	if found == nil {
		return nil, false
	}
	return nodeRef{node: found, binding: found.Binding(found.Kind().PrimaryBinding())}, true
}
