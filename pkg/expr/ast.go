// Package expr implements the declarative expression language used by layout
// properties. An expression is a JSON array whose first element names a
// function (`["equals", ["dataModel", "Group.type"], "B"]`); any other JSON
// scalar is a literal. Parse builds an explicit AST and Evaluate walks it with
// a single recursive evaluator.
package expr

import (
	"encoding/json"
	"fmt"
)

// FuncKind names a function of the expression language.
type FuncKind string

const (
	FuncEquals           FuncKind = "equals"
	FuncNotEquals        FuncKind = "notEquals"
	FuncNot              FuncKind = "not"
	FuncGreaterThan      FuncKind = "greaterThan"
	FuncGreaterThanEq    FuncKind = "greaterThanEq"
	FuncLessThan         FuncKind = "lessThan"
	FuncLessThanEq       FuncKind = "lessThanEq"
	FuncAnd              FuncKind = "and"
	FuncOr               FuncKind = "or"
	FuncIf               FuncKind = "if"
	FuncConcat           FuncKind = "concat"
	FuncPlus             FuncKind = "plus"
	FuncMinus            FuncKind = "minus"
	FuncMultiply         FuncKind = "multiply"
	FuncDivide           FuncKind = "divide"
	FuncRound            FuncKind = "round"
	FuncContains         FuncKind = "contains"
	FuncNotContains      FuncKind = "notContains"
	FuncStartsWith       FuncKind = "startsWith"
	FuncEndsWith         FuncKind = "endsWith"
	FuncStringLength     FuncKind = "stringLength"
	FuncLowerCase        FuncKind = "lowerCase"
	FuncUpperCase        FuncKind = "upperCase"
	FuncCommaContains    FuncKind = "commaContains"
	FuncDataModel        FuncKind = "dataModel"
	FuncComponent        FuncKind = "component"
	FuncInstanceContext  FuncKind = "instanceContext"
	FuncFrontendSettings FuncKind = "frontendSettings"
	FuncGatewayAction    FuncKind = "gatewayAction"
	FuncText             FuncKind = "text"
	FuncLanguage         FuncKind = "language"
	FuncArgv             FuncKind = "argv"
)

// arity bounds; max -1 means unbounded.
type arity struct{ min, max int }

var functions = map[FuncKind]arity{
	FuncEquals:           {2, 2},
	FuncNotEquals:        {2, 2},
	FuncNot:              {1, 1},
	FuncGreaterThan:      {2, 2},
	FuncGreaterThanEq:    {2, 2},
	FuncLessThan:         {2, 2},
	FuncLessThanEq:       {2, 2},
	FuncAnd:              {1, -1},
	FuncOr:               {1, -1},
	FuncIf:               {2, 4},
	FuncConcat:           {0, -1},
	FuncPlus:             {2, 2},
	FuncMinus:            {2, 2},
	FuncMultiply:         {2, 2},
	FuncDivide:           {2, 2},
	FuncRound:            {1, 2},
	FuncContains:         {2, 2},
	FuncNotContains:      {2, 2},
	FuncStartsWith:       {2, 2},
	FuncEndsWith:         {2, 2},
	FuncStringLength:     {1, 1},
	FuncLowerCase:        {1, 1},
	FuncUpperCase:        {1, 1},
	FuncCommaContains:    {2, 2},
	FuncDataModel:        {1, 1},
	FuncComponent:        {1, 1},
	FuncInstanceContext:  {1, 1},
	FuncFrontendSettings: {1, 1},
	FuncGatewayAction:    {0, 0},
	FuncText:             {1, 1},
	FuncLanguage:         {0, 0},
	FuncArgv:             {1, 1},
}

// Known reports whether name is a function of the language.
func Known(name string) bool {
	_, ok := functions[FuncKind(name)]
	return ok
}

// Expr is a parsed expression node: either a Literal or a Call.
type Expr interface {
	isExpr()
}

// Literal is a constant value: nil, bool, float64 or string.
type Literal struct {
	Value any
}

// Call applies a function to argument expressions.
type Call struct {
	Func FuncKind
	Args []Expr
}

func (Literal) isExpr() {}
func (*Call) isExpr()   {}

// IsExpression reports whether raw looks like an expression call (a non-empty
// array whose first element is a string). Literal values are not
// expressions.
func IsExpression(raw any) bool {
	arr, ok := raw.([]any)
	if !ok || len(arr) == 0 {
		return false
	}
	_, ok = arr[0].(string)
	return ok
}

// Parse converts a decoded JSON value into an expression tree. Arity and
// function names are checked here so evaluation never meets a malformed
// call.
func Parse(raw any) (Expr, error) {
	return parse(raw, nil)
}

// ParseJSON decodes and parses an expression from its JSON text.
func ParseJSON(data []byte) (Expr, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("expr: decode: %w", err)
	}
	return Parse(raw)
}

func parse(raw any, path []int) (Expr, error) {
	switch v := raw.(type) {
	case nil, bool, string, float64:
		return Literal{Value: v}, nil
	case int:
		return Literal{Value: float64(v)}, nil
	case int64:
		return Literal{Value: float64(v)}, nil
	case float32:
		return Literal{Value: float64(v)}, nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil, newError(path, "", ErrSyntax, "invalid number %q", v.String())
		}
		return Literal{Value: f}, nil
	case []any:
		return parseCall(v, path)
	default:
		return nil, newError(path, "", ErrSyntax, "unsupported value of type %T", raw)
	}
}

func parseCall(arr []any, path []int) (Expr, error) {
	if len(arr) == 0 {
		return nil, newError(path, "", ErrSyntax, "empty expression")
	}
	name, ok := arr[0].(string)
	if !ok {
		return nil, newError(child(path, 0), "", ErrSyntax, "function name must be a string, got %T", arr[0])
	}
	fn := FuncKind(name)
	bounds, ok := functions[fn]
	if !ok {
		return nil, newError(child(path, 0), fn, ErrUnknownFunction, "%q", name)
	}

	args := arr[1:]
	if len(args) < bounds.min || (bounds.max >= 0 && len(args) > bounds.max) {
		return nil, newError(path, fn, ErrArity, "got %d, %s", len(args), bounds.describe())
	}
	if fn == FuncIf {
		if err := checkIfShape(args, path); err != nil {
			return nil, err
		}
	}

	call := &Call{Func: fn, Args: make([]Expr, 0, len(args))}
	for i, arg := range args {
		parsed, err := parse(arg, child(path, i+1))
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, parsed)
	}
	return call, nil
}

// `if` takes either (cond, then) or (cond, then, "else", other).
func checkIfShape(args []any, path []int) error {
	switch len(args) {
	case 2:
		return nil
	case 4:
		if word, ok := args[2].(string); ok && word == "else" {
			return nil
		}
		return newError(child(path, 3), FuncIf, ErrSyntax, `expected "else"`)
	default:
		return newError(path, FuncIf, ErrArity, "got %d, want 2 or 4", len(args))
	}
}

func (a arity) describe() string {
	switch {
	case a.max < 0:
		return fmt.Sprintf("want at least %d", a.min)
	case a.min == a.max:
		return fmt.Sprintf("want %d", a.min)
	default:
		return fmt.Sprintf("want %d to %d", a.min, a.max)
	}
}

func child(path []int, pos int) []int {
	return append(append(make([]int, 0, len(path)+1), path...), pos)
}
