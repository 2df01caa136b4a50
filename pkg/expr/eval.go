package expr

import (
	"math"
	"strings"
)

// Evaluate walks a parsed expression against ctx. The result is nil, bool,
// float64 or string. Lookups that miss yield nil; failed coercions and failed
// component lookups yield an *ExpressionError.
func Evaluate(e Expr, ctx Context) (any, error) {
	ev := evaluator{ctx: ctx}
	return ev.eval(e, nil)
}

// EvaluateRaw parses and evaluates raw in one step.
func EvaluateRaw(raw any, ctx Context) (any, error) {
	parsed, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	return Evaluate(parsed, ctx)
}

type evaluator struct {
	ctx Context
}

func (ev evaluator) eval(e Expr, path []int) (any, error) {
	switch node := e.(type) {
	case Literal:
		return node.Value, nil
	case *Call:
		return ev.call(node, path)
	default:
		return nil, newError(path, "", ErrSyntax, "unsupported node %T", e)
	}
}

func (ev evaluator) arg(c *Call, path []int, i int) (any, error) {
	return ev.eval(c.Args[i], child(path, i+1))
}

func (ev evaluator) call(c *Call, path []int) (any, error) {
	switch c.Func {
	case FuncAnd, FuncOr:
		return ev.logical(c, path)

	case FuncNot:
		v, err := ev.arg(c, path, 0)
		if err != nil {
			return nil, err
		}
		b, err := castBool(v, child(path, 1), c.Func)
		if err != nil {
			return nil, err
		}
		return !b, nil

	case FuncIf:
		cond, err := ev.arg(c, path, 0)
		if err != nil {
			return nil, err
		}
		ok, err := castBool(cond, child(path, 1), c.Func)
		if err != nil {
			return nil, err
		}
		if ok {
			return ev.arg(c, path, 1)
		}
		if len(c.Args) == 4 {
			return ev.arg(c, path, 3)
		}
		return nil, nil
	}

	args := make([]any, len(c.Args))
	for i := range c.Args {
		v, err := ev.arg(c, path, i)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	switch c.Func {
	case FuncEquals, FuncNotEquals:
		eq := equal(args[0], args[1])
		if c.Func == FuncNotEquals {
			return !eq, nil
		}
		return eq, nil

	case FuncGreaterThan, FuncGreaterThanEq, FuncLessThan, FuncLessThanEq:
		return ev.compare(c.Func, args, path)

	case FuncPlus, FuncMinus, FuncMultiply, FuncDivide:
		return ev.arithmetic(c.Func, args, path)

	case FuncRound:
		return ev.round(args, path)

	case FuncConcat:
		var b strings.Builder
		for _, a := range args {
			s, _ := castString(a)
			b.WriteString(s)
		}
		return b.String(), nil

	case FuncContains, FuncNotContains, FuncStartsWith, FuncEndsWith:
		return stringPredicate(c.Func, args[0], args[1]), nil

	case FuncCommaContains:
		list, okList := castString(args[0])
		item, okItem := castString(args[1])
		if !okList || !okItem {
			return false, nil
		}
		for _, part := range strings.Split(list, ",") {
			if strings.TrimSpace(part) == strings.TrimSpace(item) {
				return true, nil
			}
		}
		return false, nil

	case FuncStringLength:
		s, _ := castString(args[0])
		return float64(len([]rune(s))), nil

	case FuncLowerCase, FuncUpperCase:
		s, ok := castString(args[0])
		if !ok {
			return nil, nil
		}
		if c.Func == FuncLowerCase {
			return strings.ToLower(s), nil
		}
		return strings.ToUpper(s), nil

	case FuncDataModel:
		return ev.dataModel(args[0], path)

	case FuncComponent:
		return ev.component(args[0], path)

	case FuncInstanceContext:
		key, err := stringArg(args[0], child(path, 1), c.Func)
		if err != nil {
			return nil, err
		}
		return ev.ctx.Instance.Get(key), nil

	case FuncFrontendSettings:
		key, err := stringArg(args[0], child(path, 1), c.Func)
		if err != nil {
			return nil, err
		}
		if ev.ctx.FrontendSettings == nil {
			return nil, nil
		}
		return normalize(ev.ctx.FrontendSettings[key]), nil

	case FuncGatewayAction:
		if ev.ctx.GatewayAction == "" {
			return nil, nil
		}
		return ev.ctx.GatewayAction, nil

	case FuncText:
		key, err := stringArg(args[0], child(path, 1), c.Func)
		if err != nil {
			return nil, err
		}
		if ev.ctx.Text == nil {
			return key, nil
		}
		return ev.ctx.Text(key), nil

	case FuncLanguage:
		if ev.ctx.Language == "" {
			return DefaultLanguage, nil
		}
		return ev.ctx.Language, nil

	case FuncArgv:
		n, ok, err := castNumber(args[0], child(path, 1), c.Func)
		if err != nil {
			return nil, err
		}
		idx := int(n)
		if !ok || float64(idx) != n || idx < 0 || idx >= len(ev.ctx.Argv) {
			return nil, newError(child(path, 1), c.Func, ErrLookup, "argument %s is out of range", describe(args[0]))
		}
		return normalize(ev.ctx.Argv[idx]), nil
	}

	return nil, newError(path, c.Func, ErrUnknownFunction, "no implementation")
}

// logical evaluates and/or left to right and stops at the first operand that
// decides the result.
func (ev evaluator) logical(c *Call, path []int) (any, error) {
	stopOn := c.Func == FuncOr
	for i := range c.Args {
		v, err := ev.arg(c, path, i)
		if err != nil {
			return nil, err
		}
		b, err := castBool(v, child(path, i+1), c.Func)
		if err != nil {
			return nil, err
		}
		if b == stopOn {
			return stopOn, nil
		}
	}
	return !stopOn, nil
}

func (ev evaluator) compare(fn FuncKind, args []any, path []int) (any, error) {
	a, okA, err := castNumber(args[0], child(path, 1), fn)
	if err != nil {
		return nil, err
	}
	b, okB, err := castNumber(args[1], child(path, 2), fn)
	if err != nil {
		return nil, err
	}
	if !okA || !okB {
		return false, nil
	}
	switch fn {
	case FuncGreaterThan:
		return a > b, nil
	case FuncGreaterThanEq:
		return a >= b, nil
	case FuncLessThan:
		return a < b, nil
	default:
		return a <= b, nil
	}
}

func (ev evaluator) arithmetic(fn FuncKind, args []any, path []int) (any, error) {
	a, okA, err := castNumber(args[0], child(path, 1), fn)
	if err != nil {
		return nil, err
	}
	b, okB, err := castNumber(args[1], child(path, 2), fn)
	if err != nil {
		return nil, err
	}
	if !okA || !okB {
		return nil, nil
	}
	switch fn {
	case FuncPlus:
		return a + b, nil
	case FuncMinus:
		return a - b, nil
	case FuncMultiply:
		return a * b, nil
	default:
		if b == 0 {
			return nil, nil
		}
		return a / b, nil
	}
}

func (ev evaluator) round(args []any, path []int) (any, error) {
	x, ok, err := castNumber(args[0], child(path, 1), FuncRound)
	if err != nil || !ok {
		return nil, err
	}
	precision := 0.0
	if len(args) == 2 {
		p, okP, err := castNumber(args[1], child(path, 2), FuncRound)
		if err != nil {
			return nil, err
		}
		if okP {
			precision = math.Trunc(p)
		}
	}
	scale := math.Pow(10, precision)
	return math.Round(x*scale) / scale, nil
}

func (ev evaluator) dataModel(arg any, path []int) (any, error) {
	p, err := stringArg(arg, child(path, 1), FuncDataModel)
	if err != nil {
		return nil, err
	}
	if ev.ctx.Node != nil {
		p = Transpose(p, ev.ctx.Node.DataModelContext())
	}
	v, _ := ev.ctx.DataModel.Get(p)
	return normalize(v), nil
}

func (ev evaluator) component(arg any, path []int) (any, error) {
	id, err := stringArg(arg, child(path, 1), FuncComponent)
	if err != nil {
		return nil, err
	}
	if ev.ctx.Node == nil {
		return nil, nil
	}
	target, ok := ev.ctx.Node.Lookup(id)
	if !ok {
		return nil, nil
	}
	hidden, err := target.Hidden()
	if err != nil {
		return nil, newError(child(path, 1), FuncComponent, ErrLookup, "%s: %v", target.ID(), err)
	}
	if hidden {
		return nil, nil
	}
	binding := target.PrimaryBinding()
	if binding == "" {
		return nil, nil
	}
	v, _ := ev.ctx.DataModel.Get(binding)
	return normalize(v), nil
}

func stringArg(value any, path []int, fn FuncKind) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case float64:
		s, _ := castString(v)
		return s, nil
	default:
		return "", newError(path, fn, ErrType, "expected string, got %s", describe(value))
	}
}

func equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	sa, _ := castString(a)
	sb, _ := castString(b)
	return sa == sb
}

func stringPredicate(fn FuncKind, a, b any) bool {
	haystack, okA := castString(a)
	needle, okB := castString(b)
	if !okA || !okB {
		return fn == FuncNotContains
	}
	switch fn {
	case FuncContains:
		return strings.Contains(haystack, needle)
	case FuncNotContains:
		return !strings.Contains(haystack, needle)
	case FuncStartsWith:
		return strings.HasPrefix(haystack, needle)
	default:
		return strings.HasSuffix(haystack, needle)
	}
}
