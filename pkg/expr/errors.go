package expr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrUnknownFunction is returned when an expression names a function the
	// evaluator does not implement.
	ErrUnknownFunction = errors.New("unknown function")
	// ErrArity is returned when a function receives the wrong number of
	// arguments.
	ErrArity = errors.New("wrong number of arguments")
	// ErrType is returned when an argument cannot be coerced to the type a
	// function requires.
	ErrType = errors.New("invalid argument type")
	// ErrSyntax is returned for values that are neither literals nor calls.
	ErrSyntax = errors.New("malformed expression")
	// ErrLookup is returned when a lookup cannot be completed, such as a
	// component reference that forms a cycle.
	ErrLookup = errors.New("lookup failed")
)

// ExpressionError describes a structurally invalid expression or a failed
// coercion. Path points at the offending element inside the expression, one
// `[n]` per nesting level, where n is the array position (0 is the function
// name).
type ExpressionError struct {
	Path    []int
	Func    FuncKind
	Message string
	Err     error
}

func (e *ExpressionError) Error() string {
	var b strings.Builder
	b.WriteString("expr")
	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(FormatPath(e.Path))
	}
	if e.Func != "" {
		b.WriteString(" (")
		b.WriteString(string(e.Func))
		b.WriteString(")")
	}
	b.WriteString(": ")
	if e.Err != nil {
		b.WriteString(e.Err.Error())
		if e.Message != "" {
			b.WriteString(": ")
		}
	}
	b.WriteString(e.Message)
	return b.String()
}

func (e *ExpressionError) Unwrap() error { return e.Err }

// FormatPath renders an element path as `[1][0]`, or `$` for the root.
func FormatPath(path []int) string {
	if len(path) == 0 {
		return "$"
	}
	var b strings.Builder
	for _, p := range path {
		b.WriteByte('[')
		b.WriteString(strconv.Itoa(p))
		b.WriteByte(']')
	}
	return b.String()
}

func newError(path []int, fn FuncKind, err error, format string, args ...any) *ExpressionError {
	return &ExpressionError{
		Path:    append([]int(nil), path...),
		Func:    fn,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}
