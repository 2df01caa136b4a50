package expr

// ResolveBool resolves a property that holds either a literal or an
// expression into a boolean. nil yields fallback. On error fallback is
// returned together with the error so the caller can report it.
func ResolveBool(raw any, ctx Context, fallback bool) (bool, error) {
	if raw == nil {
		return fallback, nil
	}
	if b, ok := raw.(bool); ok {
		return b, nil
	}
	v, err := EvaluateRaw(raw, ctx)
	if err != nil {
		return fallback, err
	}
	if v == nil {
		return fallback, nil
	}
	b, err := castBool(v, nil, "")
	if err != nil {
		return fallback, err
	}
	return b, nil
}

// ResolveString resolves a text property. A nil result yields fallback.
func ResolveString(raw any, ctx Context, fallback string) (string, error) {
	if raw == nil {
		return fallback, nil
	}
	if s, ok := raw.(string); ok {
		return s, nil
	}
	v, err := EvaluateRaw(raw, ctx)
	if err != nil {
		return fallback, err
	}
	s, ok := castString(v)
	if !ok {
		return fallback, nil
	}
	return s, nil
}

// ResolveOr evaluates raw and returns fallback when evaluation fails,
// passing the error to report when it is non-nil. Literal values are
// returned as-is.
func ResolveOr(raw any, ctx Context, fallback any, report func(error)) any {
	if !IsExpression(raw) {
		return normalizeLiteral(raw)
	}
	v, err := EvaluateRaw(raw, ctx)
	if err != nil {
		if report != nil {
			report(err)
		}
		return fallback
	}
	return v
}

func normalizeLiteral(raw any) any {
	if n := normalize(raw); n != nil || raw == nil {
		return n
	}
	return raw
}
