package hierarchy

import (
	"log/slog"

	"github.com/goliatone/go-formlayout/internal/logonce"
	"github.com/goliatone/go-formlayout/pkg/expr"
	"github.com/goliatone/go-formlayout/pkg/layout"
)

// MessageSource reports whether a component instance currently has
// validation messages. validation.Validations satisfies it.
type MessageSource interface {
	HasValidationMessages(pageKey, componentID string) bool
}

// Option configures a build.
type Option func(*config)

type config struct {
	registry *layout.Registry
	evalCtx  expr.Context
	messages MessageSource
	filtered map[string][]int
	logger   *logonce.Logger
}

func defaultConfig() config {
	return config{
		registry: layout.DefaultRegistry(),
		logger:   logonce.New(nil),
	}
}

// WithRegistry resolves type tags against reg instead of the default
// registry.
func WithRegistry(reg *layout.Registry) Option {
	return func(c *config) {
		if reg != nil {
			c.registry = reg
		}
	}
}

// WithEvalContext sets the instance metadata, settings and text lookup
// expressions can read. Node and DataModel are filled in by the builder.
func WithEvalContext(ctx expr.Context) Option {
	return func(c *config) {
		c.evalCtx = ctx
	}
}

// WithValidations attaches the current validation state so nodes can answer
// HasValidationMessages.
func WithValidations(src MessageSource) Option {
	return func(c *config) {
		c.messages = src
	}
}

// WithFilteredIndexes restricts the visible rows of repeating group
// instances (keyed by instance id). It takes precedence over rows derived
// from the group's own edit.filter rule.
func WithFilteredIndexes(filtered map[string][]int) Option {
	return func(c *config) {
		c.filtered = filtered
	}
}

// WithLogger reports diagnostics through logger, once per key across every
// build sharing it.
func WithLogger(logger *logonce.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSlog is a convenience wrapper around WithLogger.
func WithSlog(logger *slog.Logger) Option {
	return WithLogger(logonce.New(logger))
}
