// Package engine wires layouts, form data, text resources and validation
// into a single form session. It owns the state store, resolves layout pages
// on demand and exposes the row mutation coordinator.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/goliatone/go-formlayout/internal/logonce"
	"github.com/goliatone/go-formlayout/pkg/expr"
	"github.com/goliatone/go-formlayout/pkg/formdata"
	"github.com/goliatone/go-formlayout/pkg/hierarchy"
	"github.com/goliatone/go-formlayout/pkg/layout"
	"github.com/goliatone/go-formlayout/pkg/repgroups"
	"github.com/goliatone/go-formlayout/pkg/rowmutation"
	"github.com/goliatone/go-formlayout/pkg/state"
	"github.com/goliatone/go-formlayout/pkg/textresources"
	"github.com/goliatone/go-formlayout/pkg/validation"
)

// ErrNoLayouts is returned when an engine is created without layout pages.
var ErrNoLayouts = errors.New("engine: layout set is required")

// Option customises the engine configuration.
type Option func(*Engine)

// WithRegistry resolves component types against reg.
func WithRegistry(reg *layout.Registry) Option {
	return func(e *Engine) {
		if reg != nil {
			e.registry = reg
		}
	}
}

// WithLogger sets the logger shared by every component of the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithAttachmentDeleter sets the storage used when rows with uploads are
// deleted.
func WithAttachmentDeleter(d rowmutation.AttachmentDeleter) Option {
	return func(e *Engine) {
		e.deleter = d
	}
}

// WithConcurrency caps parallel attachment deletions.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithSchema enables data model schema checks during Validate.
func WithSchema(schema *validation.Schema) Option {
	return func(e *Engine) {
		e.schema = schema
	}
}

// WithTextResources resolves text keys against resources. The engine's
// language follows the resources.
func WithTextResources(resources *textresources.Resources) Option {
	return func(e *Engine) {
		if resources != nil {
			e.text = textresources.NewResolver(resources)
		}
	}
}

// WithExpressionValidations registers custom rules keyed by un-indexed data
// model path.
func WithExpressionValidations(rules map[string][]validation.ExpressionValidation) Option {
	return func(e *Engine) {
		e.rules = rules
	}
}

// WithInstance sets the instance metadata expressions can read.
func WithInstance(instance expr.Instance) Option {
	return func(e *Engine) {
		e.instance = instance
	}
}

// WithFrontendSettings sets the application settings expressions and text
// variables can read.
func WithFrontendSettings(settings map[string]any) Option {
	return func(e *Engine) {
		e.settings = settings
	}
}

// WithDataModel seeds the data model.
func WithDataModel(data formdata.DataModel) Option {
	return func(e *Engine) {
		e.initial.DataModel = data
	}
}

// WithAttachments seeds the uploaded attachments per component instance.
func WithAttachments(attachments state.Attachments) Option {
	return func(e *Engine) {
		e.initial.Attachments = attachments
	}
}

// Engine is one form session.
type Engine struct {
	layouts     *layout.Set
	registry    *layout.Registry
	logger      *slog.Logger
	deleter     rowmutation.AttachmentDeleter
	concurrency int
	schema      *validation.Schema
	text        *textresources.Resolver
	rules       map[string][]validation.ExpressionValidation
	instance    expr.Instance
	settings    map[string]any
	initial     state.State

	store *state.Store
	rows  *rowmutation.Coordinator

	backendMu    sync.Mutex
	backendPages map[string]struct{}
}

// New builds an engine over layouts. Repeating group state is derived from
// the seeded data model.
func New(layouts *layout.Set, options ...Option) (*Engine, error) {
	if layouts == nil {
		return nil, ErrNoLayouts
	}
	e := &Engine{
		layouts:  layouts,
		registry: layout.DefaultRegistry(),
		logger:   logonce.Discard(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(e)
	}

	initial := e.initial
	if initial.DataModel == nil {
		initial.DataModel = formdata.DataModel{}
	}
	initial.RepeatingGroups = computeStates(layouts, initial.DataModel, nil)
	e.store = state.NewStore(initial)

	rowOpts := []rowmutation.Option{
		rowmutation.WithRegistry(e.registry),
		rowmutation.WithLogger(e.logger),
		rowmutation.WithAttachmentDeleter(e.deleter),
	}
	if e.concurrency > 0 {
		rowOpts = append(rowOpts, rowmutation.WithConcurrency(e.concurrency))
	}
	e.rows = rowmutation.New(e.store, layouts, rowOpts...)
	return e, nil
}

// Open loads every input named by cfg and builds an engine. Options passed
// here override the values derived from cfg.
func Open(ctx context.Context, cfg Config, options ...Option) (*Engine, error) {
	if cfg.Layouts == "" {
		return nil, ErrNoLayouts
	}
	layouts, err := layout.LoadFS(os.DirFS(cfg.Path(cfg.Layouts)))
	if err != nil {
		return nil, fmt.Errorf("engine: load layouts: %w", err)
	}

	derived := []Option{
		WithLogger(NewLogger(cfg.Log.Level, cfg.Log.Format, os.Stderr)),
		WithInstance(cfg.Instance),
		WithFrontendSettings(cfg.FrontendSettings),
		WithExpressionValidations(cfg.Validations),
		WithConcurrency(cfg.Concurrency),
	}

	if cfg.Data != "" {
		raw, err := os.ReadFile(cfg.Path(cfg.Data))
		if err != nil {
			return nil, fmt.Errorf("engine: read data: %w", err)
		}
		data, err := formdata.FromJSON(raw)
		if err != nil {
			return nil, fmt.Errorf("engine: %w", err)
		}
		derived = append(derived, WithDataModel(data))
	}

	if cfg.TextResources != "" {
		language := cfg.Language
		if language == "" {
			language = expr.DefaultLanguage
		}
		resources, err := textresources.LoadFS(os.DirFS(cfg.Path(cfg.TextResources)), language)
		if err != nil {
			return nil, fmt.Errorf("engine: load text resources: %w", err)
		}
		derived = append(derived, WithTextResources(resources))
	}

	if cfg.Schema != "" {
		raw, err := os.ReadFile(cfg.Path(cfg.Schema))
		if err != nil {
			return nil, fmt.Errorf("engine: read schema: %w", err)
		}
		schema, err := validation.LoadSchema(ctx, raw, cfg.SchemaComponent)
		if err != nil {
			return nil, fmt.Errorf("engine: %w", err)
		}
		derived = append(derived, WithSchema(schema))
	}

	return New(layouts, append(derived, options...)...)
}

// Layouts returns the loaded layout pages.
func (e *Engine) Layouts() *layout.Set { return e.layouts }

// Store returns the state store backing the session.
func (e *Engine) Store() *state.Store { return e.store }

// Rows returns the coordinator for repeating group mutations.
func (e *Engine) Rows() *rowmutation.Coordinator { return e.rows }

// Logger returns the engine logger.
func (e *Engine) Logger() *slog.Logger { return e.logger }

// Language returns the active text resource language.
func (e *Engine) Language() string {
	if e.text == nil {
		return expr.DefaultLanguage
	}
	return e.text.Language()
}

// Text resolves key for a node in the row at dataContext ("" outside rows).
// Without text resources the key is returned.
func (e *Engine) Text(key, dataContext string) string {
	if e.text == nil {
		return key
	}
	ctx := e.textContext(e.store.Snapshot().DataModel)
	ctx.DataContext = dataContext
	return e.text.Resolve(key, ctx)
}

// Resolve builds every page against the current state.
func (e *Engine) Resolve() *hierarchy.LayoutPages {
	snap := e.store.Snapshot()
	return e.resolve(snap)
}

// Page resolves a single page against the current state. Cross-page
// lookups see the whole form.
func (e *Engine) Page(name string) (*hierarchy.LayoutPage, error) {
	page, ok := e.Resolve().Page(name)
	if !ok {
		return nil, fmt.Errorf("engine: %w: %q", layout.ErrPageNotFound, name)
	}
	return page, nil
}

// NextPage returns the next (or previous) page that is not hidden.
func (e *Engine) NextPage(current string, back bool) (string, bool) {
	pages := e.Resolve()
	seen := map[string]struct{}{current: {}}
	for {
		next, ok := e.layouts.NextPage(current, back)
		if !ok {
			return "", false
		}
		if _, loop := seen[next]; loop {
			return "", false
		}
		seen[next] = struct{}{}
		if page, found := pages.Page(next); found && !page.IsHidden() {
			return next, true
		}
		current = next
	}
}

// SetValue writes value at path; a nil value removes it. Repeating groups
// that become reachable through the new data get their state.
func (e *Engine) SetValue(ctx context.Context, path string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if path == "" {
		return errors.New("engine: data model path is required")
	}
	return e.store.Update(func(s *state.State) error {
		if value == nil {
			delete(s.DataModel, path)
		} else {
			s.DataModel[path] = value
		}
		s.RepeatingGroups = computeStates(e.layouts, s.DataModel, s.RepeatingGroups)
		return nil
	})
}

// Validate runs frontend validation over every visible page and merges the
// result into the store.
func (e *Engine) Validate(ctx context.Context) (validation.Result, error) {
	if err := ctx.Err(); err != nil {
		return validation.Result{}, err
	}
	snap := e.store.Snapshot()
	pages := e.resolve(snap)

	opts := []validation.FrontendOption{
		validation.WithEvaluationContext(e.evalContext(snap.DataModel)),
		validation.WithExpressionValidations(e.rules),
	}
	if e.schema != nil {
		opts = append(opts, validation.WithSchema(e.schema))
	}
	if e.text != nil {
		opts = append(opts, validation.WithMessages(e.text.TextFunc(e.textContext(snap.DataModel))))
	}
	result := validation.NewFrontendValidator(opts...).Validate(pages, snap.DataModel)

	err := e.store.Update(func(s *state.State) error {
		s.Validations = validation.Merge(s.Validations, result, true)
		return nil
	})
	if err != nil {
		return validation.Result{}, fmt.Errorf("engine: store validations: %w", err)
	}
	e.logger.Debug("frontend validation merged",
		"errors", result.Validations.Count(validation.SeverityErrors),
		"warnings", result.Validations.Count(validation.SeverityWarnings))
	return result, nil
}

// ApplyBackendIssues maps issues reported by the server onto the resolved
// layout and replaces the validations of every page they touch, and of every
// page the previous call touched. It returns
// the messages that disappeared as a result and the issues that could not be
// mapped.
func (e *Engine) ApplyBackendIssues(ctx context.Context, issues []validation.BackendIssue) ([]validation.Object, []validation.DroppedIssue, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	snap := e.store.Snapshot()
	pages := e.resolve(snap)

	mapOpts := []validation.MapOption{validation.WithLogger(e.logger)}
	if e.text != nil {
		mapOpts = append(mapOpts, validation.WithText(e.text.TextFunc(e.textContext(snap.DataModel))))
	}
	result, dropped := validation.MapBackendIssues(issues, pages, mapOpts...)

	e.backendMu.Lock()
	defer e.backendMu.Unlock()
	touched := make(map[string]struct{}, len(result.Validations))
	for pageKey := range result.Validations {
		touched[pageKey] = struct{}{}
	}
	// Pages written by the previous backend run are replaced even when this
	// run reports nothing for them, so resolved issues disappear.
	for pageKey := range e.backendPages {
		if _, ok := result.Validations[pageKey]; !ok {
			result.Validations[pageKey] = validation.LayoutValidations{}
		}
	}

	var fixed []validation.Object
	err := e.store.Update(func(s *state.State) error {
		next := validation.Merge(s.Validations, result, false)
		fixed = validation.DiffFixed(s.Validations, next)
		s.Validations = next
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("engine: store validations: %w", err)
	}
	e.backendPages = touched
	return fixed, dropped, nil
}

func (e *Engine) resolve(snap state.State) *hierarchy.LayoutPages {
	return hierarchy.BuildAll(e.layouts, snap.RepeatingGroups, snap.DataModel,
		hierarchy.WithRegistry(e.registry),
		hierarchy.WithEvalContext(e.evalContext(snap.DataModel)),
		hierarchy.WithValidations(snap.Validations),
		hierarchy.WithSlog(e.logger),
	)
}

func (e *Engine) evalContext(data formdata.DataModel) expr.Context {
	ctx := expr.Context{
		DataModel:        data,
		Instance:         e.instance,
		FrontendSettings: e.settings,
		Language:         e.Language(),
	}
	if e.text != nil {
		ctx.Text = e.text.TextFunc(e.textContext(data))
	}
	return ctx
}

func (e *Engine) textContext(data formdata.DataModel) textresources.Context {
	return textresources.Context{
		DataModel:           data,
		Instance:            e.instance,
		ApplicationSettings: e.settings,
	}
}

// computeStates derives group state for every page. Entries already present
// in existing win, so edit and multi-page positions survive data changes.
func computeStates(layouts *layout.Set, data formdata.DataModel, existing repgroups.States) repgroups.States {
	out := existing.Clone()
	if out == nil {
		out = make(repgroups.States)
	}
	for _, page := range layouts.Pages() {
		for id, st := range repgroups.ComputeRowCounts(page.Components, data) {
			if _, ok := out[id]; ok {
				continue
			}
			out[id] = st
		}
	}
	return out
}
