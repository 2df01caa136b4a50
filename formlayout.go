package formlayout

import (
	"context"

	"github.com/goliatone/go-formlayout/pkg/engine"
	"github.com/goliatone/go-formlayout/pkg/layout"
	"github.com/goliatone/go-formlayout/pkg/rowmutation"
	"github.com/goliatone/go-formlayout/pkg/validation"
)

// Engine aliases engine.Engine for callers that only import the root
// package.
type Engine = engine.Engine

// Config aliases engine.Config.
type Config = engine.Config

// Event aliases rowmutation.Event.
type Event = rowmutation.Event

// BackendIssue aliases validation.BackendIssue.
type BackendIssue = validation.BackendIssue

// New builds an engine over an in-memory layout set.
func New(layouts *layout.Set, options ...engine.Option) (*Engine, error) {
	return engine.New(layouts, options...)
}

// Open reads the config document at path and builds an engine from the
// inputs it names.
func Open(ctx context.Context, path string, options ...engine.Option) (*Engine, error) {
	cfg, err := engine.LoadConfigFile(path)
	if err != nil {
		return nil, err
	}
	return engine.Open(ctx, cfg, options...)
}

// WithAttachmentDeleter forwards to engine.WithAttachmentDeleter.
func WithAttachmentDeleter(d rowmutation.AttachmentDeleter) engine.Option {
	return engine.WithAttachmentDeleter(d)
}
