// Package rowmutation coordinates edits to repeating groups that touch more
// than one part of the form state. Deleting a row removes its data, the
// attachments of every component in the row, its validations and the state of
// nested groups, and renumbers every higher row, as one atomic transition.
package rowmutation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/goliatone/go-formlayout/internal/logonce"
	"github.com/goliatone/go-formlayout/pkg/hierarchy"
	"github.com/goliatone/go-formlayout/pkg/ids"
	"github.com/goliatone/go-formlayout/pkg/layout"
	"github.com/goliatone/go-formlayout/pkg/repgroups"
	"github.com/goliatone/go-formlayout/pkg/state"
)

var (
	ErrGroupNotFound      = errors.New("rowmutation: repeating group not found")
	ErrRowOutOfRange      = errors.New("rowmutation: row index out of range")
	ErrMaxCountReached    = errors.New("rowmutation: group already has maxCount rows")
	ErrAttachmentDeletion = errors.New("rowmutation: attachment deletion failed")
)

// AttachmentDeleter removes an uploaded file from storage.
type AttachmentDeleter interface {
	DeleteAttachment(ctx context.Context, componentID string, attachment state.Attachment) error
}

// AttachmentDeleterFunc adapts a function to AttachmentDeleter.
type AttachmentDeleterFunc func(ctx context.Context, componentID string, attachment state.Attachment) error

// DeleteAttachment calls f.
func (f AttachmentDeleterFunc) DeleteAttachment(ctx context.Context, componentID string, attachment state.Attachment) error {
	return f(ctx, componentID, attachment)
}

// Coordinator serializes mutations per repeating group instance and commits
// each one as a single store update.
type Coordinator struct {
	store    *state.Store
	layouts  *layout.Set
	deleter  AttachmentDeleter
	registry *layout.Registry
	logger   *slog.Logger
	limit    int

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	subMu       sync.Mutex
	subscribers []func(Event)
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithAttachmentDeleter sets the storage used to remove attachments. Without
// one, attachments are only dropped from the state.
func WithAttachmentDeleter(d AttachmentDeleter) Option {
	return func(c *Coordinator) { c.deleter = d }
}

// WithRegistry resolves component kinds against reg.
func WithRegistry(reg *layout.Registry) Option {
	return func(c *Coordinator) {
		if reg != nil {
			c.registry = reg
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithConcurrency caps parallel attachment deletions. Values below one mean
// no cap.
func WithConcurrency(n int) Option {
	return func(c *Coordinator) { c.limit = n }
}

// New builds a coordinator over store for the pages in layouts.
func New(store *state.Store, layouts *layout.Set, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:    store,
		layouts:  layouts,
		registry: layout.DefaultRegistry(),
		logger:   logonce.Discard(),
		limit:    4,
		locks:    make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Subscribe registers fn for events. Events are delivered after the state
// change they describe has been committed.
func (c *Coordinator) Subscribe(fn func(Event)) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	c.subscribers = append(c.subscribers, fn)
}

func (c *Coordinator) emit(events ...Event) {
	c.subMu.Lock()
	subs := make([]func(Event), len(c.subscribers))
	copy(subs, c.subscribers)
	c.subMu.Unlock()
	for _, e := range events {
		for _, fn := range subs {
			fn(e)
		}
	}
}

func (c *Coordinator) lock(groupID string) func() {
	c.locksMu.Lock()
	mu, ok := c.locks[groupID]
	if !ok {
		mu = &sync.Mutex{}
		c.locks[groupID] = mu
	}
	c.locksMu.Unlock()
	mu.Lock()
	return mu.Unlock
}

// target is a group instance resolved against the current snapshot.
type target struct {
	page     layout.Page
	instance string
	key      ids.Key
	comp     *layout.Component
	node     *hierarchy.LayoutNode
	state    repgroups.State
}

func (c *Coordinator) resolve(snap state.State, pageKey, groupID string) (target, error) {
	st, ok := snap.RepeatingGroups[groupID]
	if !ok {
		return target{}, fmt.Errorf("%w: %s", ErrGroupNotFound, groupID)
	}
	page, err := c.layouts.Page(pageKey)
	if err != nil {
		return target{}, fmt.Errorf("rowmutation: %w", err)
	}
	key := ids.ParseKey(groupID)
	comp, ok := page.Lookup()[key.BaseID]
	if !ok || !layout.IsRepeatingAny(*comp) {
		return target{}, fmt.Errorf("%w: %s on page %s", ErrGroupNotFound, groupID, pageKey)
	}

	built := hierarchy.BuildPage(page, snap.RepeatingGroups, snap.DataModel,
		hierarchy.WithRegistry(c.registry), hierarchy.WithSlog(c.logger))
	node := built.FindByID(groupID)
	if node == nil {
		return target{}, fmt.Errorf("%w: %s is not instantiated on page %s", ErrGroupNotFound, groupID, pageKey)
	}
	return target{page: page, instance: groupID, key: key, comp: comp, node: node, state: st}, nil
}

func (c *Coordinator) findPage(groupID string) (string, error) {
	base := ids.ParseKey(groupID).BaseID
	for _, page := range c.layouts.Pages() {
		if _, ok := page.Lookup()[base]; ok {
			return page.Name, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrGroupNotFound, groupID)
}
