// Package state holds the shared, mutable form state: repeating group UI
// state, the data model, attachments and validations. Readers get deep
// copies; writers go through Update, which commits atomically.
package state

import (
	"errors"
	"sync"

	"github.com/goliatone/go-formlayout/pkg/formdata"
	"github.com/goliatone/go-formlayout/pkg/repgroups"
	"github.com/goliatone/go-formlayout/pkg/validation"
)

// Attachment is one uploaded file owned by a component instance.
type Attachment struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Size     int64    `json:"size"`
	Uploaded bool     `json:"uploaded"`
	Deleting bool     `json:"deleting"`
	Updating bool     `json:"updating"`
	Tags     []string `json:"tags,omitempty"`
}

// Attachments maps component instance ids (`uploader-0`) to their files.
type Attachments map[string][]Attachment

// Clone returns a deep copy.
func (a Attachments) Clone() Attachments {
	if a == nil {
		return nil
	}
	out := make(Attachments, len(a))
	for id, files := range a {
		copied := make([]Attachment, len(files))
		for i, f := range files {
			f.Tags = append([]string(nil), f.Tags...)
			copied[i] = f
		}
		out[id] = copied
	}
	return out
}

// State is one consistent view of the form.
type State struct {
	RepeatingGroups repgroups.States       `json:"repeatingGroups"`
	DataModel       formdata.DataModel     `json:"dataModel"`
	Attachments     Attachments            `json:"attachments"`
	Validations     validation.Validations `json:"validations"`
}

// Clone returns a deep copy.
func (s State) Clone() State {
	return State{
		RepeatingGroups: s.RepeatingGroups.Clone(),
		DataModel:       s.DataModel.Clone(),
		Attachments:     s.Attachments.Clone(),
		Validations:     s.Validations.Clone(),
	}
}

// ErrNilUpdate is returned by Update when fn is nil.
var ErrNilUpdate = errors.New("state: nil update function")

// Store guards a State with a mutex.
type Store struct {
	mu          sync.RWMutex
	state       State
	version     uint64
	subMu       sync.Mutex
	nextSub     int
	subscribers map[int]func(State)
}

// NewStore returns a store seeded with a copy of initial.
func NewStore(initial State) *Store {
	s := initial.Clone()
	if s.RepeatingGroups == nil {
		s.RepeatingGroups = repgroups.States{}
	}
	if s.DataModel == nil {
		s.DataModel = formdata.DataModel{}
	}
	if s.Attachments == nil {
		s.Attachments = Attachments{}
	}
	if s.Validations == nil {
		s.Validations = validation.Validations{}
	}
	return &Store{state: s, subscribers: make(map[int]func(State))}
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Version increments on every committed update.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Update applies fn to a copy of the state and commits the copy when fn
// returns nil. A failing fn leaves the store untouched. Subscribers are
// notified after the lock is released.
func (s *Store) Update(fn func(*State) error) error {
	if fn == nil {
		return ErrNilUpdate
	}

	s.mu.Lock()
	next := s.state.Clone()
	if err := fn(&next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = next
	s.version++
	committed := next.Clone()
	s.mu.Unlock()

	s.notify(committed)
	return nil
}

// Subscribe registers fn to receive a snapshot after every committed update.
// The returned function removes the subscription.
func (s *Store) Subscribe(fn func(State)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subscribers, id)
	}
}

func (s *Store) notify(snapshot State) {
	s.subMu.Lock()
	subs := make([]func(State), 0, len(s.subscribers))
	for id := 0; id < s.nextSub; id++ {
		if fn, ok := s.subscribers[id]; ok {
			subs = append(subs, fn)
		}
	}
	s.subMu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
}
